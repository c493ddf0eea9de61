package ir

import "testing"

func TestSlug_ReplacesNonAlphanumericAndTrimsLeadingUnderscores(t *testing.T) {
	got := Slug("/api/v3/swaps/{pool}")
	want := "api_v3_swaps__pool_"
	if got != want {
		t.Fatalf("Slug() = %q, want %q", got, want)
	}
}

func TestSlug_RootPath_FallsBackToRoot(t *testing.T) {
	if got := Slug("/"); got != "root" {
		t.Fatalf("Slug(\"/\") = %q, want %q", got, "root")
	}
}

func TestStandardIndexName(t *testing.T) {
	if got := StandardIndexName("transfers"); got != "transfers_tx_log_idx" {
		t.Fatalf("StandardIndexName() = %q", got)
	}
}

func TestAllParams_PathBeforeQuery(t *testing.T) {
	e := &EndpointIR{
		PathParams:  []Param{{Name: "addr"}},
		QueryParams: []Param{{Name: "limit"}},
	}
	params := e.AllParams()
	if len(params) != 2 || params[0].Name != "addr" || params[1].Name != "limit" {
		t.Fatalf("AllParams() = %+v", params)
	}
}

func TestEventIR_Key(t *testing.T) {
	e := &EventIR{ContractID: "token", EventName: "Transfer"}
	if got := e.Key(); got != "token__Transfer" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestStandardColumns_IncludesRequiredFields(t *testing.T) {
	cols := StandardColumns()
	byName := map[string]Column{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	for _, want := range []string{"id", "block_number", "block_timestamp", "transaction_hash", "log_index"} {
		if _, ok := byName[want]; !ok {
			t.Fatalf("StandardColumns() missing %q", want)
		}
	}
}
