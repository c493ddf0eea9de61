// Package ir defines the Intermediate Representation artifacts that
// drive every runtime phase: event IRs (schema + decode rules) and
// endpoint IRs (HTTP surface + SQL).
package ir

// Column describes one column of a generated table.
type Column struct {
	Name     string `json:"name"`
	SQLType  string `json:"sql_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// Index describes a table index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableSchema is the DDL-level shape of one event's storage table.
type TableSchema struct {
	TableName string   `json:"table_name"`
	Columns   []Column `json:"columns"`
	Indexes   []Index  `json:"indexes"`
}

// StandardColumns are present on every event table (spec.md §3).
func StandardColumns() []Column {
	return []Column{
		{Name: "id", SQLType: "BIGSERIAL PRIMARY KEY", Nullable: false},
		{Name: "block_number", SQLType: "BIGINT", Nullable: false},
		{Name: "block_timestamp", SQLType: "TIMESTAMPTZ", Nullable: false},
		{Name: "transaction_hash", SQLType: "VARCHAR(66)", Nullable: false},
		{Name: "log_index", SQLType: "INT", Nullable: false},
	}
}

// StandardIndexName is the unique index Smorty requires on every event table.
func StandardIndexName(table string) string {
	return table + "_tx_log_idx"
}

// EventField is one decoded ABI parameter mapped onto a column.
type EventField struct {
	Name         string `json:"name"`
	SolidityType string `json:"solidity_type"`
	ColumnName   string `json:"column_name"`
	ColumnType   string `json:"column_type"`
}

// EventIR is the immutable artifact produced by gen-spec for one
// (contract, event) pair.
type EventIR struct {
	ContractID     string       `json:"contract_id"`
	EventName      string       `json:"event_name"`
	EventSignature string       `json:"event_signature"`
	Topic0         string       `json:"topic0"`
	Chain          string       `json:"chain"`
	ContractAddr   string       `json:"contract_address"`
	StartBlock     uint64       `json:"start_block"`
	IndexedFields  []EventField `json:"indexed_fields"`
	DataFields     []EventField `json:"data_fields"`
	TableSchema    TableSchema  `json:"table_schema"`
	EndpointHint   string       `json:"endpoint_hint,omitempty"`
	Description    string       `json:"description,omitempty"`

	// Provenance (spec.md §9): records the model/prompt this IR came from
	// so regeneration with different inputs cannot silently clobber it.
	ModelID    string `json:"model_id"`
	PromptHash string `json:"prompt_hash"`
}

// Key returns the IR store key for this event IR.
func (e *EventIR) Key() string {
	return e.ContractID + "__" + e.EventName
}

// ParamKind is the semantic type of an endpoint parameter.
type ParamKind string

const (
	ParamString  ParamKind = "string"
	ParamInt64   ParamKind = "int64"
	ParamUint64  ParamKind = "uint64"
	ParamBool    ParamKind = "bool"
	ParamDecimal ParamKind = "decimal"
)

// Param describes one path or query parameter of an endpoint.
type Param struct {
	Name       string    `json:"name"`
	Kind       ParamKind `json:"semantic_type"`
	Optional   bool      `json:"optional"`
	Default    string    `json:"default,omitempty"`
	HasDefault bool      `json:"has_default,omitempty"`
}

// ResponseField maps one SELECT column onto a JSON key/type in the response.
type ResponseField struct {
	Column   string `json:"column"`
	JSONKey  string `json:"json_key"`
	JSONType string `json:"json_type"`
}

// EndpointIR is the immutable artifact produced by gen-endpoint for one
// HTTP surface.
type EndpointIR struct {
	EndpointPath      string          `json:"endpoint_path"`
	Method            string          `json:"method"`
	TablesReferenced  []string        `json:"tables_referenced"`
	PathParams        []Param         `json:"path_params"`
	QueryParams       []Param         `json:"query_params"`
	SQLQuery          string          `json:"sql_query"`
	ResponseShape     []ResponseField `json:"response_shape"`

	ModelID    string `json:"model_id"`
	PromptHash string `json:"prompt_hash"`
}

// AllParams returns path params followed by query params, in declaration
// order — the binding order mandated by spec.md §3/§8.
func (e *EndpointIR) AllParams() []Param {
	out := make([]Param, 0, len(e.PathParams)+len(e.QueryParams))
	out = append(out, e.PathParams...)
	out = append(out, e.QueryParams...)
	return out
}

// Slug turns an endpoint path into a filesystem-safe identifier for the
// IR store, e.g. "/api/v3/swaps/{pool}" -> "api_v3_swaps__pool_".
func Slug(endpointPath string) string {
	out := make([]rune, 0, len(endpointPath))
	for _, r := range endpointPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	s := string(out)
	for len(s) > 0 && s[0] == '_' {
		s = s[1:]
	}
	if s == "" {
		s = "root"
	}
	return s
}
