// Package sqlparam implements the runtime value sum type that replaces
// dynamic dispatch when binding HTTP path/query parameters into a
// parameterized SQL query (spec.md §4.5 C9).
//
// An endpoint IR declares each parameter's semantic_type at generation
// time; sqlparam converts the string the HTTP layer receives into the
// typed driver value gorm's Raw(...).Rows() actually understands, in
// the exact positional order the endpoint IR's params appear.
package sqlparam

import (
	"fmt"
	"strconv"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// Kind identifies which arm of the Value sum type is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindNumeric
	KindText
	KindBytes
)

// Value is the sum type: exactly one field is meaningful, selected by Kind.
// Using a closed sum type here (rather than passing bare interface{} to
// the driver) keeps every bind site exhaustive over the semantic types
// spec.md §4.3 allows, instead of re-deriving Go's dynamic-dispatch
// type switch at every call site.
type Value struct {
	Kind    Kind
	Bool    bool
	Int64   int64
	Numeric string // decimal, passed through verbatim so precision never round-trips through float64
	Text    string
	Bytes   []byte
}

// Driver returns the value gorm's Raw(...) should bind for this
// placeholder's position.
func (v Value) Driver() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt64:
		return v.Int64
	case KindNumeric:
		return v.Numeric
	case KindText:
		return v.Text
	case KindBytes:
		return v.Bytes
	default:
		return nil
	}
}

// FromString converts a raw HTTP string (path segment or query value)
// into a Value per the endpoint param's declared semantic_type. An
// absent param takes its default if it has one; otherwise an optional
// param yields KindNull and a required one a RequestError, which the
// server turns into a 400. A present but empty value for an optional
// param also yields KindNull.
func FromString(p ir.Param, raw string, present bool) (Value, error) {
	if !present {
		if p.HasDefault {
			raw = p.Default
		} else if p.Optional {
			return Value{Kind: KindNull}, nil
		} else {
			return Value{}, apperr.New(apperr.KindRequest, "missing required parameter "+p.Name)
		}
	}
	if raw == "" && p.Optional {
		return Value{Kind: KindNull}, nil
	}

	switch p.Kind {
	case ir.ParamString:
		return Value{Kind: KindText, Text: raw}, nil
	case ir.ParamBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, apperr.Wrap(apperr.KindRequest, "parameter "+p.Name+" is not a bool", err)
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case ir.ParamInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, apperr.Wrap(apperr.KindRequest, "parameter "+p.Name+" is not an int64", err)
		}
		return Value{Kind: KindInt64, Int64: n}, nil
	case ir.ParamUint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Value{}, apperr.Wrap(apperr.KindRequest, "parameter "+p.Name+" is not a uint64", err)
		}
		// Numeric (not Int64): uint64 values above math.MaxInt64 must
		// survive the bind, and NUMERIC text representation is exact.
		return Value{Kind: KindNumeric, Numeric: strconv.FormatUint(n, 10)}, nil
	case ir.ParamDecimal:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return Value{}, apperr.Wrap(apperr.KindRequest, "parameter "+p.Name+" is not a decimal", err)
		}
		return Value{Kind: KindNumeric, Numeric: raw}, nil
	default:
		return Value{}, apperr.New(apperr.KindInternal, fmt.Sprintf("unknown parameter kind %q for %s", p.Kind, p.Name))
	}
}

// BindAll converts raw values for every declared parameter, in
// path-params-then-query-params order, into the driver argument slice
// gorm's Raw(...) expects positionally.
func BindAll(params []ir.Param, raw map[string]string, present map[string]bool) ([]interface{}, error) {
	out := make([]interface{}, 0, len(params))
	for _, p := range params {
		v, err := FromString(p, raw[p.Name], present[p.Name])
		if err != nil {
			return nil, err
		}
		out = append(out, v.Driver())
	}
	return out, nil
}
