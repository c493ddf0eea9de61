package sqlparam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smorty/internal/ir"
)

func TestFromString_RequiredPresent(t *testing.T) {
	p := ir.Param{Name: "pool", Kind: ir.ParamString}
	v, err := FromString(p, "0xabc", true)
	require.NoError(t, err)
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "0xabc", v.Driver())
}

func TestFromString_MissingRequired_Errors(t *testing.T) {
	p := ir.Param{Name: "pool", Kind: ir.ParamString}
	_, err := FromString(p, "", false)
	assert.Error(t, err)
}

func TestFromString_OptionalMissing_IsNull(t *testing.T) {
	p := ir.Param{Name: "limit", Kind: ir.ParamInt64, Optional: true}
	v, err := FromString(p, "", false)
	require.NoError(t, err)
	assert.Equal(t, KindNull, v.Kind)
	assert.Nil(t, v.Driver())
}

func TestFromString_OptionalWithDefault_UsesDefaultWhenAbsent(t *testing.T) {
	p := ir.Param{Name: "limit", Kind: ir.ParamInt64, Optional: true, HasDefault: true, Default: "50"}
	v, err := FromString(p, "", false)
	require.NoError(t, err)
	assert.Equal(t, KindInt64, v.Kind)
	assert.EqualValues(t, 50, v.Int64)
}

func TestFromString_Uint64_UsesNumericNotInt64(t *testing.T) {
	p := ir.Param{Name: "big", Kind: ir.ParamUint64}
	v, err := FromString(p, "18446744073709551615", true)
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, v.Kind)
	assert.Equal(t, "18446744073709551615", v.Numeric)
}

func TestFromString_Decimal_PassesThroughVerbatim(t *testing.T) {
	p := ir.Param{Name: "amount", Kind: ir.ParamDecimal}
	v, err := FromString(p, "123.456000", true)
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, v.Kind)
	assert.Equal(t, "123.456000", v.Numeric)
}

func TestFromString_InvalidBool_Errors(t *testing.T) {
	p := ir.Param{Name: "active", Kind: ir.ParamBool}
	_, err := FromString(p, "notabool", true)
	assert.Error(t, err)
}

func TestBindAll_OrdersPathThenQueryParams(t *testing.T) {
	params := []ir.Param{
		{Name: "pool", Kind: ir.ParamString},
		{Name: "limit", Kind: ir.ParamInt64, Optional: true},
	}
	raw := map[string]string{"pool": "0xabc", "limit": "10"}
	present := map[string]bool{"pool": true, "limit": true}

	out, err := BindAll(params, raw, present)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "0xabc", out[0])
	assert.EqualValues(t, 10, out[1])
}
