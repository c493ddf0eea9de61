package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smorty/internal/ir"
)

func TestBuildOpenAPIDocument_OnePathPerEndpoint(t *testing.T) {
	endpoints := []*ir.EndpointIR{
		{
			EndpointPath: "/transfers/{contract}",
			Method:       "GET",
			PathParams:   []ir.Param{{Name: "contract", Kind: ir.ParamString}},
			QueryParams:  []ir.Param{{Name: "min_value", Kind: ir.ParamDecimal, Optional: true}},
		},
		{
			EndpointPath: "/swaps",
			Method:       "GET",
		},
	}

	doc, err := buildOpenAPIDocument(endpoints)
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/transfers/{contract}"))
	assert.NotNil(t, doc.Paths.Find("/swaps"))

	item := doc.Paths.Find("/transfers/{contract}")
	require.NotNil(t, item.Get)
	assert.Len(t, item.Get.Parameters, 2)
}

func TestSchemaForKind_ReturnsNonNilSchemaForEveryKind(t *testing.T) {
	for _, k := range []ir.ParamKind{ir.ParamString, ir.ParamInt64, ir.ParamUint64, ir.ParamBool, ir.ParamDecimal} {
		assert.NotNil(t, schemaForKind(k))
	}
}
