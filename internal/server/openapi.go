package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/getkin/kin-openapi/openapi3"

	"smorty/internal/ir"
)

// buildOpenAPIDocument derives an OpenAPI 3 document directly from the
// loaded endpoint IRs: one path per endpoint, one parameter per
// path/query param, and a 200 response schema of {"data":[...],"count":N}
// whose row properties are the json_keys of response_shape (spec.md
// §4.6 "serve a generated OpenAPI document").
func buildOpenAPIDocument(endpoints []*ir.EndpointIR) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Smorty indexed event API",
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(),
	}

	for _, ep := range endpoints {
		op := &openapi3.Operation{
			Summary:   "Query " + ep.EndpointPath,
			Responses: openapi3.NewResponses(),
		}
		for _, p := range ep.PathParams {
			op.Parameters = append(op.Parameters, paramRef(p, "path"))
		}
		for _, p := range ep.QueryParams {
			op.Parameters = append(op.Parameters, paramRef(p, "query"))
		}
		row := openapi3.NewObjectSchema()
		for _, f := range ep.ResponseShape {
			row.WithProperty(f.JSONKey, &openapi3.Schema{})
		}
		body := openapi3.NewObjectSchema().
			WithProperty("data", openapi3.NewArraySchema().WithItems(row)).
			WithProperty("count", openapi3.NewIntegerSchema())
		op.Responses.Set("200", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("OK").WithJSONSchema(body)})

		item := &openapi3.PathItem{}
		switch strings.ToUpper(ep.Method) {
		case "", http.MethodGet:
			item.Get = op
		default:
			item.Get = op
		}
		doc.Paths.Set(ep.EndpointPath, item)
	}
	return doc, nil
}

func paramRef(p ir.Param, in string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:     p.Name,
		In:       in,
		Required: in == "path" || !p.Optional,
		Schema:   &openapi3.SchemaRef{Value: schemaForKind(p.Kind)},
	}}
}

func schemaForKind(k ir.ParamKind) *openapi3.Schema {
	switch k {
	case ir.ParamInt64, ir.ParamUint64:
		return openapi3.NewInt64Schema()
	case ir.ParamBool:
		return openapi3.NewBoolSchema()
	case ir.ParamDecimal:
		// Passed through as a verbatim string (sqlparam.FromString), so
		// the schema avoids the float precision loss a "number" type implies.
		return openapi3.NewStringSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

// swaggerUIHandler serves a minimal static page pointed at the
// generated document. The pack carries no embeddable swagger-ui asset
// package, so this loads swagger-ui-dist from a CDN rather than
// vendoring UI assets Smorty doesn't otherwise need (see DESIGN.md).
func swaggerUIHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerUIPage)
	}
}

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <title>Smorty API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({
        url: '/api-docs/openapi.json',
        dom_id: '#swagger-ui',
      })
    }
  </script>
</body>
</html>`
