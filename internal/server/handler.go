package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smorty/internal/ir"
	"smorty/internal/sqlparam"
)

// endpointHandler binds one EndpointIR to a gin route. Built once at
// startup by New, it executes the IR's fixed sql_query on
// every request with parameters bound in path-then-query order (spec.md
// §4.6 steps 1-3).
type endpointHandler struct {
	db       *gorm.DB
	endpoint *ir.EndpointIR
	log      *zap.SugaredLogger
}

func newEndpointHandler(db *gorm.DB, endpoint *ir.EndpointIR, log *zap.SugaredLogger) *endpointHandler {
	return &endpointHandler{db: db, endpoint: endpoint, log: log}
}

func (h *endpointHandler) handle(c *gin.Context) {
	params := h.endpoint.AllParams()
	raw := make(map[string]string, len(params))
	present := make(map[string]bool, len(params))

	for _, p := range h.endpoint.PathParams {
		v, ok := c.Params.Get(p.Name)
		raw[p.Name] = v
		present[p.Name] = ok
	}
	for _, p := range h.endpoint.QueryParams {
		v, ok := c.GetQuery(p.Name)
		raw[p.Name] = v
		present[p.Name] = ok
	}

	args, err := sqlparam.BindAll(params, raw, present)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.db.WithContext(c.Request.Context()).Raw(h.endpoint.SQLQuery, args...).Rows()
	if err != nil {
		h.fail(c, "execute query", err)
		return
	}
	defer rows.Close()

	data, err := scanRows(rows, h.endpoint.ResponseShape)
	if err != nil {
		h.fail(c, "scan query result", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

// fail returns an opaque 500 and logs the real cause under the
// request's correlation id (set by correlationMiddleware), so a client
// never sees internal SQL or driver detail in the response body.
func (h *endpointHandler) fail(c *gin.Context, action string, err error) {
	correlationID, _ := c.Get(correlationIDKey)
	h.log.Errorw("endpoint request failed",
		"correlation_id", correlationID, "path", h.endpoint.EndpointPath, "action", action, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          "internal error",
		"correlation_id": correlationID,
	})
}
