// Package server implements C9, the dynamic HTTP server: routes built
// at startup from loaded endpoint IRs, each executing its fixed
// sql_query against bound request parameters (spec.md §4.6).
//
// Engine construction and CORS are grounded on the teacher's
// routes.SetupMainRouter (routes/routes.go); auth middleware is
// dropped since every Smorty endpoint is a public, read-only query
// surface with no wallet/session concept of its own.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smorty/internal/ir"
)

// Options configures the engine built by New.
type Options struct {
	RequestTimeout   time.Duration // default 30s
	RateLimitPerIP   int           // default 100 requests
	RateLimitWindow  time.Duration // default 15m
	AllowOrigins     []string      // default ["*"]
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.RateLimitPerIP == 0 {
		o.RateLimitPerIP = 100
	}
	if o.RateLimitWindow == 0 {
		o.RateLimitWindow = 15 * time.Minute
	}
	if len(o.AllowOrigins) == 0 {
		o.AllowOrigins = []string{"*"}
	}
	return o
}

// New builds the gin engine serving every loaded endpoint plus the
// fixed operational routes (health, landing page, Swagger UI, OpenAPI
// document).
func New(db *gorm.DB, endpoints []*ir.EndpointIR, opts Options, log *zap.SugaredLogger) *gin.Engine {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationMiddleware())
	r.Use(requestTimeoutMiddleware(opts.RequestTimeout))
	r.Use(rateLimitMiddleware(opts.RateLimitPerIP, opts.RateLimitWindow))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "smorty", "endpoints": len(endpoints)})
	})
	r.GET("/", landingHandler(endpoints))

	doc, err := buildOpenAPIDocument(endpoints)
	if err != nil {
		log.Warnw("failed to build openapi document", "error", err)
	} else {
		r.GET("/api-docs/openapi.json", func(c *gin.Context) {
			c.JSON(http.StatusOK, doc)
		})
		r.GET("/swagger-ui/*any", swaggerUIHandler())
	}

	for _, ep := range endpoints {
		h := newEndpointHandler(db, ep, log)
		method := ep.Method
		if method == "" {
			method = http.MethodGet
		}
		r.Handle(method, ep.EndpointPath, h.handle)
	}

	return r
}

func landingHandler(endpoints []*ir.EndpointIR) gin.HandlerFunc {
	paths := make([]string, len(endpoints))
	for i, ep := range endpoints {
		paths[i] = ep.EndpointPath
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "smorty",
			"docs":      "/swagger-ui/",
			"endpoints": paths,
		})
	}
}
