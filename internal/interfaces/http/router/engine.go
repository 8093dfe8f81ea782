package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nursery/backend/internal/infrastructure/logger"
	"github.com/nursery/backend/internal/interfaces/http/dto"
	"github.com/nursery/backend/internal/interfaces/http/handler"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers of the nursery API
type Handlers struct {
	Zone       *handler.ZoneHandler
	Unit       *handler.UnitHandler
	Rollup     *handler.RollupHandler
	Allocation *handler.AllocationHandler
	Health     *handler.HealthHandler
}

// Options configures the middleware chain
type Options struct {
	Logger      *zap.Logger
	ServiceName string
	Tracing     bool
	Profiling   bool
	CORSOrigins []string
	MaxBodySize int64

	// Meter enables HTTP request metrics when set
	Meter metric.Meter

	// Verifier switches actor resolution from headers to bearer tokens
	Verifier middleware.TokenVerifier
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(h Handlers, opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(opts.ServiceName, opts.Tracing),
		middleware.Profiling(opts.Profiling),
	)
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}

	r := NewRouter(engine)
	healthPath := r.BasePath() + "/health"

	engine.Use(
		middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins)),
		middleware.Secure(),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}
	engine.Use(
		middleware.Authenticate(middleware.AuthConfig{
			Verifier:  opts.Verifier,
			SkipPaths: []string{healthPath, "/health"},
			Logger:    log,
		}),
		middleware.SpanEnricher(),
	)

	engine.GET("/health", h.Health.Health)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	r.Register(
		NewDomainGroup("health", "/health").GET("", h.Health.Health),
		zoneRoutes(h.Zone),
		unitRoutes(h.Unit),
		NewDomainGroup("rollup", "/rollup").GET("", h.Rollup.Get),
		allocationRoutes(h.Allocation),
	)
	r.Setup()
	return engine, nil
}

func zoneRoutes(h *handler.ZoneHandler) *DomainGroup {
	return NewDomainGroup("zones", "/zones").
		POST("", h.Create).
		GET("", h.List).
		PUT("/:id/plantings", h.SetPlanting)
}

func unitRoutes(h *handler.UnitHandler) *DomainGroup {
	return NewDomainGroup("units", "/units").
		POST("", h.Tag).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("/:id/transition", h.Transition).
		PATCH("/:id/classification", h.Reclassify).
		POST("/:id/relocate", h.Relocate).
		GET("/:id/timeline", h.Timeline).
		GET("/:id/verify", h.Verify)
}

func allocationRoutes(h *handler.AllocationHandler) *DomainGroup {
	return NewDomainGroup("allocations", "/allocations").
		POST("", h.Allocate).
		POST("/units", h.AllocateUnit).
		POST("/expire", h.Expire).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("/:id/bind", h.Bind).
		POST("/:id/release", h.Release)
}
