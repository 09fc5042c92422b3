// Package router assembles the gin engine of the admin API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/infrastructure/auth"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/interfaces/http/handler"
	"github.com/erp/prestashop-connector/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware adds middleware to the versioned API group
func WithAPIMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/"+r.apiVersion, r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Config configures the admin API engine
type Config struct {
	ServiceName      string
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	Tracing          bool
	TracerProvider   trace.TracerProvider
}

// Handlers are the endpoint handlers of the admin API
type Handlers struct {
	System  *handler.SystemHandler
	Backend *handler.BackendHandler
	Action  *handler.ActionHandler
	Sync    *handler.SyncHandler
}

// New builds the admin API engine. Read endpoints require the read scope,
// every other endpoint the admin scope. A nil tokens validator disables
// authentication.
func New(cfg Config, log *zap.Logger, tokens middleware.TokenValidator, h Handlers) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.Tracing,
			TracerProvider: cfg.TracerProvider,
		}),
		middleware.SpanErrorMarker(),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)

	apiMiddleware := []gin.HandlerFunc{middleware.TracingAttributeInjector()}
	read, admin := passthrough, passthrough
	if tokens != nil {
		jwtConfig := middleware.DefaultJWTConfig(tokens)
		jwtConfig.Logger = log
		apiMiddleware = append([]gin.HandlerFunc{middleware.JWTAuthMiddlewareWithConfig(jwtConfig)}, apiMiddleware...)
		read = middleware.RequireScope(auth.ScopeRead)
		admin = middleware.RequireScope(auth.ScopeAdmin)
	} else {
		log.Warn("admin API authentication is disabled")
	}
	r := NewRouter(engine, WithAPIMiddleware(apiMiddleware...))

	r.Register(NewDomainGroup("system", "/system").
		GET("/info", read, h.System.GetSystemInfo))

	r.Register(NewDomainGroup("backends", "/backends").
		GET("", read, h.Backend.List).
		POST("", admin, h.Backend.Create).
		GET("/:id", read, h.Backend.Get).
		PUT("/:id", admin, h.Backend.Update).
		DELETE("/:id", admin, h.Backend.Delete).
		PUT("/:id/languages", admin, h.Backend.UpdateLanguages).
		GET("/:id/bindings", read, h.Sync.ListBindings).
		GET("/:id/checkpoints", read, h.Sync.ListCheckpoints))

	r.Register(NewDomainGroup("actions", "/backends/:id").
		Use(admin).
		POST("/check-connection", h.Action.CheckConnection).
		POST("/synchronize-metadata", h.Action.SynchronizeMetadata).
		POST("/synchronize-basedata", h.Action.SynchronizeBaseData).
		POST("/import-customers", h.Action.ImportCustomers).
		POST("/import-products", h.Action.ImportProducts).
		POST("/import-orders", h.Action.ImportOrders).
		POST("/import-carts", h.Action.ImportCarts).
		POST("/import-carriers", h.Action.ImportCarriers).
		POST("/import-stock", h.Action.ImportStock).
		POST("/export-stock", h.Action.ExportStock).
		POST("/import-record", h.Action.ImportRecord))

	r.Register(NewDomainGroup("checkpoints", "/checkpoints").
		POST("/:id/review", admin, h.Sync.ReviewCheckpoint))

	r.Register(NewDomainGroup("jobs", "/jobs").
		GET("", read, h.Sync.ListJobs).
		GET("/:id", read, h.Sync.GetJob).
		POST("/:id/requeue", admin, h.Sync.RequeueJob))

	r.Setup()
	return engine, nil
}

func passthrough(c *gin.Context) {
	c.Next()
}
