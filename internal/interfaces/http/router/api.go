package router

import (
	"github.com/garage/backoffice/internal/infrastructure/auth"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/garage/backoffice/internal/infrastructure/logger"
	"github.com/garage/backoffice/internal/interfaces/http/handler"
	"github.com/garage/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPath is served outside the versioned API and without authentication
const HealthPath = "/health"

// Dependencies are the collaborators the HTTP API is built from
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Quotes    handler.QuoteService
	Invoicing handler.InvoicingService
	Verifier  middleware.TokenVerifier
	// Revocations is optional
	Revocations auth.RevocationList
	// Meter is nil when metrics are disabled
	Meter metric.Meter
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter  *middleware.RateLimiter
	HealthChecks map[string]handler.HealthCheck
	Version      string
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	middleware.SetupValidator()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.App.Name, cfg.Telemetry.Enabled),
		logger.GinMiddleware(log, HealthPath),
		middleware.Secure(cfg.App.Env == "production"),
		middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(deps.Meter, log),
	)

	health := handler.NewHealthHandler(deps.Version, deps.HealthChecks)
	engine.GET(HealthPath, health.Health)

	apiMiddleware := []gin.HandlerFunc{
		middleware.Identity(middleware.IdentityConfig{
			Verifier:        deps.Verifier,
			Revocations:     deps.Revocations,
			AllowDevHeaders: cfg.JWT.AllowDevHeaders,
			Logger:          log,
		}),
		middleware.SpanEnricher(),
	}
	if deps.RateLimiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(deps.RateLimiter))
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithAPIMiddleware(apiMiddleware...))
	r.Register(quoteRoutes(handler.NewQuoteHandler(deps.Quotes), handler.NewInvoiceHandler(deps.Invoicing)))
	r.Register(invoiceRoutes(handler.NewInvoiceHandler(deps.Invoicing)))
	r.Register(creditNoteRoutes(handler.NewCreditNoteHandler(deps.Invoicing)))
	r.Setup()

	return engine
}

func quoteRoutes(quotes *handler.QuoteHandler, invoices *handler.InvoiceHandler) *DomainGroup {
	return NewDomainGroup("quotes", "/quotes").
		POST("", quotes.Create).
		GET("", quotes.List).
		GET("/:id", quotes.GetByID).
		PUT("/:id", quotes.Update).
		DELETE("/:id", quotes.Delete).
		POST("/:id/status", quotes.ChangeStatus).
		POST("/:id/dispatch-acknowledgements", quotes.AcknowledgeDispatch).
		POST("/:id/invoice", invoices.EnsureInvoice)
}

func invoiceRoutes(invoices *handler.InvoiceHandler) *DomainGroup {
	return NewDomainGroup("invoices", "/invoices").
		GET("", invoices.List).
		GET("/statistics", invoices.Statistics).
		GET("/:id", invoices.GetByID).
		POST("/:id/payments", invoices.RecordPayment).
		POST("/:id/cancel", invoices.Cancel)
}

func creditNoteRoutes(creditNotes *handler.CreditNoteHandler) *DomainGroup {
	return NewDomainGroup("credit-notes", "/credit-notes").
		GET("", creditNotes.List).
		GET("/:id", creditNotes.GetByID)
}
