package httpserver

import (
	"context"
	"errors"
	"log"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/mcp"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type checkoutService interface {
	Create(ctx context.Context, in checkoutsvc.CreateInput) (*domain.CheckoutSession, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, id string, in checkoutsvc.UpdateInput) (*domain.CheckoutSession, error)
	Cancel(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Complete(ctx context.Context, id, paymentToken string) (*checkoutsvc.CompleteResult, error)
	DelegatePayment(ctx context.Context, card payment.CardDetails) (string, error)
}

type productService interface {
	GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error)
	Search(ctx context.Context, in productsvc.SearchInput) ([]domain.Product, error)
}

type orderService interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	Events(ctx context.Context, id string) ([]domain.OrderEvent, error)
	UpdateStatus(ctx context.Context, id, status string, trackingNumber *string) (*domain.Order, error)
}

type rpcHandler interface {
	Handle(ctx context.Context, req mcp.Request) *mcp.Response
}

// Links are the merchant policy URLs echoed on every session.
type Links struct {
	TermsOfService string `json:"terms_of_service"`
	PrivacyPolicy  string `json:"privacy_policy"`
}

// Deps aggregates services needed by handlers.
type Deps struct {
	CheckoutSvc    checkoutService
	ProductSvc     productService
	OrderSvc       orderService
	MCP            rpcHandler
	Links          Links
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, pool *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CheckoutSvc == nil || deps.ProductSvc == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: checkout, product and order services are required")
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), corsMiddleware(deps.AllowedOrigins), traceRequests())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(pool))

	h := &acpHandlers{checkout: deps.CheckoutSvc, products: deps.ProductSvc, orders: deps.OrderSvc, links: deps.Links, logger: logger}
	acp := router.Group("/acp/v1")
	{
		acp.POST("/checkout_sessions", h.createSession)
		acp.POST("/checkout_sessions/:id", h.updateSession)
		acp.GET("/checkout_sessions/:id", h.getSession)
		acp.POST("/checkout_sessions/:id/complete", h.completeSession)
		acp.POST("/checkout_sessions/:id/cancel", h.cancelSession)
		acp.POST("/delegate_payment", h.delegatePayment)

		acp.GET("/products", h.searchProducts)
		acp.GET("/products/:gtin", h.getProduct)

		acp.GET("/orders/:id", h.getOrder)
		acp.GET("/orders/:id/events", h.orderEvents)
		acp.POST("/orders/:id/status", h.updateOrderStatus)
	}

	if deps.MCP != nil {
		router.POST("/mcp", mcpHandler(deps.MCP))
		router.POST("/mcp/", mcpHandler(deps.MCP))
	}

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
