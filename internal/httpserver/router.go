package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/payment"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/service/admin"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/watermark"
)

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	UpdatePrice(ctx context.Context, name string, price int64) error
	UpdatePrices(ctx context.Context, updates []productrepo.PriceUpdate) error
	Upload(ctx context.Context, text string) ([]domain.UploadedProduct, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type CartService interface {
	Lines(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Add(ctx context.Context, sessionID, productName string) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, sessionID, productName string, quantity int) ([]domain.CartLine, error)
	Remove(ctx context.Context, sessionID, productName string) ([]domain.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
	Priced(ctx context.Context, sessionID string) ([]domain.CartLine, domain.Reconciliation, error)
}

type OrderService interface {
	Checkout(ctx context.Context, sessionID string, in ordersvc.CheckoutInput) (*ordersvc.CheckoutResult, error)
	Get(ctx context.Context, id int64) (*ordersvc.OrderView, error)
	PickupNote(ctx context.Context, id int64) (string, error)
	AdminFeed(ctx context.Context) (*ordersvc.Feed, error)
	MarkSeen(ctx context.Context) (*watermark.Watermark, error)
	ClearWatermark(ctx context.Context)
	PaymentIntent(payeeID string, amount int64) (payment.Intent, error)
	Directory() payment.Directory
}

type TokenValidator interface {
	Validate(token string) (*admin.Claims, error)
}

// Deps carries the services behind the routes.
type Deps struct {
	ProductSvc  ProductService
	CategorySvc CategoryService
	CartSvc     CartService
	OrderSvc    OrderService
	Tokens      TokenValidator

	CORSAllowOrigins      []string
	CheckoutRatePerMinute int
}

type handlers struct {
	logger     *log.Logger
	products   ProductService
	categories CategoryService
	carts      CartService
	orders     OrderService
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.ProductSvc == nil || deps.CategorySvc == nil || deps.CartSvc == nil || deps.OrderSvc == nil || deps.Tokens == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", cartSessionHeader},
		ExposeHeaders:    []string{cartSessionHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = deps.CORSAllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	h := &handlers{
		logger:     logger,
		products:   deps.ProductSvc,
		categories: deps.CategorySvc,
		carts:      deps.CartSvc,
		orders:     deps.OrderSvc,
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.GET("/products", h.listProducts)
	router.GET("/categories", h.listCategories)
	router.GET("/payment/config", h.paymentConfig)
	router.GET("/payment/intent", h.paymentIntent)
	router.GET("/payment/qr.png", h.paymentQR)
	router.GET("/orders/:id", h.getOrder)

	cart := router.Group("/cart", cartSession())
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.GET("/priced", h.pricedCart)
	cart.POST("/items", h.addCartItem)
	cart.PATCH("/items/:name", h.updateCartItem)
	cart.DELETE("/items/:name", h.removeCartItem)

	limiter := newClientLimiter(deps.CheckoutRatePerMinute, time.Now)
	router.POST("/checkout", rateLimit(limiter), cartSession(), h.checkout)

	adminGroup := router.Group("/admin", requireAdmin(deps.Tokens, logger))
	adminGroup.GET("/orders", h.adminOrders)
	adminGroup.POST("/orders/seen", h.markOrdersSeen)
	adminGroup.DELETE("/orders/seen", h.clearOrdersSeen)
	adminGroup.GET("/orders/:id/pickup-note", h.pickupNote)
	adminGroup.PUT("/products/prices", h.updatePrices)
	adminGroup.PUT("/products/:name/price", h.updatePrice)
	adminGroup.POST("/products/upload", h.uploadProducts)

	return router, nil
}
