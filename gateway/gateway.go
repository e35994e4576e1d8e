package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "github.com/example/shopcore/docs"
	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/metrics"
	"github.com/example/shopcore/pkg/models"
	"github.com/example/shopcore/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// ShopAPI is the orchestration surface the handlers call.
type ShopAPI interface {
	Health(ctx context.Context) (*service.Health, error)
	CreateOrder(ctx context.Context, userID int64, items []models.NewOrderItem) (*models.Order, error)
	PayOrder(ctx context.Context, orderID int64, amount *decimal.Decimal, provider string) (*models.Payment, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	CreateReview(ctx context.Context, in service.ReviewInput) (primitive.ObjectID, error)
	ProductSummary(ctx context.Context, productID int64, rp models.ReadPreference) (*models.ProductSummary, error)
	ProductReviews(ctx context.Context, productID int64, rp models.ReadPreference, limit int64) ([]*models.Review, error)
	StepDown(ctx context.Context, seconds int) (int, error)
}

type Gateway struct {
	config  *config.Config
	shop    ShopAPI
	metrics *metrics.ServerMetrics
	logger  *zap.Logger
	router  *gin.Engine
	server  *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, shop ShopAPI, m *metrics.ServerMetrics) *Gateway {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))
	if m != nil {
		router.Use(m.Middleware())
	}

	return &Gateway{
		config:  cfg,
		shop:    shop,
		metrics: m,
		logger:  logger,
		router:  router,
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)

	orders := g.router.Group("/orders")
	{
		orders.POST("", g.createOrder)
		orders.GET("/:id", g.getOrder)
		orders.POST("/:id/pay", g.payOrder)
	}

	g.router.POST("/reviews", g.createReview)

	products := g.router.Group("/products")
	{
		products.GET("/:id/summary", g.productSummary)
		products.GET("/:id/reviews", g.productReviews)
	}

	g.router.POST("/admin/stepdown", g.stepDown)

	if g.metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.metrics.Handler()))
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := g.config.Server.HTTPAddr()
	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.router,
		ReadTimeout:  g.config.Server.ReadTimeout,
		WriteTimeout: g.config.Server.WriteTimeout,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
