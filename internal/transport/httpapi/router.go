// Package httpapi - HTTP/JSON-интерфейс RyujinBites на gin.
package httpapi

import (
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/catalog"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/order"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/review"
)

// Services - прикладные сервисы, которые обслуживает API.
type Services struct {
	Orders   *order.Service
	Reviews  *review.Service
	Catalog  *catalog.Service
	Coupons  *coupon.Service
	Accounts *identity.Accounts
	// Idempotency может быть nil: тогда заголовок Idempotency-Key игнорируется.
	Idempotency *idempotency.Guard
}

// Config - настройки роутера.
type Config struct {
	// AllowedOrigins - разрешённые CORS-источники. Пустой список или "*" разрешает все.
	AllowedOrigins []string
}

// Option настраивает роутер.
type Option func(*options)

type options struct {
	logger  *log.Entry
	metrics *metrics.Metrics
	now     func() time.Time
}

// WithLogger задаёт логгер для access-лога и ошибок.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics включает HTTP-метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock подменяет часы (проверка купонов).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

var registerTagNames sync.Once

// NewRouter собирает gin.Engine со всеми маршрутами /api/v1.
func NewRouter(svc Services, cfg Config, opts ...Option) *gin.Engine {
	o := options{
		logger: log.WithField("component", "http"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}

	gin.SetMode(gin.ReleaseMode)
	useJSONFieldNames()

	h := &handler{
		orders:   svc.Orders,
		reviews:  svc.Reviews,
		catalog:  svc.Catalog,
		coupons:  svc.Coupons,
		accounts: svc.Accounts,
		logger:   o.logger,
		now:      o.now,
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(o.logger), requestLogger(o.logger))
	if o.metrics != nil {
		r.Use(o.metrics.GinMiddleware())
	}
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)), actorMiddleware())

	idem := idempotent(svc.Idempotency, o.logger)
	api := r.Group("/api/v1")

	orders := api.Group("/orders")
	{
		orders.POST("", idem, h.createOrder)
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id", h.editOrder)
		orders.DELETE("/:id", h.deleteOrder)
		orders.PATCH("/:id/status", h.updateOrderStatus)
		orders.GET("/:id/timeline", h.orderTimeline)
		orders.POST("/:id/payment", idem, h.recordPayment)
		orders.GET("/:id/payment", h.getPayment)
		orders.PATCH("/:id/payment/status", h.updatePaymentStatus)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("", h.listReviews)
		reviews.POST("", h.createReview)
		reviews.GET("/reported", h.listReportedReviews)
		reviews.GET("/:id", h.getReview)
		reviews.PUT("/:id", h.editReview)
		reviews.DELETE("/:id", h.deleteReview)
		reviews.POST("/:id/report", h.reportReview)
		reviews.POST("/:id/resolve", h.resolveReview)
		reviews.PATCH("/:id/status", h.setReviewStatus)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.POST("", h.createCategory)
		categories.GET("/:id", h.getCategory)
		categories.PUT("/:id", h.updateCategory)
		categories.DELETE("/:id", h.deleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", h.listProducts)
		products.POST("", h.createProduct)
		products.GET("/:id", h.getProduct)
		products.PUT("/:id", h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)
		products.GET("/:id/reviews", h.listProductReviews)
	}

	coupons := api.Group("/coupons")
	{
		coupons.GET("", h.listCoupons)
		coupons.POST("", h.createCoupon)
		coupons.GET("/check/:code", h.checkCoupon)
		coupons.GET("/:id", h.getCoupon)
		coupons.PUT("/:id", h.updateCoupon)
		coupons.DELETE("/:id", h.deleteCoupon)
	}

	api.POST("/register", h.register)

	users := api.Group("/users")
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.GET("/:id", h.getUser)
		users.PUT("/:id", h.editUser)
		users.DELETE("/:id", h.deleteUser)
	}

	customers := api.Group("/customers")
	{
		customers.GET("", h.listCustomers)
		customers.GET("/:id/orders", h.listCustomerOrders)
		customers.GET("/:id/profile", h.getProfile)
		customers.PUT("/:id/profile", h.updateProfile)
	}

	administrators := api.Group("/administrators")
	{
		administrators.GET("", h.listAdministrators)
		administrators.GET("/:id", h.getAdministrator)
		administrators.PUT("/:id", h.updateAdministrator)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderUserID, HeaderUserRoles, HeaderIdempotencyKey},
		ExposeHeaders: []string{"Content-Length", HeaderReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// useJSONFieldNames заставляет валидатор gin называть поля по json-тегам.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
