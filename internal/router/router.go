package router

import (
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/config"
	"github.com/sachero10/backend-tienda-ropa/internal/handler"
	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/middleware"
	"github.com/sachero10/backend-tienda-ropa/internal/model"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"
	"github.com/sachero10/backend-tienda-ropa/internal/service"
	"github.com/sachero10/backend-tienda-ropa/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: sales then commit without post-commit jobs and the
// rate limiters fall back to in-process counters.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rdb, "global", 1000, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	var dispatcher service.SaleJobDispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
	}
	ledger := service.NewStockLedger(variantRepo, movementRepo)

	authSvc := service.NewAuthService(userRepo, cfg)
	productSvc := service.NewProductService(productRepo)
	inventorySvc := service.NewInventoryService(variantRepo, movementRepo, ledger, cfg.LowStockThreshold)
	saleSvc := service.NewSaleService(saleRepo, ledger, dispatcher, service.SaleOptions{
		Timeout:    cfg.SaleTxTimeout(),
		MaxRetries: cfg.SaleTxMaxRetries,
	})
	reportSvc := service.NewReportService(saleRepo, rdb, cfg.Currency, cfg.StoreName)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc, inventorySvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	salesH := handler.NewSalesHandler(saleSvc, reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailer))

	authLimiter := middleware.RateLimiter(rdb, "auth", 5, time.Minute)
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authLimiter, authH.Register)
		auth.POST("/login", authLimiter, authH.Login)
	}

	// Protected routes
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleSeller)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	api := r.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	{
		sales := api.Group("/sales", anyRole)
		{
			sales.POST("", salesH.CreateSale)
			sales.GET("", salesH.ListSales)
			sales.GET("/report", salesH.Report)
			sales.GET("/report/export", salesH.ExportReport)
			sales.GET("/:id", salesH.GetSale)
			sales.GET("/:id/receipt", salesH.Receipt)
		}

		api.GET("/dashboard/stats", anyRole, salesH.DashboardStats)

		inv := api.Group("/inventory", anyRole)
		{
			inv.GET("/low-stock", inventoryH.LowStock)
			inv.GET("/movements", inventoryH.Movements)
		}

		// Catalog reads are open to every role; writes are admin only.
		api.GET("/products", anyRole, productsH.List)
		api.GET("/products/:id", anyRole, productsH.Get)
		prods := api.Group("/products", adminOnly)
		{
			prods.POST("", productsH.Create)
			prods.PATCH("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Delete)
			prods.PATCH("/:id/restore", productsH.Restore)
			prods.PATCH("/variants/:id/stock", productsH.AdjustStock)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
