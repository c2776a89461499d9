package router

import (
	"time"

	"cajacancha/internal/config"
	"cajacancha/internal/handler"
	"cajacancha/internal/middleware"
	"cajacancha/internal/repository"
	"cajacancha/internal/service"
	"cajacancha/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	pagoRepo := repository.NewPagoRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	locker := redislock.New(rdb)

	authSvc := service.NewAuthService(usuarioRepo, cfg)
	cajaSvc := service.NewCajaService(cajaRepo, dispatcher, rdb, cfg.PDFStoragePath, cfg.VenueName)
	movSvc := service.NewMovimientoService(cajaRepo)
	pagoSvc := service.NewPagoService(pagoRepo, movSvc, cajaSvc, locker, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	cajaH := handler.NewCajaHandler(cajaSvc, movSvc)
	pagosH := handler.NewPagosHandler(pagoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	operativos := middleware.RequireRole("cajero", "supervisor", "administrador")
	supervision := middleware.RequireRole("supervisor", "administrador")
	v1 := r.Group("/v1", jwtMW)
	{
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", operativos, cajaH.Abrir)
			caja.POST("/cerrar", operativos, cajaH.Cerrar)
			caja.GET("/activa", operativos, cajaH.Activa)
			caja.GET("/:id/reporte", operativos, cajaH.Reporte)
			caja.GET("/:id/reporte-pdf", supervision, cajaH.ReportePDF)
			caja.GET("/:id/movimientos", operativos, cajaH.ListarMovimientos)
			caja.GET("/historial", supervision, cajaH.Historial)
			caja.POST("/movimientos", operativos, cajaH.RegistrarMovimiento)
			// Void requires supervision: the cashier asks, a supervisor keys it in.
			caja.POST("/movimientos/:id/anular", supervision, cajaH.AnularMovimiento)
		}

		pagos := v1.Group("/pagos")
		{
			pagos.POST("", operativos, pagosH.Crear)
			pagos.GET("", operativos, pagosH.Listar)
			pagos.GET("/:id", operativos, pagosH.Obtener)
			pagos.POST("/:id/transacciones", operativos, pagosH.RegistrarTransaccion)
			pagos.POST("/transacciones/:id/anular", supervision, pagosH.AnularTransaccion)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
