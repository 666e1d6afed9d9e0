package router

import (
	"clinicapos/internal/config"
	"clinicapos/internal/handler"
	"clinicapos/internal/infra"
	"clinicapos/internal/middleware"
	"clinicapos/internal/model"
	"clinicapos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
)

// Services is everything the HTTP layer calls into. Built by the composition
// root in cmd/server.
type Services struct {
	Auth     service.AuthService
	Turnos   service.TurnoService
	Ventas   service.VentaService
	Banco    service.BancoService
	Medicos  service.MedicoService
	Comision service.ComisionService
	Reportes service.ReporteService
}

// Infra carries the probes and exporters mounted outside /v1.
type Infra struct {
	Checks       map[string]handler.Check
	BreakerState func() string
	Metrics      *infra.Metrics
	DLQ          gin.HandlerFunc
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, svc Services, inf Infra) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(inf.Metrics))
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())

	authH := handler.NewAuthHandler(svc.Auth)
	usuariosH := handler.NewUsuariosHandler(svc.Auth)
	turnosH := handler.NewTurnosHandler(svc.Turnos)
	ventasH := handler.NewVentasHandler(svc.Ventas)
	bancoH := handler.NewBancoHandler(svc.Banco)
	medicosH := handler.NewMedicosHandler(svc.Medicos)
	comisionesH := handler.NewComisionesHandler(svc.Comision)
	reportesH := handler.NewReportesHandler(svc.Reportes)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(inf.Checks, inf.BreakerState))
	if inf.Metrics != nil {
		r.GET("/metrics", gin.WrapH(inf.Metrics.Handler()))
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	todos := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
	gerencia := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)
	admin := middleware.RequireRole(model.RolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/auth/me", todos, authH.Me)

		turnos := v1.Group("/turnos", todos)
		{
			turnos.POST("", turnosH.Abrir)
			turnos.GET("/activo", turnosH.Activo)
			turnos.POST("/cuadre", turnosH.Cuadre)
			turnos.POST("/cerrar", turnosH.Cerrar)
			turnos.POST("/gastos", turnosH.RegistrarGasto)
			turnos.POST("/vouchers", turnosH.RegistrarVoucher)
			turnos.POST("/transferencias", turnosH.RegistrarTransferencia)
			turnos.POST("/depositos", turnosH.RegistrarDeposito)
			turnos.GET("/:id", turnosH.Obtener)
			turnos.POST("/:id/cerrar", turnosH.CerrarPorID)
		}
		v1.GET("/turnos", gerencia, turnosH.Listar)

		ventas := v1.Group("/ventas", todos)
		{
			ventas.POST("", ventasH.RegistrarVenta)
			ventas.GET("", ventasH.ListarVentas)
			ventas.GET("/:id", ventasH.ObtenerVenta)
		}
		v1.DELETE("/ventas/:id", gerencia, ventasH.AnularVenta)

		v1.GET("/medicos", todos, medicosH.Listar)
		v1.GET("/medicos/:id", todos, medicosH.Obtener)
		v1.POST("/medicos", admin, medicosH.Crear)
		v1.GET("/medicos/:id/comisiones", gerencia, comisionesH.Agrupar)

		comisiones := v1.Group("/comisiones", gerencia)
		{
			comisiones.GET("/pagos", comisionesH.ListarPagos)
			comisiones.POST("/pagos", comisionesH.Liquidar)
			comisiones.POST("/pagos/:id/anular", comisionesH.Anular)
		}

		banco := v1.Group("/banco", gerencia)
		{
			banco.GET("/saldo", bancoH.Saldo)
			banco.GET("/saldo-inicial", bancoH.ListarSaldosIniciales)
			banco.POST("/saldo-inicial", admin, bancoH.RegistrarSaldoInicial)
			banco.GET("/movimientos", bancoH.Listar)
			banco.POST("/movimientos", bancoH.Agregar)
			banco.PATCH("/movimientos/:id", bancoH.Actualizar)
			banco.DELETE("/movimientos/:id", bancoH.Eliminar)
			banco.POST("/recalcular", admin, bancoH.Recalcular)
		}

		reportes := v1.Group("/reportes", gerencia)
		{
			reportes.GET("/dashboard", reportesH.Dashboard)
			reportes.GET("/turnos/:id", reportesH.ResumenTurno)
			reportes.GET("/estado-resultados", reportesH.EstadoResultados)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
		}

		if inf.DLQ != nil {
			v1.GET("/admin/dlq", admin, inf.DLQ)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
