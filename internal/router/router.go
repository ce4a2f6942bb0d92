// Package router monta a tabela de rotas da aplicação.
package router

import (
	"time"

	"central-chamadas-backend/internal/admin"
	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/calls"
	"central-chamadas-backend/internal/cnes"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/dashboard"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/health"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/municipalities"
	"central-chamadas-backend/internal/profile"
	"central-chamadas-backend/internal/respond"
	"central-chamadas-backend/internal/units"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	CNES   *cnes.Client
	// Cache nil quando REDIS_URL não está configurada.
	Cache health.Pinger
}

var formats = map[string]export.Format{
	"csv":   export.FormatCSV,
	"excel": export.FormatExcel,
	"pdf":   export.FormatPDF,
}

// exports registra prefix/{csv,excel,pdf}.
func exports(r fiber.Router, prefix string, handler func(export.Format) fiber.Handler, mw ...fiber.Handler) {
	for name, f := range formats {
		handlers := append(append([]fiber.Handler{}, mw...), handler(f))
		r.Get(prefix+"/"+name, handlers...)
	}
}

// Setup rotas estáticas antes das rotas com :id.
func Setup(app *fiber.App, d Deps) {
	cfg := d.Config

	app.Get("/health", health.Handler(d.DB, d.Cache))
	app.Static("/media", cfg.MediaPath)

	api := app.Group("/api")

	limit := cfg.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	login := limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Muitas tentativas de login. Aguarde um minuto.")
		},
	})
	api.Post("/auth/login", login, auth.LoginHandler(cfg))
	api.Post("/auth/bootstrap", login, auth.BootstrapHandler())
	api.Get("/mensagens", respond.FlashHandler())

	protected := api.Group("", auth.JWTMiddleware(cfg))
	staff := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/dashboard/home", dashboard.HomeHandler(cfg))

	// perfil
	protected.Get("/perfil", profile.GetHandler())
	protected.Put("/perfil", profile.UpdateHandler())
	protected.Post("/perfil", profile.UpdateHandler())
	protected.Post("/perfil/senha", profile.ChangePasswordHandler())
	protected.Post("/perfil/avatar", profile.UploadAvatarHandler(cfg))
	protected.Delete("/perfil/avatar", profile.RemoveAvatarHandler(cfg))
	protected.Post("/perfil/avatar/remover", profile.RemoveAvatarHandler(cfg))

	// chamadas
	protected.Get("/chamadas", calls.ListHandler(cfg))
	protected.Post("/chamadas", calls.CreateHandler(cfg))
	protected.Post("/chamadas/editar", calls.UpdateHandler(cfg))
	exports(protected, "/chamadas/export", func(f export.Format) fiber.Handler { return calls.ExportHandler(cfg, f) })
	protected.Get("/chamadas/:id", calls.DetailHandler(cfg))
	protected.Put("/chamadas/:id", calls.UpdateHandler(cfg))
	protected.Delete("/chamadas/:id", calls.DeleteHandler())
	protected.Post("/chamadas/:id/excluir", calls.DeleteHandler())

	// unidades
	protected.Get("/unidades", units.ListHandler(cfg))
	protected.Post("/unidades", units.CreateHandler())
	protected.Get("/unidades/preenchimento", units.PrefillHandler())
	protected.Post("/unidades/consultar", units.LookupHandler(cfg))
	exports(protected, "/unidades/export", func(f export.Format) fiber.Handler { return units.ExportHandler(cfg, f) })
	protected.Get("/unidades/:id", units.DetailHandler(cfg))
	protected.Put("/unidades/:id", units.UpdateHandler())
	protected.Post("/unidades/:id", units.UpdateHandler())
	protected.Delete("/unidades/:id", units.DeleteHandler())
	protected.Post("/unidades/:id/excluir", units.DeleteHandler())
	protected.Get("/lista-telefonica", units.PhoneListHandler())

	protected.Get("/cnes/:codigo", cnes.LookupHandler(d.CNES))

	// municípios
	protected.Get("/municipios", municipalities.ListHandler())
	protected.Get("/municipios/autocomplete", municipalities.AutocompleteHandler())
	protected.Post("/municipios", staff, municipalities.CreateHandler())
	protected.Get("/municipios/:id", municipalities.DetailHandler())

	// usuários
	protected.Get("/usuarios/estatisticas", admin.StatisticsHandler(cfg))
	exports(protected, "/usuarios/export", func(f export.Format) fiber.Handler { return admin.UsersExportHandler(cfg, f) }, staff)
	protected.Post("/usuarios/excluir", staff, admin.DeleteUserByBodyHandler(cfg))
	protected.Get("/usuarios", staff, admin.ListUsersHandler(cfg))
	protected.Post("/usuarios", staff, admin.CreateUserHandler())
	protected.Get("/usuarios/:id", admin.DetailHandler(cfg))
	protected.Put("/usuarios/:id", staff, admin.UpdateUserHandler())
	protected.Post("/usuarios/:id", staff, admin.UpdateUserHandler())
	protected.Post("/usuarios/:id/alternar-status", staff, admin.ToggleStatusHandler())
	protected.Get("/usuarios/:id/exclusao", staff, admin.DeletionPreviewHandler())
	protected.Delete("/usuarios/:id", staff, admin.DeleteUserHandler(cfg))

	// relatórios e backup
	protected.Get("/relatorios", staff, admin.ReportsHandler(cfg))
	exports(protected, "/relatorios/usuarios-mes", func(f export.Format) fiber.Handler { return admin.MonthlyUsersExportHandler(cfg, f) }, staff)
	exports(protected, "/relatorios/geral", func(f export.Format) fiber.Handler { return admin.GeneralReportExportHandler(cfg, f) })
	protected.Get("/backup", staff, admin.BackupSummaryHandler())
	protected.Post("/backup", staff, admin.BackupHandler(cfg))

	// auditoria
	protected.Get("/audit-logs", staff, audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", staff, audit.UndoAuditLogHandler())
}
