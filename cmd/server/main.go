package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"central-chamadas-backend/internal/admin"
	"central-chamadas-backend/internal/cnes"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/logger"
	"central-chamadas-backend/internal/municipalities"
	"central-chamadas-backend/internal/respond"
	"central-chamadas-backend/internal/router"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "central-chamadas"

func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Central de regulação: chamadas, unidades de saúde e relatórios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), backupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap carrega a configuração, instala o logger global e abre o banco.
func bootstrap() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	undo := zap.ReplaceGlobals(log)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	if err := database.Init(cfg); err != nil {
		_ = log.Sync()
		undo()
		return nil, nil, err
	}

	cleanup := func() {
		if err := database.Close(); err != nil {
			log.Error("falha ao fechar o banco", zap.Error(err))
		}
		_ = log.Sync()
		undo()
	}
	return cfg, cleanup, nil
}

func migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Cria/atualiza as tabelas e carrega os municípios de MS",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := database.Migrate(database.DB); err != nil {
				return err
			}
			zap.L().Info("migração concluída")

			if seed {
				n, err := municipalities.Seed(database.DB, municipalities.MatoGrossoDoSul, "MS")
				if err != nil {
					return err
				}
				zap.L().Info("municípios carregados", zap.Int64("novos", n))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "municipios", true, "carregar os municípios de Mato Grosso do Sul")
	return cmd
}

func backupCmd() *cobra.Command {
	var (
		format string
		out    string
		opts   admin.BackupOptions
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Gera o backup em JSON ou CSV num arquivo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("formato de backup inválido: %q", format)
			}
			cfg, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			loc := cfg.Location()
			doc, err := admin.BuildBackup(database.DB, opts, "cli", loc, time.Now())
			if err != nil {
				return err
			}

			var body []byte
			if format == "csv" {
				body, err = doc.CSV()
			} else {
				body, err = doc.JSON()
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = doc.Filename(format, loc)
			}
			if err := os.WriteFile(out, body, 0o600); err != nil {
				return fmt.Errorf("gravar %s: %w", out, err)
			}
			zap.L().Info("backup gravado",
				zap.String("arquivo", out),
				zap.String("id", doc.Info.BackupID),
				zap.Strings("tipos", doc.Info.TiposIncluidos),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json ou csv")
	cmd.Flags().StringVar(&out, "out", "", "arquivo de saída (padrão backup_sistema_<data>.<formato>)")
	cmd.Flags().BoolVar(&opts.Users, "usuarios", false, "incluir usuários")
	cmd.Flags().BoolVar(&opts.Units, "unidades", false, "incluir unidades de saúde")
	cmd.Flags().BoolVar(&opts.Calls, "chamadas", false, "incluir chamadas")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log := zap.L()

	if err := database.Migrate(database.DB); err != nil {
		return err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Error("falha ao iniciar o Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	deps := router.Deps{Config: cfg, DB: database.DB}
	var cache cnes.Cache
	if cfg.RedisURL != "" {
		rc, err := cnes.NewRedisCache(cfg.RedisURL, cfg.CNESCacheTTL(), log)
		if err != nil {
			log.Warn("cache do CNES desativado", zap.Error(err))
		} else {
			defer rc.Close()
			cache = rc
			deps.Cache = rc
		}
	}
	deps.CNES = cnes.NewClient(cfg.CNESBaseURL, cfg.CNESTimeout(), cache, log)

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: respond.ErrorHandler,
	})
	app.Use(recover.New())
	if cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	}
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	router.Setup(app, deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor iniciado", zap.String("porta", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("servidor: %w", err)
	case sig := <-quit:
		log.Info("encerrando servidor", zap.String("sinal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("erro no encerramento", zap.Error(err))
	}
	return nil
}
