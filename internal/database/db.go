package database

import (
	"context"
	"fmt"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options comuns a produção e testes: horários gravados em UTC.
func Options() *gorm.Config {
	return &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func Init(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), Options())
	if err != nil {
		return fmt.Errorf("falha ao conectar ao banco: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("falha ao obter pool de conexões: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = db
	zap.L().Info("conexão com o banco estabelecida")
	return nil
}

// Migrate cria/atualiza todas as tabelas da aplicação.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Municipality{},
		&models.HealthUnit{},
		&models.CallRecord{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
