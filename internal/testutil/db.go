// Package testutil prepares an in-memory database for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SetupDB abre um SQLite em memória isolado, migra e instala em database.DB.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Options())
	if err != nil {
		t.Fatalf("falha ao abrir sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("falha ao obter pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("falha na migração: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})

	return db
}

// CreateUser grava um usuário ativo com senha "senha-forte-123".
func CreateUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("senha-forte-123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user := &models.User{
		Username:     username,
		Email:        username + "@saude.ms.gov.br",
		FirstName:    username,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      staff,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("criar usuário: %v", err)
	}
	return user
}

// CreateCall grava uma chamada com data_criacao explícita.
func CreateCall(t *testing.T, db *gorm.DB, c models.CallRecord, createdAt time.Time) *models.CallRecord {
	t.Helper()

	if c.ContactName == "" {
		c.ContactName = "Maria"
	}
	if c.Phone == "" {
		c.Phone = "67999999999"
	}
	if c.CallType == "" {
		c.CallType = "contato"
	}
	if c.Status == "" {
		c.Status = models.StatusReceived
	}
	if c.AttendantName == "" {
		c.AttendantName = "João"
	}
	if c.Description == "" {
		c.Description = "Teste"
	}
	if c.UnitName == "" {
		c.UnitName = "UPA Centro"
	}
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = createdAt.UTC()
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("criar chamada: %v", err)
	}
	return &c
}

// CreateUnit grava uma unidade; cnes vazio vira NULL.
func CreateUnit(t *testing.T, db *gorm.DB, name, cnes string, typ models.UnitType, createdBy *uint) *models.HealthUnit {
	t.Helper()

	unit := &models.HealthUnit{
		Name:         name,
		Municipality: "Campo Grande",
		Type:         typ,
		CreatedByID:  createdBy,
	}
	if cnes != "" {
		unit.CNES = &cnes
	}
	if err := db.Create(unit).Error; err != nil {
		t.Fatalf("criar unidade: %v", err)
	}
	return unit
}
