package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadyUndone     = errors.New("esta operação já foi desfeita")
	ErrNotRestorable     = errors.New("este tipo de registro não pode ser restaurado")
	ErrActionNotUndoable = errors.New("este tipo de operação não pode ser desfeito")
	ErrEntityGone        = errors.New("o registro não existe mais")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func WriteLog(opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("falha ao gravar auditoria: %w", err)
	}
	return nil
}

// Record grava a auditoria em nome do usuário autenticado; falhas só vão para o log.
func Record(c *fiber.Ctx, entityType string, entityID uint, action models.AuditAction, description string, before, after any) {
	opts := LogOptions{
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	}
	if u := auth.CurrentUser(c); u != nil {
		opts.UserID = u.ID
		opts.UserName = u.Username
	}
	if err := WriteLog(opts); err != nil {
		zap.L().Warn("auditoria não registrada",
			zap.String("entidade", entityType),
			zap.Uint("id", entityID),
			zap.Error(err),
		)
	}
}

// restorable entidades cuja criação, edição e exclusão podem ser desfeitas.
var restorable = map[string]func() any{
	models.EntityCall: func() any { return &models.CallRecord{} },
	models.EntityUnit: func() any { return &models.HealthUnit{} },
}

// UndoLog desfaz a operação registrada e grava um novo log "undo".
func UndoLog(logID uint, userID uint, userName string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, "id = ?", logID).Error; err != nil {
			return fmt.Errorf("log não encontrado: %w", err)
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}

		newEntity, ok := restorable[log.EntityType]
		if !ok {
			return ErrNotRestorable
		}

		switch log.Action {
		case models.AuditActionCreate:
			if err := tx.Delete(newEntity(), "id = ?", log.EntityID).Error; err != nil {
				return fmt.Errorf("falha ao remover registro: %w", err)
			}

		case models.AuditActionUpdate:
			if err := restoreEntity(tx, newEntity(), log.EntityID, log.BeforeData); err != nil {
				return err
			}

		case models.AuditActionDelete:
			if err := recreateEntity(tx, newEntity(), log.BeforeData); err != nil {
				return err
			}

		default:
			return ErrActionNotUndoable
		}

		now := time.Now()
		log.IsUndone = true
		log.UndoneBy = &userID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("falha ao atualizar log: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Desfeito: " + log.Description,
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("falha ao gravar log de desfazer: %w", err)
		}
		return nil
	})
}

func restoreEntity(tx *gorm.DB, entity any, id uint, data datatypes.JSON) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("estado anterior inválido: %w", err)
	}
	res := tx.Model(entity).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(entity)
	if res.Error != nil {
		return fmt.Errorf("falha ao restaurar registro: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntityGone
	}
	return nil
}

// recreateEntity mantém o id original do registro excluído.
func recreateEntity(tx *gorm.DB, entity any, data datatypes.JSON) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("estado anterior inválido: %w", err)
	}
	if err := tx.Omit(clause.Associations).Create(entity).Error; err != nil {
		return fmt.Errorf("falha ao recriar registro: %w", err)
	}
	return nil
}
