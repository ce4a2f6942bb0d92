package audit

import (
	"errors"
	"fmt"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/pagination"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

// GET /api/audit-logs?entity_type=chamada&entity_id=1&user_id=2
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if v := c.Query("user_id"); v != "" {
			var uid uint
			if _, err := fmt.Sscan(v, &uid); err == nil && uid > 0 {
				dbq = dbq.Where("user_id = ?", uid)
			}
		}
		if v := c.Query("entity_type"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.Query("entity_id"); v != "" {
			var eid uint
			if _, err := fmt.Sscan(v, &eid); err == nil && eid > 0 {
				dbq = dbq.Where("entity_id = ?", eid)
			}
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar a auditoria")
		}

		page := pagination.FromContext(c, 50)
		var logs []models.AuditLog
		if err := page.Scope(dbq.Order("created_at DESC").Order("id DESC")).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar a auditoria")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			var undoneAt *string
			if log.UndoneAt != nil {
				formatted := log.UndoneAt.Format("2006-01-02 15:04:05")
				undoneAt = &formatted
			}
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				IsUndone:    log.IsUndone,
				UndoneBy:    log.UndoneBy,
				UndoneAt:    undoneAt,
			})
		}

		return c.JSON(pagination.NewResponse(resp, total, page))
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var logID uint
		if _, err := fmt.Sscan(c.Params("id"), &logID); err != nil || logID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID de log inválido")
		}

		user := auth.CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Não autenticado")
		}

		if err := UndoLog(logID, user.ID, user.Username); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Log não encontrado")
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Operação desfeita com sucesso",
		})
	}
}
