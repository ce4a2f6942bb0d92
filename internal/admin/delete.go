package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSelfDelete   = errors.New("Você não pode excluir sua própria conta.")
	ErrUserActive   = errors.New("Só é possível excluir usuários inativos.")
	ErrUserNotFound = errors.New("Usuário não encontrado.")
)

// DependentsError o usuário ainda é cadastrante de unidades ou chamadas.
type DependentsError struct {
	Units int64
	Calls int64
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf(
		"Usuário possui %d unidades e %d chamadas registradas. Não é possível excluir para manter a integridade dos dados.",
		e.Units, e.Calls)
}

// DeleteUser remove perfil e usuário numa transação. O arquivo do avatar é apagado
// depois do commit e falhas nessa etapa só vão para o log.
func DeleteUser(db *gorm.DB, actorID, targetID uint, mediaPath string) (*models.User, error) {
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Profile").First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.ID == actorID {
			return ErrSelfDelete
		}
		if user.IsActive {
			return ErrUserActive
		}
		units, calls, err := Dependents(tx, user.ID)
		if err != nil {
			return err
		}
		if units > 0 || calls > 0 {
			return &DependentsError{Units: units, Calls: calls}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if user.Profile != nil && user.Profile.Avatar != "" && mediaPath != "" {
		path := filepath.Join(mediaPath, filepath.FromSlash(user.Profile.Avatar))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("avatar não removido", zap.String("arquivo", path), zap.Error(err))
		}
	}
	return &user, nil
}

func deletionStatus(err error) int {
	var dep *DependentsError
	switch {
	case errors.Is(err, ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrSelfDelete), errors.Is(err, ErrUserActive), errors.As(err, &dep):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func deleteAndRespond(c *fiber.Ctx, cfg *config.Config, targetID uint) error {
	user, err := DeleteUser(database.DB, auth.CurrentUserID(c), targetID, cfg.MediaPath)
	if err != nil {
		status := deletionStatus(err)
		if status == fiber.StatusInternalServerError {
			zap.L().Error("falha ao excluir usuário", zap.Uint("id", targetID), zap.Error(err))
			return respond.Outcome(c, status, PageUsers, "Erro ao excluir usuário.", nil)
		}
		return respond.Outcome(c, status, PageUsers, err.Error(), nil)
	}

	audit.Record(c, models.EntityUser, user.ID, models.AuditActionDelete,
		"Usuário excluído: "+user.Username, user, nil)

	msg := fmt.Sprintf("Usuário \"%s\" excluído com sucesso!", user.DisplayName())
	return respond.Outcome(c, fiber.StatusOK, PageUsers, msg, nil)
}

// DELETE /api/usuarios/:id
func DeleteUserHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "ID do usuário é obrigatório.", nil)
		}
		return deleteAndRespond(c, cfg, id)
	}
}

type deleteRequest struct {
	UserID json.Number `json:"user_id" form:"user_id"`
}

// POST /api/usuarios/excluir
func DeleteUserByBodyHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteRequest
		_ = c.BodyParser(&req)

		var id uint
		if _, err := fmt.Sscan(req.UserID.String(), &id); err != nil || id == 0 {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "ID do usuário é obrigatório.", nil)
		}
		return deleteAndRespond(c, cfg, id)
	}
}

// GET /api/usuarios/:id/exclusao
func DeletionPreviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := findUser(database.DB, c.Params("id"))
		if err != nil {
			return err
		}
		units, calls, err := Dependents(database.DB, user.ID)
		if err != nil {
			return err
		}

		motivo := ""
		switch {
		case user.ID == auth.CurrentUserID(c):
			motivo = ErrSelfDelete.Error()
		case user.IsActive:
			motivo = ErrUserActive.Error()
		case units > 0 || calls > 0:
			motivo = (&DependentsError{Units: units, Calls: calls}).Error()
		}

		return c.JSON(fiber.Map{
			"success": true,
			"usuario": fiber.Map{
				"id":                   user.ID,
				"nome":                 user.DisplayName(),
				"username":             user.Username,
				"is_active":            user.IsActive,
				"unidades_cadastradas": units,
				"chamadas_registradas": calls,
				"pode_excluir":         motivo == "",
				"motivo":               motivo,
			},
		})
	}
}
