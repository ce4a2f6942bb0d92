package profile

import (
	"strings"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const PageProfile = "/perfil"

type UpdateRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
}

type PasswordRequest struct {
	OldPassword  string `json:"old_password" form:"old_password"`
	NewPassword1 string `json:"new_password1" form:"new_password1"`
	NewPassword2 string `json:"new_password2" form:"new_password2"`
}

// GET /api/perfil
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Não autenticado")
		}
		return c.JSON(fiber.Map{"success": true, "user": auth.UserJSON(user)})
	}
}

// PUT /api/perfil
func UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Não autenticado")
		}

		var body UpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Dados inválidos.", nil)
		}
		body.Username = strings.TrimSpace(body.Username)
		body.Email = strings.TrimSpace(body.Email)
		body.FirstName = strings.TrimSpace(body.FirstName)
		body.LastName = strings.TrimSpace(body.LastName)

		if body.FirstName == "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Nome é obrigatório.", nil)
		}
		if body.Username == "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Nome de usuário é obrigatório.", nil)
		}

		db := database.DB
		var n int64
		db.Model(&models.User{}).Where("username = ? AND id <> ?", body.Username, user.ID).Count(&n)
		if n > 0 {
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Este nome de usuário já está em uso.", nil)
		}
		if body.Email != "" {
			db.Model(&models.User{}).Where("LOWER(email) = ? AND id <> ?", strings.ToLower(body.Email), user.ID).Count(&n)
			if n > 0 {
				return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Este email já está em uso.", nil)
			}
		}

		before := auth.UserJSON(user)
		user.Username = body.Username
		user.Email = body.Email
		user.FirstName = body.FirstName
		user.LastName = body.LastName
		if err := db.Model(user).
			Select("Username", "Email", "FirstName", "LastName", "UpdatedAt").
			Updates(user).Error; err != nil {
			zap.L().Error("falha ao atualizar perfil", zap.Uint("user_id", user.ID), zap.Error(err))
			return respond.Outcome(c, fiber.StatusInternalServerError, PageProfile, "Erro ao atualizar perfil: "+err.Error(), nil)
		}

		after := auth.UserJSON(user)
		audit.Record(c, models.EntityUser, user.ID, models.AuditActionUpdate, "Perfil atualizado: "+user.Username, before, after)
		return respond.Outcome(c, fiber.StatusOK, PageProfile, "Perfil atualizado com sucesso!", after)
	}
}

// POST /api/perfil/senha
func ChangePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Não autenticado")
		}

		var body PasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Dados inválidos.", nil)
		}

		switch {
		case !auth.CheckPassword(user.PasswordHash, body.OldPassword):
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Senha atual incorreta.", nil)
		case body.NewPassword1 == "":
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "Senha é obrigatória.", nil)
		case body.NewPassword1 != body.NewPassword2:
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "As senhas não coincidem.", nil)
		case len(body.NewPassword1) < auth.MinPasswordLength:
			return respond.Outcome(c, fiber.StatusBadRequest, PageProfile, "A senha deve ter pelo menos 8 caracteres.", nil)
		}

		hash, err := auth.HashPassword(body.NewPassword1)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível processar a senha")
		}
		if err := database.DB.Model(user).Update("password_hash", hash).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageProfile, "Erro ao alterar senha: "+err.Error(), nil)
		}

		zap.L().Info("senha alterada", zap.Uint("user_id", user.ID))
		return respond.Outcome(c, fiber.StatusOK, PageProfile, "Sua senha foi alterada com sucesso!", nil)
	}
}
