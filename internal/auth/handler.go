package auth

import (
	"strings"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type BootstrapRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Password  string `json:"password" form:"password"`
}

// UserJSON representação pública do usuário.
func UserJSON(u *models.User) fiber.Map {
	var avatar *string
	if u.Profile != nil {
		avatar = u.Profile.AvatarURL()
	}
	return fiber.Map{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"nome":         u.DisplayName(),
		"is_active":    u.IsActive,
		"is_staff":     u.IsStaff,
		"is_superuser": u.IsSuperuser,
		"role":         u.Role(),
		"date_joined":  u.DateJoined,
		"last_login":   u.LastLogin,
		"avatar_url":   avatar,
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Erro ao decodificar os dados da requisição.")
		}

		body.Username = strings.TrimSpace(body.Username)
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Usuário e senha são obrigatórios")
		}

		var user models.User
		if err := database.DB.Preload("Profile").Where("username = ?", body.Username).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuário ou senha inválidos")
		}
		if !CheckPassword(user.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuário ou senha inválidos")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "Conta desativada. Procure o administrador.")
		}

		now := time.Now()
		if err := database.DB.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
			zap.L().Warn("falha ao registrar último login", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		user.LastLogin = &now

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL(), &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível gerar o token")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"token":   token,
			"user":    UserJSON(&user),
		})
	}
}

// BootstrapHandler cria o primeiro superusuário; depois disso responde 403.
func BootstrapHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BootstrapRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Erro ao decodificar os dados da requisição.")
		}

		body.Username = strings.TrimSpace(body.Username)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Usuário e senha são obrigatórios")
		}
		if len(body.Password) < MinPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "A senha deve ter pelo menos 8 caracteres.")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("is_superuser = ?", true).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Já existe um superusuário cadastrado")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível processar a senha")
		}

		user := models.User{
			Username:     body.Username,
			Email:        body.Email,
			FirstName:    strings.TrimSpace(body.FirstName),
			LastName:     strings.TrimSpace(body.LastName),
			PasswordHash: hash,
			IsActive:     true,
			IsStaff:      true,
			IsSuperuser:  true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível criar o usuário")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Superusuário criado com sucesso!",
			"user":    UserJSON(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Não autenticado")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"user":    UserJSON(user),
		})
	}
}
