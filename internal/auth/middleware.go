package auth

import (
	"strings"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxUserKey     = "user"
)

// JWTMiddleware valida o token e carrega o usuário, que precisa continuar ativo.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Cabeçalho Authorization ausente")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization deve estar no formato 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido ou expirado")
		}

		var user models.User
		if err := database.DB.Preload("Profile").First(&user, claims.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuário não encontrado")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Conta desativada")
		}

		c.Locals(CtxUserIDKey, user.ID)
		c.Locals(CtxUserRoleKey, user.Role())
		c.Locals(CtxUserKey, &user)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Perfil de acesso não identificado")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Você não tem permissão para esta operação")
	}
}

// CurrentUser usuário autenticado; nil fora de rotas protegidas.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(CtxUserKey).(*models.User)
	return u
}

func CurrentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(CtxUserIDKey).(uint)
	return id
}

func IsStaff(c *fiber.Ctx) bool {
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return role == models.RoleAdmin
}
