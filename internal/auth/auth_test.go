package auth_test

import (
	"net/http"
	"testing"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) (*fiber.App, func(*models.User) string) {
	t.Helper()
	cfg := testutil.Config(t)

	app := testutil.App()
	app.Post("/api/auth/login", auth.LoginHandler(cfg))
	app.Post("/api/auth/bootstrap", auth.BootstrapHandler())

	api := app.Group("/api", auth.JWTMiddleware(cfg))
	api.Get("/auth/me", auth.MeHandler())
	api.Get("/somente-admin", auth.RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	return app, func(u *models.User) string { return testutil.Token(t, cfg, u) }
}

func TestLogin(t *testing.T) {
	db := testutil.SetupDB(t)
	app, _ := setupApp(t)
	user := testutil.CreateUser(t, db, "maria", false)

	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/login",
		`{"username":"maria","password":"errada"}`, ""))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Usuário ou senha inválidos", testutil.Body(t, resp)["message"])

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/login",
		`{"username":"maria","password":"senha-forte-123"}`, ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := testutil.Body(t, resp)
	assert.NotEmpty(t, body["token"])

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.LastLogin)
}

func TestLogin_InactiveUser(t *testing.T) {
	db := testutil.SetupDB(t)
	app, _ := setupApp(t)
	user := testutil.CreateUser(t, db, "inativo", false)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/login",
		`{"username":"inativo","password":"senha-forte-123"}`, ""))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMiddleware(t *testing.T) {
	db := testutil.SetupDB(t)
	app, token := setupApp(t)
	comum := testutil.CreateUser(t, db, "comum", false)
	admin := testutil.CreateUser(t, db, "admin", true)

	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/auth/me", "", ""))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/auth/me", "", "lixo"))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/auth/me", "", token(comum)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := testutil.Body(t, resp)["user"].(map[string]any)
	assert.Equal(t, "comum", me["username"])
	assert.Equal(t, string(models.RoleUser), me["role"])

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/somente-admin", "", token(comum)))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/somente-admin", "", token(admin)))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// token continua válido, mas a conta foi desativada
	require.NoError(t, db.Model(comum).Update("is_active", false).Error)
	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/auth/me", "", token(comum)))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredToken(t *testing.T) {
	db := testutil.SetupDB(t)
	app, _ := setupApp(t)
	user := testutil.CreateUser(t, db, "velho", false)

	expired, err := auth.GenerateToken(testutil.Secret, -time.Minute, user)
	require.NoError(t, err)

	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/auth/me", "", expired))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBootstrap_OnlyOnce(t *testing.T) {
	db := testutil.SetupDB(t)
	app, _ := setupApp(t)

	body := `{"username":"root","email":"ROOT@saude.ms.gov.br","password":"senha-forte-123"}`
	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/bootstrap", body, ""))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var root models.User
	require.NoError(t, db.Preload("Profile").Where("username = ?", "root").First(&root).Error)
	assert.True(t, root.IsSuperuser)
	assert.True(t, root.IsStaff)
	assert.Equal(t, "root@saude.ms.gov.br", root.Email)
	assert.NotNil(t, root.Profile)

	resp = testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/bootstrap",
		`{"username":"outro","password":"senha-forte-123"}`, ""))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("senha-forte-123")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "senha-forte-123"))
	assert.False(t, auth.CheckPassword(hash, "outra"))
}
