package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"central-chamadas-backend/internal/cnes"
	"central-chamadas-backend/internal/router"
	"central-chamadas-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetup_Routes(t *testing.T) {
	db := testutil.SetupDB(t)
	cfg := testutil.Config(t)
	cfg.LoginRateLimit = 2
	staff := testutil.CreateUser(t, db, "coordenador", true)
	common := testutil.CreateUser(t, db, "atendente", false)

	app := testutil.App()
	router.Setup(app, router.Deps{
		Config: cfg,
		DB:     db,
		CNES:   cnes.NewClient("http://127.0.0.1:1", time.Second, nil, zap.NewNop()),
	})

	staffToken := testutil.Token(t, cfg, staff)
	commonToken := testutil.Token(t, cfg, common)
	get := func(target, token string) *http.Response {
		return testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, target, "", token))
	}

	resp := testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, fiber.StatusUnauthorized, get("/api/chamadas", "").StatusCode)
	assert.Equal(t, fiber.StatusOK, get("/api/chamadas", commonToken).StatusCode)
	assert.Equal(t, fiber.StatusOK, get("/api/dashboard/home", commonToken).StatusCode)

	// rota estática não é capturada por :id
	assert.Equal(t, fiber.StatusOK, get("/api/usuarios/estatisticas", commonToken).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, get("/api/usuarios", commonToken).StatusCode)
	assert.Equal(t, fiber.StatusOK, get("/api/usuarios", staffToken).StatusCode)
	assert.Equal(t, fiber.StatusOK, get("/api/unidades/export/excel", commonToken).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, get("/api/relatorios", commonToken).StatusCode)
	assert.Equal(t, fiber.StatusOK, get("/api/relatorios/geral/csv", commonToken).StatusCode)

	resp = get("/api/mensagens", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetup_LoginRateLimit(t *testing.T) {
	db := testutil.SetupDB(t)
	cfg := testutil.Config(t)
	cfg.LoginRateLimit = 2

	app := testutil.App()
	router.Setup(app, router.Deps{Config: cfg, DB: db, CNES: cnes.NewClient("http://127.0.0.1:1", time.Second, nil, zap.NewNop())})

	body := `{"username": "ninguem", "password": "x"}`
	for i := 0; i < 2; i++ {
		resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/login", body, ""))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodPost, "/api/auth/login", body, ""))
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Muitas tentativas de login. Aguarde um minuto.", testutil.Body(t, resp)["message"])
}
