package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestOutcome_JSONAndForm(t *testing.T) {
	app := fiber.New()
	app.Post("/x", func(c *fiber.Ctx) error {
		return Outcome(c, fiber.StatusCreated, "/lista", "Criado", fiber.Map{"id": 1})
	})

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Criado", body["message"])

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/lista", resp.Header.Get("Location"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), FlashCookie+"=")
}

func TestFlash_RoundTrip(t *testing.T) {
	app := fiber.New()
	app.Post("/x", func(c *fiber.Ctx) error {
		return Redirect(c, "/y", LevelError, "Unidade não encontrada")
	})
	app.Get("/api/mensagens", FlashHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/x", nil))
	require.NoError(t, err)
	cookie := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/mensagens", nil)
	req.Header.Set("Cookie", strings.SplitN(cookie, ";", 2)[0])
	resp, err = app.Test(req)
	require.NoError(t, err)

	body := decode(t, resp)
	msgs := body["mensagens"].([]any)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, LevelError, first["level"])
	assert.Equal(t, "Unidade não encontrada", first["message"])
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "Nome é obrigatório.")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection reset")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/bad", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Nome é obrigatório.", body["message"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "Erro interno do servidor", body["message"])
}
