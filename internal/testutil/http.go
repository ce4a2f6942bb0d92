package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
)

const Secret = "segredo-de-teste-com-pelo-menos-32-caracteres"

// Config mínima para os handlers; mídia vai para um diretório temporário.
func Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:       Secret,
		JWTTTLHours:     1,
		Timezone:        "America/Campo_Grande",
		MediaPath:       t.TempDir(),
		CNESTimeoutSecs: 1,
		AppEnv:          "test",
	}
}

// App com o mesmo ErrorHandler da aplicação.
func App() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: respond.ErrorHandler})
}

func Token(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(cfg.JWTSecret, cfg.JWTTTL(), user)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}
	return token
}

func JSONRequest(method, target, body, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func FormRequest(method, target string, form url.Values, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func Do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

// Body decodifica a resposta JSON num mapa.
func Body(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ler corpo: %v", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("json inválido (%d): %s", resp.StatusCode, raw)
	}
	return out
}
