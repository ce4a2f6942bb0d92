package dashboard_test

import (
	"net/http"
	"testing"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/dashboard"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHome(t *testing.T) {
	db := testutil.SetupDB(t)
	loc, err := time.LoadLocation("America/Campo_Grande")
	require.NoError(t, err)
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, loc)

	for _, name := range []string{"UPA 1", "UPA 2", "UPA 3", "UPA 4"} {
		testutil.CreateUnit(t, db, name, "", models.UnitExecutante, nil)
	}
	testutil.CreateUnit(t, db, "UBS", "", models.UnitSolicitante, nil)
	testutil.CreateUnit(t, db, "Hospital", "", models.UnitExecutanteSolicitante, nil)

	testutil.CreateCall(t, db, models.CallRecord{ContactName: "hoje"}, now.Add(-time.Hour))
	// 23h30 do dia anterior no fuso local, já dia 20 em UTC
	testutil.CreateCall(t, db, models.CallRecord{ContactName: "ontem"}, time.Date(2024, 5, 19, 23, 30, 0, 0, loc))
	testutil.CreateCall(t, db, models.CallRecord{ContactName: "abril"}, time.Date(2024, 4, 30, 10, 0, 0, 0, loc))
	for i := 0; i < 4; i++ {
		testutil.CreateCall(t, db, models.CallRecord{ContactName: "antiga"}, time.Date(2023, 1, 10+i, 10, 0, 0, 0, loc))
	}

	h, err := dashboard.BuildHome(db, loc, now)
	require.NoError(t, err)

	s := h.Estatisticas
	assert.EqualValues(t, 6, s.TotalUnidades)
	assert.EqualValues(t, 4, s.Executantes)
	assert.EqualValues(t, 1, s.Solicitantes)
	assert.EqualValues(t, 1, s.ExecutanteSolicitante)
	assert.EqualValues(t, 7, s.TotalChamadas)
	assert.EqualValues(t, 1, s.ChamadasHoje)
	assert.EqualValues(t, 2, s.ChamadasMes)

	require.Len(t, h.UltimasUnidades, 3)
	assert.Equal(t, "Hospital", h.UltimasUnidades[0].Nome)
	require.Len(t, h.UltimasChamadas, 5)
	assert.Equal(t, "hoje", h.UltimasChamadas[0].NomeContato)
	assert.Equal(t, "#0001", h.UltimasChamadas[0].Codigo)
	assert.Equal(t, "Chamada Recebida", h.UltimasChamadas[0].StatusDisplay)
}

func TestHomeHandler_Empty(t *testing.T) {
	db := testutil.SetupDB(t)
	cfg := testutil.Config(t)
	user := testutil.CreateUser(t, db, "atendente", false)

	app := testutil.App()
	app.Get("/api/dashboard/home", auth.JWTMiddleware(cfg), dashboard.HomeHandler(cfg))

	resp := testutil.Do(t, app, testutil.JSONRequest(http.MethodGet, "/api/dashboard/home", "", testutil.Token(t, cfg, user)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := testutil.Body(t, resp)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 0, body["estatisticas"].(map[string]any)["total_chamadas"])
	assert.Empty(t, body["ultimas_unidades"])
	assert.Empty(t, body["ultimas_chamadas"])
}
