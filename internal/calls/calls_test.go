package calls_test

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/calls"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const exampleBody = `{"nome": "Maria", "telefone": "67999999999", "unidade": "UPA Centro", "tipo_chamada": "contato", "status": "chamada_recebida", "nome_atendente": "João", "descricao": "Teste"}`

type fixture struct {
	db    *gorm.DB
	cfg   *config.Config
	app   *fiber.App
	user  *models.User
	token string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupDB(t)
	cfg := testutil.Config(t)
	user := testutil.CreateUser(t, db, "atendente", false)

	app := testutil.App()
	api := app.Group("/api", auth.JWTMiddleware(cfg))
	api.Get("/chamadas", calls.ListHandler(cfg))
	api.Post("/chamadas", calls.CreateHandler(cfg))
	api.Post("/chamadas/editar", calls.UpdateHandler(cfg))
	api.Get("/chamadas/export/csv", calls.ExportHandler(cfg, export.FormatCSV))
	api.Get("/chamadas/export/excel", calls.ExportHandler(cfg, export.FormatExcel))
	api.Get("/chamadas/export/pdf", calls.ExportHandler(cfg, export.FormatPDF))
	api.Get("/chamadas/:id", calls.DetailHandler(cfg))
	api.Put("/chamadas/:id", calls.UpdateHandler(cfg))
	api.Delete("/chamadas/:id", calls.DeleteHandler())
	api.Post("/chamadas/:id/excluir", calls.DeleteHandler())

	return &fixture{db: db, cfg: cfg, app: app, user: user, token: testutil.Token(t, cfg, user)}
}

func (f *fixture) do(t *testing.T, method, target, body string) *http.Response {
	return testutil.Do(t, f.app, testutil.JSONRequest(method, target, body, f.token))
}

func TestCreate_ExampleBody(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, "/api/chamadas", exampleBody)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := testutil.Body(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Chamada registrada com sucesso!", body["message"])

	data := body["data"].(map[string]any)
	assert.NotZero(t, data["id"])
	assert.Equal(t, "atendente", data["usuario"])
	assert.Equal(t, "Contato", data["tipo_chamada"])
	assert.Equal(t, "Chamada Recebida", data["status"])

	var stored []models.CallRecord
	require.NoError(t, f.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "Maria", stored[0].ContactName)
	require.NotNil(t, stored[0].CreatedByID)
	assert.Equal(t, f.user.ID, *stored[0].CreatedByID)

	var logs int64
	f.db.Model(&models.AuditLog{}).Where("entity_type = ? AND action = ?", models.EntityCall, models.AuditActionCreate).Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestCreate_BadJSON(t *testing.T) {
	f := setup(t)

	resp := f.do(t, http.MethodPost, "/api/chamadas", `{"nome": "Maria",`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := testutil.Body(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Erro ao decodificar os dados da requisição.", body["message"])
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)

	cases := map[string]string{
		`{"telefone": "67999999999"}`: "Nome do contato é obrigatório",
		`{"nome": "Maria", "telefone": "679", "unidade": "UPA", "tipo_chamada": "contato", "status": "chamada_recebida", "nome_atendente": "João", "descricao": "x"}`:          "Telefone deve ter entre 10 e 11 dígitos",
		`{"nome": "Maria", "telefone": "(67) 99999-9999", "unidade": "UPA", "tipo_chamada": "xpto", "status": "chamada_recebida", "nome_atendente": "João", "descricao": "x"}`: "Tipo de chamada inválido",
		`{"nome": "Maria", "telefone": "6799999999", "unidade": "UPA", "tipo_chamada": "contato", "status": "chamada_recebida", "nome_atendente": "João"}`:                     "Descrição é obrigatório",
	}
	for body, msg := range cases {
		resp := f.do(t, http.MethodPost, "/api/chamadas", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, msg, testutil.Body(t, resp)["message"])
	}

	var n int64
	f.db.Model(&models.CallRecord{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreate_FormRedirectsWithFlash(t *testing.T) {
	f := setup(t)

	form := url.Values{
		"nome_contato":   {"Pedro"},
		"telefone":       {"6733334444"},
		"unidade":        {"Hospital Regional"},
		"tipo_chamada":   {"sistema_lento"},
		"status":         {models.StatusPlaced},
		"nome_atendente": {"Ana"},
		"descricao":      {"Lentidão"},
	}
	resp := testutil.Do(t, f.app, testutil.FormRequest(http.MethodPost, "/api/chamadas", form, f.token))
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, calls.PageHistory, resp.Header.Get("Location"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "flash=")

	var call models.CallRecord
	require.NoError(t, f.db.First(&call).Error)
	assert.Equal(t, "Pedro", call.ContactName)
}

func TestDetail(t *testing.T) {
	f := setup(t)
	call := testutil.CreateCall(t, f.db, models.CallRecord{CreatedByID: &f.user.ID}, time.Now().Add(-72*time.Hour))

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/chamadas/%d", call.ID), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := testutil.Body(t, resp)["data"].(map[string]any)
	assert.Equal(t, fmt.Sprintf("#%04d", call.ID), data["codigo"])
	assert.EqualValues(t, 3, data["dias_desde_criacao"])
	assert.Equal(t, "atendente", data["usuario_criador"])

	resp = f.do(t, http.MethodGet, "/api/chamadas/9999", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Chamada não encontrada", testutil.Body(t, resp)["message"])
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	call := testutil.CreateCall(t, f.db, models.CallRecord{}, time.Now())

	resp := f.do(t, http.MethodPost, "/api/chamadas/editar", `{"nome_contato": "X"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ID da chamada é obrigatório", testutil.Body(t, resp)["message"])

	resp = f.do(t, http.MethodPost, "/api/chamadas/editar", `{"id": 9999}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body := fmt.Sprintf(`{"id": "%d", "nome_contato": "Maria Atualizada", "telefone": "67988887777", "unidade": "UPA Centro",
		"tipo_chamada": "pactuacao", "status": "chamada_efetuada", "nome_atendente": "João", "descricao": "Teste", "solucao": "Resolvido"}`, call.ID)
	resp = f.do(t, http.MethodPost, "/api/chamadas/editar", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := testutil.Body(t, resp)
	assert.Equal(t, "Chamada atualizada com sucesso!", out["message"])
	assert.Equal(t, "atendente", out["data"].(map[string]any)["usuario_editor"])

	var reloaded models.CallRecord
	require.NoError(t, f.db.First(&reloaded, call.ID).Error)
	assert.Equal(t, "Maria Atualizada", reloaded.ContactName)
	assert.Equal(t, models.StatusPlaced, reloaded.Status)
	assert.Equal(t, "Resolvido", reloaded.Solution)

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/api/chamadas/%d", call.ID), `{"nome_contato": "Sem telefone"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Telefone é obrigatório", testutil.Body(t, resp)["message"])
}

func TestDelete(t *testing.T) {
	f := setup(t)
	call := testutil.CreateCall(t, f.db, models.CallRecord{}, time.Now())

	resp := f.do(t, http.MethodDelete, fmt.Sprintf("/api/chamadas/%d", call.ID), "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Chamada excluída com sucesso!", testutil.Body(t, resp)["message"])

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/api/chamadas/%d", call.ID), "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// formulário sem registro: redireciona com mensagem de erro
	resp = testutil.Do(t, f.app, testutil.FormRequest(http.MethodPost, "/api/chamadas/9999/excluir", url.Values{}, f.token))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func seedHistory(t *testing.T, f *fixture) {
	t.Helper()
	base := time.Now().Add(-48 * time.Hour)
	for i, name := range []string{"Ana", "Bruno", "Carla", "Diego", "Elaine"} {
		typ := "contato"
		if i%2 == 0 {
			typ = "sistema_lento"
		}
		testutil.CreateCall(t, f.db, models.CallRecord{ContactName: name, CallType: typ}, base.Add(time.Duration(i)*time.Hour))
	}
	// mesmo horário: desempate por id
	testutil.CreateCall(t, f.db, models.CallRecord{ContactName: "Fábio"}, base.Add(4*time.Hour))
}

func listNames(t *testing.T, f *fixture, query string) []string {
	t.Helper()
	resp := f.do(t, http.MethodGet, "/api/chamadas?limit=100&"+query, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page := testutil.Body(t, resp)["chamadas"].(map[string]any)
	var names []string
	for _, row := range page["data"].([]any) {
		names = append(names, row.(map[string]any)["nome_contato"].(string))
	}
	return names
}

func TestList_MalformedDatesIgnored(t *testing.T) {
	f := setup(t)
	seedHistory(t, f)

	plain := listNames(t, f, "")
	assert.Len(t, plain, 6)
	assert.Equal(t, plain, listNames(t, f, "data_inicio=99/99/9999&data_fim=ontem"))
	assert.Equal(t, []string{"Fábio", "Elaine"}, plain[:2])
}

func TestList_StatsAndPagination(t *testing.T) {
	f := setup(t)
	seedHistory(t, f)

	resp := f.do(t, http.MethodGet, "/api/chamadas?tipo=sistema_lento&limit=2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := testutil.Body(t, resp)

	page := body["chamadas"].(map[string]any)
	assert.EqualValues(t, 3, page["total"])
	assert.Len(t, page["data"], 2)
	assert.Equal(t, true, page["has_more"])

	stats := body["estatisticas"].(map[string]any)
	assert.EqualValues(t, 3, stats["total_chamadas"])
	assert.EqualValues(t, 3, stats["tipos_chamadas"].(map[string]any)["contato"])
	assert.EqualValues(t, 6, stats["status_chamadas"].(map[string]any)[models.StatusReceived])
	assert.Equal(t, "sistema_lento", body["filtros"].(map[string]any)["tipo"])
}

func TestExports_SameRowsAsListing(t *testing.T) {
	f := setup(t)
	seedHistory(t, f)
	query := "tipo=sistema_lento&busca=a"

	listed := listNames(t, f, query)
	require.NotEmpty(t, listed)

	// CSV
	resp := f.do(t, http.MethodGet, "/api/chamadas/export/csv?"+query, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="historico_chamadas.csv"`, resp.Header.Get("Content-Disposition"))
	raw, _ := io.ReadAll(resp.Body)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Data e Hora", records[0][0])
	var csvNames []string
	for _, r := range records[1:] {
		csvNames = append(csvNames, r[1])
	}
	assert.Equal(t, listed, csvNames)

	// Excel
	resp = f.do(t, http.MethodGet, "/api/chamadas/export/excel?"+query, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	rows, err := book.GetRows(book.GetSheetList()[0])
	require.NoError(t, err)
	var xlsNames []string
	for _, r := range rows[1:] {
		xlsNames = append(xlsNames, r[1])
	}
	assert.Equal(t, listed, xlsNames)

	// PDF: mesma carga e mesma ordem
	resp = f.do(t, http.MethodGet, "/api/chamadas/export/pdf?"+query, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, export.MIMEPDF, resp.Header.Get("Content-Type"))

	spec := filter.CallHistory(filter.FromMap(map[string]string{"tipo": "sistema_lento", "busca": "a"}), f.cfg.Location())
	loaded, err := calls.LoadHistory(f.db, spec)
	require.NoError(t, err)
	var pdfNames []string
	for _, r := range calls.PDFTable(loaded, f.cfg.Location(), false).Rows {
		pdfNames = append(pdfNames, r[1])
	}
	assert.Equal(t, listed, pdfNames)
}
