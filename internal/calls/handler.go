package calls

import (
	"errors"
	"fmt"
	"time"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/pagination"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Páginas do fluxo HTML.
const (
	PageRegister = "/registro-chamada"
	PageHistory  = "/historico-chamadas"
)

const dateTimeLayout = "02/01/2006 15:04:05"

type CallResponse struct {
	ID                    uint   `json:"id"`
	Codigo                string `json:"codigo"`
	NomeContato           string `json:"nome_contato"`
	Telefone              string `json:"telefone"`
	Funcao                string `json:"funcao"`
	Setor                 string `json:"setor"`
	Unidade               string `json:"unidade"`
	Municipio             string `json:"municipio"`
	CNES                  string `json:"cnes"`
	ContatoTelefonicoCNES string `json:"contato_telefonico_cnes"`
	TipoChamada           string `json:"tipo_chamada"`
	TipoChamadaDisplay    string `json:"tipo_chamada_display"`
	Status                string `json:"status"`
	StatusDisplay         string `json:"status_display"`
	NomeAtendente         string `json:"nome_atendente"`
	Descricao             string `json:"descricao"`
	Solucao               string `json:"solucao"`
	DataCriacao           string `json:"data_criacao"`
	DataAtualizacao       string `json:"data_atualizacao"`
	UsuarioCriador        string `json:"usuario_criador"`
	DiasDesdeCriacao      int    `json:"dias_desde_criacao"`
}

func Code(id uint) string {
	return fmt.Sprintf("#%04d", id)
}

func toResponse(call *models.CallRecord, loc *time.Location, now time.Time) CallResponse {
	return CallResponse{
		ID:                    call.ID,
		Codigo:                Code(call.ID),
		NomeContato:           call.ContactName,
		Telefone:              call.Phone,
		Funcao:                call.Role,
		Setor:                 call.Sector,
		Unidade:               call.UnitName,
		Municipio:             call.Municipality,
		CNES:                  call.CNES,
		ContatoTelefonicoCNES: call.CNESPhoneContact,
		TipoChamada:           call.CallType,
		TipoChamadaDisplay:    call.TypeLabel(),
		Status:                call.Status,
		StatusDisplay:         call.StatusLabel(),
		NomeAtendente:         call.AttendantName,
		Descricao:             call.Description,
		Solucao:               call.Solution,
		DataCriacao:           call.CreatedAt.In(loc).Format(dateTimeLayout),
		DataAtualizacao:       call.UpdatedAt.In(loc).Format(dateTimeLayout),
		UsuarioCriador:        call.CreatorName(),
		DiasDesdeCriacao:      int(now.Sub(call.CreatedAt).Hours() / 24),
	}
}

func findCall(id string) (*models.CallRecord, error) {
	var callID uint
	if _, err := fmt.Sscan(id, &callID); err != nil || callID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var call models.CallRecord
	if err := database.DB.Preload("CreatedBy").First(&call, callID).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

// POST /api/chamadas
func CreateHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseInput(c)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageRegister, decodeError, nil)
		}
		if msg := in.validate(); msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageRegister, msg, nil)
		}

		user := auth.CurrentUser(c)
		call := models.CallRecord{}
		in.apply(&call)
		if user != nil {
			call.CreatedByID = &user.ID
		}

		if err := database.DB.Create(&call).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageRegister, "Erro ao registrar chamada.", nil)
		}

		audit.Record(c, models.EntityCall, call.ID, models.AuditActionCreate,
			fmt.Sprintf("Chamada %s registrada: %s", Code(call.ID), call.ContactName), nil, call)

		username := ""
		if user != nil {
			username = user.Username
		}
		return respond.Outcome(c, fiber.StatusCreated, PageHistory, "Chamada registrada com sucesso!", fiber.Map{
			"id":           call.ID,
			"data_criacao": call.CreatedAt.In(cfg.Location()).Format(dateTimeLayout),
			"usuario":      username,
			"tipo_chamada": call.TypeLabel(),
			"status":       call.StatusLabel(),
		})
	}
}

// GET /api/chamadas/:id
func DetailHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		call, err := findCall(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Chamada não encontrada")
			}
			return err
		}
		return respond.OK(c, "", toResponse(call, cfg.Location(), time.Now()))
	}
}

// POST /api/chamadas/editar (id no corpo) e PUT /api/chamadas/:id
func UpdateHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseInput(c)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageHistory, decodeError, nil)
		}

		idParam := c.Params("id")
		if idParam == "" {
			id, ok := in.recordID()
			if !ok {
				return respond.Outcome(c, fiber.StatusBadRequest, PageHistory, "ID da chamada é obrigatório", nil)
			}
			idParam = fmt.Sprint(id)
		}

		call, err := findCall(idParam)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Outcome(c, fiber.StatusNotFound, PageHistory, "Chamada não encontrada", nil)
			}
			return err
		}

		if msg := in.validate(); msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageHistory, msg, nil)
		}

		before := *call
		in.apply(call)
		if err := database.DB.Omit("CreatedBy").Save(call).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageHistory, "Erro ao atualizar chamada.", nil)
		}

		audit.Record(c, models.EntityCall, call.ID, models.AuditActionUpdate,
			fmt.Sprintf("Chamada %s atualizada", Code(call.ID)), before, call)

		editor := ""
		if u := auth.CurrentUser(c); u != nil {
			editor = u.Username
		}
		return respond.Outcome(c, fiber.StatusOK, PageHistory, "Chamada atualizada com sucesso!", fiber.Map{
			"id":               call.ID,
			"data_atualizacao": call.UpdatedAt.In(cfg.Location()).Format(dateTimeLayout),
			"usuario_editor":   editor,
		})
	}
}

// DELETE /api/chamadas/:id e POST /api/chamadas/:id/excluir
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		call, err := findCall(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Outcome(c, fiber.StatusNotFound, PageHistory, "Chamada não encontrada", nil)
			}
			return err
		}

		if err := database.DB.Delete(&models.CallRecord{}, call.ID).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageHistory, "Erro ao excluir chamada.", nil)
		}

		call.CreatedBy = nil
		audit.Record(c, models.EntityCall, call.ID, models.AuditActionDelete,
			fmt.Sprintf("Chamada %s excluída: %s", Code(call.ID), call.ContactName), call, nil)

		return respond.Outcome(c, fiber.StatusOK, PageHistory, "Chamada excluída com sucesso!", fiber.Map{"id": call.ID})
	}
}

type countRow struct {
	Code  string
	Total int64
}

func countBy(column string) (map[string]int64, error) {
	var rows []countRow
	err := database.DB.Model(&models.CallRecord{}).
		Select(column + " AS code, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Code] = r.Total
	}
	return out, nil
}

// Stats contagens usadas no histórico e no painel.
type Stats struct {
	TotalChamadas  int64            `json:"total_chamadas"`
	ChamadasHoje   int64            `json:"chamadas_hoje"`
	ChamadasMes    int64            `json:"chamadas_mes"`
	TiposChamadas  map[string]int64 `json:"tipos_chamadas"`
	StatusChamadas map[string]int64 `json:"status_chamadas"`
}

func CountSince(start, end time.Time) int64 {
	var n int64
	database.DB.Model(&models.CallRecord{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&n)
	return n
}

func buildStats(filtered int64, loc *time.Location, now time.Time) (*Stats, error) {
	byType, err := countBy("call_type")
	if err != nil {
		return nil, err
	}
	byStatus, err := countBy("status")
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalChamadas:  filtered,
		TiposChamadas:  make(map[string]int64, len(models.CallTypes)),
		StatusChamadas: make(map[string]int64, len(models.CallStatuses)),
	}
	for _, t := range models.CallTypes {
		stats.TiposChamadas[t.Code] = byType[t.Code]
	}
	for _, s := range models.CallStatuses {
		stats.StatusChamadas[s.Code] = byStatus[s.Code]
	}

	stats.ChamadasHoje = CountSince(filter.Day(now, loc))
	stats.ChamadasMes = CountSince(filter.Month(now, loc))
	return stats, nil
}

// GET /api/chamadas
func ListHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		now := time.Now()
		spec := filter.CallHistory(filter.FromFiber(c), loc)

		var total int64
		if err := spec.Apply(database.DB.Model(&models.CallRecord{})).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as chamadas")
		}

		page := pagination.FromContext(c, pagination.DefaultLimit)
		var calls []models.CallRecord
		q := spec.Query(database.DB.Model(&models.CallRecord{}).Preload("CreatedBy"))
		if err := page.Scope(q).Find(&calls).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as chamadas")
		}

		rows := make([]CallResponse, 0, len(calls))
		for i := range calls {
			rows = append(rows, toResponse(&calls[i], loc, now))
		}

		stats, err := buildStats(total, loc, now)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível calcular as estatísticas")
		}

		filtros := fiber.Map{}
		for _, key := range []string{"tipo", "status", "data_inicio", "data_fim", "busca"} {
			filtros[key] = c.Query(key)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"chamadas":       pagination.NewResponse(rows, total, page),
			"estatisticas":   stats,
			"filtros":        filtros,
			"filtros_ativos": spec.Active(),
			"tipo_choices":   models.CallTypes,
			"status_choices": models.CallStatuses,
		})
	}
}
