package units

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const PageUnits = "/unidades-saude"

const (
	dateTimeLayout = "02/01/2006 15:04:05"
	notInformed    = "Não informado"
	duplicateCNES  = "Já existe uma unidade cadastrada com este código CNES"
)

type UnitResponse struct {
	ID                   uint   `json:"id"`
	Nome                 string `json:"nome"`
	Municipio            string `json:"municipio"`
	CNES                 string `json:"cnes"`
	Tipo                 string `json:"tipo"`
	TipoDisplay          string `json:"tipo_display"`
	ContatoTelefonico    string `json:"contato_telefonico"`
	Endereco             string `json:"endereco"`
	Telefone             string `json:"telefone"`
	Responsavel          string `json:"responsavel"`
	Email                string `json:"email"`
	HorarioFuncionamento string `json:"horario_funcionamento"`
	ServicosEmergencia   bool   `json:"servicos_emergencia"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
	UsuarioCadastrante   string `json:"usuario_cadastrante"`
	UsuarioCadastranteID *uint  `json:"usuario_cadastrante_id"`
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func toResponse(u *models.HealthUnit, loc *time.Location) UnitResponse {
	return UnitResponse{
		ID:                   u.ID,
		Nome:                 u.Name,
		Municipio:            orDefault(u.Municipality, notInformed),
		CNES:                 u.CNESValue(),
		Tipo:                 string(u.Type),
		TipoDisplay:          u.Type.Label(),
		ContatoTelefonico:    u.PhoneContact,
		Endereco:             u.Address,
		Telefone:             u.Phone,
		Responsavel:          orDefault(u.Manager, notInformed),
		Email:                u.Email,
		HorarioFuncionamento: u.OpeningHours,
		ServicosEmergencia:   u.EmergencyServices,
		CreatedAt:            u.CreatedAt.In(loc).Format(dateTimeLayout),
		UpdatedAt:            u.UpdatedAt.In(loc).Format(dateTimeLayout),
		UsuarioCadastrante:   u.CreatorName(),
		UsuarioCadastranteID: u.CreatedByID,
	}
}

func findUnit(id string) (*models.HealthUnit, error) {
	var unitID uint
	if _, err := fmt.Sscan(id, &unitID); err != nil || unitID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var unit models.HealthUnit
	if err := database.DB.Preload("CreatedBy").First(&unit, unitID).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// cnesTaken verifica duplicidade ignorando a própria unidade.
func cnesTaken(db *gorm.DB, u *models.HealthUnit) (bool, error) {
	code := u.CNESValue()
	if code == "" {
		return false, nil
	}
	var n int64
	err := db.Model(&models.HealthUnit{}).Where("cnes = ? AND id <> ?", code, u.ID).Count(&n).Error
	return n > 0, err
}

// UnitStats contagem por tipo.
type UnitStats struct {
	Total                 int64 `json:"total"`
	Executantes           int64 `json:"executantes"`
	Solicitantes          int64 `json:"solicitantes"`
	ExecutanteSolicitante int64 `json:"executante_solicitante"`
}

type typeCount struct {
	Type  models.UnitType
	Total int64
}

// CountByType aplica spec (se houver) e agrupa por tipo.
func CountByType(db *gorm.DB, spec filter.Spec) (UnitStats, error) {
	var rows []typeCount
	err := spec.Apply(db.Model(&models.HealthUnit{})).
		Select("type, COUNT(*) AS total").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return UnitStats{}, err
	}

	var s UnitStats
	for _, r := range rows {
		s.Total += r.Total
		switch r.Type {
		case models.UnitExecutante:
			s.Executantes = r.Total
		case models.UnitSolicitante:
			s.Solicitantes = r.Total
		case models.UnitExecutanteSolicitante:
			s.ExecutanteSolicitante = r.Total
		}
	}
	return s, nil
}

// LoadUnits unidades filtradas, ordenadas por nome.
func LoadUnits(db *gorm.DB, spec filter.Spec) ([]models.HealthUnit, error) {
	var units []models.HealthUnit
	if err := spec.Query(db.Model(&models.HealthUnit{}).Preload("CreatedBy")).Find(&units).Error; err != nil {
		return nil, fmt.Errorf("carregar unidades: %w", err)
	}
	return units, nil
}

// GET /api/unidades
func ListHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		spec := filter.Units(filter.FromFiber(c))

		units, err := LoadUnits(database.DB, spec)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as unidades")
		}
		stats, err := CountByType(database.DB, spec)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível calcular as estatísticas")
		}

		loc := cfg.Location()
		rows := make([]UnitResponse, 0, len(units))
		for i := range units {
			rows = append(rows, toResponse(&units[i], loc))
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"unidades":       rows,
			"estatisticas":   stats,
			"filtros_ativos": spec.Active(),
			"tipo_choices":   models.UnitTypes,
		})
	}
}

// GET /api/unidades/:id
func DetailHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := findUnit(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Unidade não encontrada")
			}
			return err
		}
		return respond.OK(c, "", toResponse(unit, cfg.Location()))
	}
}

// POST /api/unidades
func CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseInput(c)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, "Dados inválidos", nil)
		}

		unit := models.HealthUnit{Type: models.UnitExecutante}
		in.apply(&unit)
		if unit.Municipality == "" {
			unit.Municipality = models.DefaultMunicipality
		}
		if msg := validate(&unit); msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, msg, nil)
		}

		taken, err := cnesTaken(database.DB, &unit)
		if err != nil {
			return err
		}
		if taken {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, duplicateCNES, nil)
		}

		if user := auth.CurrentUser(c); user != nil {
			unit.CreatedByID = &user.ID
		}
		if err := database.DB.Create(&unit).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageUnits, "Erro ao cadastrar unidade.", nil)
		}

		audit.Record(c, models.EntityUnit, unit.ID, models.AuditActionCreate,
			fmt.Sprintf("Unidade cadastrada: %s", unit.Name), nil, unit)

		if respond.IsForm(c) {
			return respond.Redirect(c, PageUnits, respond.LevelSuccess, "Unidade de saúde criada com sucesso!")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":    true,
			"message":    "Unidade criada com sucesso!",
			"unidade_id": unit.ID,
		})
	}
}

// PUT /api/unidades/:id e POST /api/unidades/:id (formulário)
func UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := findUnit(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Outcome(c, fiber.StatusNotFound, PageUnits, "Unidade não encontrada", nil)
			}
			return err
		}

		in, err := parseInput(c)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, "Dados inválidos", nil)
		}

		before := *unit
		before.CreatedBy = nil
		in.apply(unit)
		if msg := validate(unit); msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, msg, nil)
		}

		taken, err := cnesTaken(database.DB, unit)
		if err != nil {
			return err
		}
		if taken {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUnits, duplicateCNES, nil)
		}

		if err := database.DB.Omit("CreatedBy").Save(unit).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageUnits, "Erro ao atualizar unidade.", nil)
		}

		after := *unit
		after.CreatedBy = nil
		audit.Record(c, models.EntityUnit, unit.ID, models.AuditActionUpdate,
			fmt.Sprintf("Unidade atualizada: %s", unit.Name), before, after)

		if respond.IsForm(c) {
			return respond.Redirect(c, PageUnits, respond.LevelSuccess, "Unidade de saúde atualizada com sucesso!")
		}
		return c.JSON(fiber.Map{"success": true, "message": "Unidade atualizada com sucesso!"})
	}
}

// DELETE /api/unidades/:id e POST /api/unidades/:id/excluir
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := findUnit(c.Params("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Outcome(c, fiber.StatusNotFound, PageUnits, "Unidade não encontrada", nil)
			}
			return err
		}

		if err := database.DB.Delete(&models.HealthUnit{}, unit.ID).Error; err != nil {
			return respond.Outcome(c, fiber.StatusInternalServerError, PageUnits, "Erro ao excluir unidade.", nil)
		}

		unit.CreatedBy = nil
		audit.Record(c, models.EntityUnit, unit.ID, models.AuditActionDelete,
			fmt.Sprintf("Unidade excluída: %s", unit.Name), unit, nil)

		return respond.Outcome(c, fiber.StatusOK, PageUnits, "Unidade de saúde excluída com sucesso!", fiber.Map{"id": unit.ID})
	}
}

// GET /api/unidades/preenchimento
// Dados vindos do registro de chamadas; o nome digitado tem prioridade sobre o do CNES.
func PrefillHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dados := fiber.Map{}
		nome := strings.TrimSpace(c.Query("nome"))
		nomeCNES := strings.TrimSpace(c.Query("nome_cnes"))
		switch {
		case nome != "":
			dados["nome"] = nome
		case nomeCNES != "":
			dados["nome"] = nomeCNES
		}
		for _, key := range []string{"municipio", "telefone", "contato_telefonico", "endereco", "cnes"} {
			if v := strings.TrimSpace(c.Query(key)); v != "" {
				dados[key] = v
			}
		}

		return c.JSON(fiber.Map{
			"success":             true,
			"dados_preenchimento": dados,
			"veio_de_registro":    nome != "" || nomeCNES != "" || strings.TrimSpace(c.Query("cnes")) != "",
			"tipo_choices":        models.UnitTypes,
		})
	}
}

type phoneEntry struct {
	ID          uint    `json:"id"`
	Nome        string  `json:"nome"`
	Telefone    string  `json:"telefone"`
	Responsavel string  `json:"responsavel"`
	Municipio   string  `json:"municipio"`
	CNES        *string `json:"cnes"`
	Tipo        string  `json:"tipo"`
}

// GET /api/lista-telefonica
func PhoneListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		spec := filter.Units(filter.FromFiber(c))

		var units []models.HealthUnit
		if err := spec.Query(database.DB.Model(&models.HealthUnit{})).Find(&units).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível carregar a lista telefônica")
		}
		stats, err := CountByType(database.DB, spec)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível calcular as estatísticas")
		}

		var municipios []string
		if err := database.DB.Model(&models.HealthUnit{}).
			Distinct("municipality").
			Order("municipality ASC").
			Pluck("municipality", &municipios).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível carregar os municípios")
		}

		entries := make([]phoneEntry, 0, len(units))
		for _, u := range units {
			entries = append(entries, phoneEntry{
				ID:          u.ID,
				Nome:        u.Name,
				Telefone:    u.Phone,
				Responsavel: u.Manager,
				Municipio:   u.Municipality,
				CNES:        u.CNES,
				Tipo:        string(u.Type),
			})
		}

		return c.JSON(fiber.Map{
			"unidades":     entries,
			"municipios":   municipios,
			"estatisticas": stats,
			"filtros": fiber.Map{
				"busca":     c.Query("busca"),
				"tipo":      c.Query("tipo"),
				"municipio": c.Query("municipio"),
			},
		})
	}
}
