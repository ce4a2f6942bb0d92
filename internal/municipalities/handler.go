package municipalities

import (
	"errors"
	"fmt"
	"strings"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultLimit      = 20
	maxLimit          = 200
	autocompleteLimit = 10
)

type MunicipalityResponse struct {
	ID            uint   `json:"id"`
	Nome          string `json:"nome"`
	Estado        string `json:"estado"`
	TextoCompleto string `json:"texto_completo"`
}

func toResponse(m *models.Municipality) MunicipalityResponse {
	return MunicipalityResponse{
		ID:            m.ID,
		Nome:          m.Name,
		Estado:        m.State,
		TextoCompleto: m.FullText(),
	}
}

func byName(db *gorm.DB, search string) *gorm.DB {
	q := db.Model(&models.Municipality{})
	if search != "" {
		q = filter.AllWords("search", "name", search).Apply(q)
	}
	return q.Order("name ASC")
}

// GET /api/municipios?search=&limit=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLimit)
		if limit <= 0 {
			limit = defaultLimit
		}
		if limit > maxLimit {
			limit = maxLimit
		}

		var list []models.Municipality
		if err := byName(database.DB, strings.TrimSpace(c.Query("search"))).Limit(limit).Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os municípios")
		}

		out := make([]MunicipalityResponse, 0, len(list))
		for i := range list {
			out = append(out, toResponse(&list[i]))
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"municipios": out,
			"total":      len(out),
		})
	}
}

// GET /api/municipios/:id
func DetailHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusNotFound, "Município não encontrado")
		}

		var m models.Municipality
		if err := database.DB.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Município não encontrado")
			}
			return err
		}
		return c.JSON(fiber.Map{"success": true, "municipio": toResponse(&m)})
	}
}

// GET /api/municipios/autocomplete?q=
func AutocompleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		results := []fiber.Map{}
		if len([]rune(q)) < 2 {
			return c.JSON(fiber.Map{"results": results})
		}

		var list []models.Municipality
		if err := byName(database.DB, q).Limit(autocompleteLimit).Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível buscar os municípios")
		}
		for _, m := range list {
			// o nome é o identificador usado pelos formulários
			results = append(results, fiber.Map{
				"id":   m.Name,
				"text": m.FullText(),
				"nome": m.Name,
			})
		}
		return c.JSON(fiber.Map{"results": results})
	}
}

type createRequest struct {
	Nome   string `json:"nome" form:"nome"`
	Estado string `json:"estado" form:"estado"`
}

// POST /api/municipios (staff)
func CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dados inválidos")
		}
		name := strings.TrimSpace(req.Nome)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome do município é obrigatório")
		}
		state := strings.ToUpper(strings.TrimSpace(req.Estado))
		if state == "" {
			state = models.DefaultState
		}
		if len(state) != 2 {
			return fiber.NewError(fiber.StatusBadRequest, "Estado deve ter 2 letras")
		}

		var n int64
		if err := database.DB.Model(&models.Municipality{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Município já cadastrado")
		}

		m := models.Municipality{Name: name, State: state}
		if err := database.DB.Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao cadastrar município")
		}

		audit.Record(c, models.EntityMunicipality, m.ID, models.AuditActionCreate,
			fmt.Sprintf("Município cadastrado: %s", m.FullText()), nil, m)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":   true,
			"message":   "Município cadastrado com sucesso!",
			"municipio": toResponse(&m),
		})
	}
}
