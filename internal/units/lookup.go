package units

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const LocalSource = "Sistema Local de Cadastro"

type lookupRequest struct {
	NomeUnidade string `json:"nome_unidade"`
}

// Match resultado da busca local por nome.
type Match struct {
	Unit     *models.HealthUnit
	Multiple bool
	Stage    string
}

// keywords palavras com mais de 2 letras, em minúsculas.
func keywords(name string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func firstOf(q *gorm.DB) ([]models.HealthUnit, error) {
	var found []models.HealthUnit
	err := q.Preload("CreatedBy").Order("id ASC").Limit(2).Find(&found).Error
	return found, err
}

// FindByName nome exato (sem caixa) → substring → todas as palavras → duas primeiras palavras.
// Só os dois primeiros estágios sinalizam múltiplos resultados.
func FindByName(db *gorm.DB, name string) (*Match, error) {
	name = strings.TrimSpace(name)
	base := func() *gorm.DB { return db.Model(&models.HealthUnit{}) }

	// LOWER do Postgres dobra acentos; o do SQLite só ASCII ("SAÚDE" não casa com "Saúde").
	found, err := firstOf(base().Where("LOWER(name) = ?", strings.ToLower(name)))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return &Match{Unit: &found[0], Multiple: len(found) > 1, Stage: "exata"}, nil
	}

	found, err = firstOf(filter.AllWords("nome_unidade", "name", name).Apply(base()))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return &Match{Unit: &found[0], Multiple: len(found) > 1, Stage: "substring"}, nil
	}

	words := keywords(name)
	if len(words) == 0 {
		return nil, nil
	}
	found, err = firstOf(filter.AllWords("nome_unidade", "name", words...).Apply(base()))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return &Match{Unit: &found[0], Stage: "palavras"}, nil
	}

	if len(words) > 2 {
		words = words[:2]
	}
	found, err = firstOf(filter.AllWords("nome_unidade", "name", words...).Apply(base()))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return &Match{Unit: &found[0], Stage: "palavras_importantes"}, nil
	}
	return nil, nil
}

// Similar até 5 nomes que contêm a primeira palavra digitada.
func Similar(db *gorm.DB, name string) ([]string, error) {
	fields := strings.Fields(name)
	names := []string{}
	if len(fields) == 0 {
		return names, nil
	}
	err := filter.AllWords("nome_unidade", "name", fields[0]).
		Apply(db.Model(&models.HealthUnit{})).
		Order("name ASC").
		Limit(5).
		Pluck("name", &names).Error
	return names, err
}

func lookupData(u *models.HealthUnit, cfg *config.Config) fiber.Map {
	return fiber.Map{
		"id":                    u.ID,
		"nome":                  u.Name,
		"municipio":             orDefault(u.Municipality, notInformed),
		"cnes":                  u.CNESValue(),
		"tipo":                  u.Type.Label(),
		"tipo_codigo":           string(u.Type),
		"endereco":              orDefault(u.Address, notInformed),
		"telefone":              orDefault(u.Phone, notInformed),
		"responsavel":           orDefault(u.Manager, notInformed),
		"email":                 orDefault(u.Email, notInformed),
		"horario_funcionamento": orDefault(u.OpeningHours, notInformed),
		"servicos_emergencia":   u.EmergencyServices,
		"data_cadastro":         u.CreatedAt.In(cfg.Location()).Format(dateTimeLayout),
		"usuario_cadastrante":   u.CreatorName(),
	}
}

// POST /api/unidades/consultar
func LookupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req lookupRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"sucesso": false,
				"erro":    "Erro ao decodificar JSON da requisição",
			})
		}
		name := strings.TrimSpace(req.NomeUnidade)
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"sucesso": false,
				"erro":    "Nome da unidade é obrigatório",
			})
		}

		match, err := FindByName(database.DB, name)
		if err != nil {
			zap.L().Error("consulta local de unidade falhou", zap.String("nome", name), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"sucesso": false,
				"erro":    fmt.Sprintf("Erro interno do servidor: %v", err),
			})
		}

		if match == nil {
			similar, err := Similar(database.DB, name)
			if err != nil {
				zap.L().Warn("busca de unidades similares falhou", zap.Error(err))
			}
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"sucesso":            false,
				"erro":               fmt.Sprintf("Unidade \"%s\" não encontrada no sistema", name),
				"unidades_similares": similar,
			})
		}

		zap.L().Debug("unidade encontrada",
			zap.String("nome", name),
			zap.String("estagio", match.Stage),
			zap.Uint("id", match.Unit.ID),
		)

		body := fiber.Map{
			"sucesso": true,
			"unidade": lookupData(match.Unit, cfg),
			"fonte":   LocalSource,
		}
		if match.Multiple {
			body["aviso"] = "Múltiplas unidades encontradas, retornando a primeira"
		}
		return c.JSON(body)
	}
}
