package dashboard

import (
	"time"

	"central-chamadas-backend/internal/calls"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/units"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	latestUnits = 3
	latestCalls = 5
	dateLayout  = "02/01/2006 15:04"
)

type HomeStats struct {
	TotalUnidades         int64 `json:"total_unidades"`
	Executantes           int64 `json:"executantes"`
	Solicitantes          int64 `json:"solicitantes"`
	ExecutanteSolicitante int64 `json:"executante_solicitante"`
	TotalChamadas         int64 `json:"total_chamadas"`
	ChamadasHoje          int64 `json:"chamadas_hoje"`
	ChamadasMes           int64 `json:"chamadas_mes"`
}

type RecentUnit struct {
	ID        uint   `json:"id"`
	Nome      string `json:"nome"`
	Municipio string `json:"municipio"`
	Tipo      string `json:"tipo"`
	TipoLabel string `json:"tipo_display"`
	CNES      string `json:"cnes"`
	CriadoEm  string `json:"created_at"`
}

type RecentCall struct {
	ID            uint   `json:"id"`
	Codigo        string `json:"codigo"`
	NomeContato   string `json:"nome_contato"`
	Unidade       string `json:"unidade"`
	TipoChamada   string `json:"tipo_chamada_display"`
	Status        string `json:"status"`
	StatusDisplay string `json:"status_display"`
	DataCriacao   string `json:"data_criacao"`
}

type Home struct {
	Estatisticas    HomeStats    `json:"estatisticas"`
	UltimasUnidades []RecentUnit `json:"ultimas_unidades"`
	UltimasChamadas []RecentCall `json:"ultimas_chamadas"`
}

// BuildHome contagens gerais e os registros mais recentes.
func BuildHome(db *gorm.DB, loc *time.Location, now time.Time) (*Home, error) {
	byType, err := units.CountByType(db, filter.Spec{})
	if err != nil {
		return nil, err
	}
	h := &Home{
		Estatisticas: HomeStats{
			TotalUnidades:         byType.Total,
			Executantes:           byType.Executantes,
			Solicitantes:          byType.Solicitantes,
			ExecutanteSolicitante: byType.ExecutanteSolicitante,
			ChamadasHoje:          calls.CountSince(filter.Day(now, loc)),
			ChamadasMes:           calls.CountSince(filter.Month(now, loc)),
		},
		UltimasUnidades: []RecentUnit{},
		UltimasChamadas: []RecentCall{},
	}
	if err := db.Model(&models.CallRecord{}).Count(&h.Estatisticas.TotalChamadas).Error; err != nil {
		return nil, err
	}

	var us []models.HealthUnit
	if err := db.Order("created_at DESC").Order("id DESC").Limit(latestUnits).Find(&us).Error; err != nil {
		return nil, err
	}
	for i := range us {
		u := &us[i]
		h.UltimasUnidades = append(h.UltimasUnidades, RecentUnit{
			ID:        u.ID,
			Nome:      u.Name,
			Municipio: u.Municipality,
			Tipo:      string(u.Type),
			TipoLabel: u.Type.Label(),
			CNES:      u.CNESValue(),
			CriadoEm:  u.CreatedAt.In(loc).Format(dateLayout),
		})
	}

	var cs []models.CallRecord
	if err := db.Order("created_at DESC").Order("id DESC").Limit(latestCalls).Find(&cs).Error; err != nil {
		return nil, err
	}
	for i := range cs {
		c := &cs[i]
		h.UltimasChamadas = append(h.UltimasChamadas, RecentCall{
			ID:            c.ID,
			Codigo:        calls.Code(c.ID),
			NomeContato:   c.ContactName,
			Unidade:       c.UnitName,
			TipoChamada:   c.TypeLabel(),
			Status:        c.Status,
			StatusDisplay: c.StatusLabel(),
			DataCriacao:   c.CreatedAt.In(loc).Format(dateLayout),
		})
	}
	return h, nil
}

// GET /api/dashboard/home
func HomeHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := BuildHome(database.DB, cfg.Location(), time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao carregar o painel: "+err.Error())
		}
		return c.JSON(fiber.Map{
			"success":          true,
			"estatisticas":     h.Estatisticas,
			"ultimas_unidades": h.UltimasUnidades,
			"ultimas_chamadas": h.UltimasChamadas,
		})
	}
}
