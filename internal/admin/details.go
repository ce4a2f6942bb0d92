package admin

import (
	"sort"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const recentLimit = 10

type DetailStats struct {
	TotalUnidades int64 `json:"total_unidades"`
	TotalChamadas int64 `json:"total_chamadas"`
	ChamadasHoje  int64 `json:"chamadas_hoje"`
	ChamadasMes   int64 `json:"chamadas_mes"`
	ChamadasAno   int64 `json:"chamadas_ano"`
	UnidadesMes   int64 `json:"unidades_mes"`
	UnidadesAno   int64 `json:"unidades_ano"`
}

type Activity struct {
	Tipo      string `json:"tipo"`
	Acao      string `json:"acao"`
	Descricao string `json:"descricao"`
	Data      string `json:"data"`
	ID        uint   `json:"id"`
	at        time.Time
}

type recentUnit struct {
	ID        uint   `json:"id"`
	Nome      string `json:"nome"`
	Tipo      string `json:"tipo"`
	Municipio string `json:"municipio"`
	CreatedAt string `json:"created_at"`
}

type recentCall struct {
	ID        uint   `json:"id"`
	Nome      string `json:"nome"`
	Unidade   string `json:"unidade"`
	Tipo      string `json:"tipo"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func countWindow(db *gorm.DB, model any, userID uint, start, end time.Time) (int64, error) {
	var n int64
	err := db.Model(model).
		Where("created_by_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Count(&n).Error
	return n, err
}

func detailStats(db *gorm.DB, userID uint, loc *time.Location, now time.Time) (*DetailStats, error) {
	var s DetailStats
	var err error
	if s.TotalUnidades, s.TotalChamadas, err = Dependents(db, userID); err != nil {
		return nil, err
	}

	windows := []struct {
		dst   *int64
		model any
		span  func(time.Time, *time.Location) (time.Time, time.Time)
	}{
		{&s.ChamadasHoje, &models.CallRecord{}, filter.Day},
		{&s.ChamadasMes, &models.CallRecord{}, filter.Month},
		{&s.ChamadasAno, &models.CallRecord{}, filter.Year},
		{&s.UnidadesMes, &models.HealthUnit{}, filter.Month},
		{&s.UnidadesAno, &models.HealthUnit{}, filter.Year},
	}
	for _, w := range windows {
		start, end := w.span(now, loc)
		if *w.dst, err = countWindow(db, w.model, userID, start, end); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// activities mescla unidades e chamadas mais recentes, da mais nova para a mais antiga.
func activities(units []models.HealthUnit, calls []models.CallRecord, loc *time.Location) []Activity {
	out := make([]Activity, 0, len(units)+len(calls))
	for i := range units {
		if i == 5 {
			break
		}
		u := &units[i]
		out = append(out, Activity{
			Tipo:      "unidade",
			Acao:      "Cadastrou unidade",
			Descricao: u.Name,
			Data:      u.CreatedAt.In(loc).Format(dateTimeLayout),
			ID:        u.ID,
			at:        u.CreatedAt,
		})
	}
	for i := range calls {
		if i == 5 {
			break
		}
		call := &calls[i]
		out = append(out, Activity{
			Tipo:      "chamada",
			Acao:      "Registrou chamada",
			Descricao: call.UnitName + " - " + call.TypeLabel(),
			Data:      call.CreatedAt.In(loc).Format(dateTimeLayout),
			ID:        call.ID,
			at:        call.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.After(out[j].at) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}

// GET /api/usuarios/:id
func DetailHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB
		user, err := findUser(db, c.Params("id"))
		if err != nil {
			return err
		}
		if !auth.IsStaff(c) && auth.CurrentUserID(c) != user.ID {
			return fiber.NewError(fiber.StatusForbidden, "Você não tem permissão para ver detalhes de outros usuários.")
		}

		loc := cfg.Location()
		stats, err := detailStats(db, user.ID, loc, time.Now())
		if err != nil {
			return err
		}

		var units []models.HealthUnit
		if err := db.Where("created_by_id = ?", user.ID).
			Order("created_at DESC").Order("id DESC").
			Limit(recentLimit).Find(&units).Error; err != nil {
			return err
		}
		var calls []models.CallRecord
		if err := db.Where("created_by_id = ?", user.ID).
			Order("created_at DESC").Order("id DESC").
			Limit(recentLimit).Find(&calls).Error; err != nil {
			return err
		}

		recentUnits := make([]recentUnit, 0, len(units))
		for i := range units {
			u := &units[i]
			recentUnits = append(recentUnits, recentUnit{
				ID:        u.ID,
				Nome:      u.Name,
				Tipo:      u.Type.Label(),
				Municipio: u.Municipality,
				CreatedAt: u.CreatedAt.In(loc).Format(dateTimeLayout),
			})
		}
		recentCalls := make([]recentCall, 0, len(calls))
		for i := range calls {
			call := &calls[i]
			recentCalls = append(recentCalls, recentCall{
				ID:        call.ID,
				Nome:      call.ContactName,
				Unidade:   call.UnitName,
				Tipo:      call.TypeLabel(),
				Status:    call.StatusLabel(),
				CreatedAt: call.CreatedAt.In(loc).Format(dateTimeLayout),
			})
		}

		var ultima *string
		if len(calls) > 0 {
			ultima = formatTime(&calls[0].CreatedAt, loc)
		}

		return c.JSON(fiber.Map{
			"success":             true,
			"usuario":             userJSONWithDates(user, loc),
			"estatisticas":        stats,
			"unidades_recentes":   recentUnits,
			"chamadas_recentes":   recentCalls,
			"atividades_recentes": activities(units, calls, loc),
			"ultima_atividade":    ultima,
			"perfil":              user.Profile,
		})
	}
}

func userJSONWithDates(u *models.User, loc *time.Location) fiber.Map {
	out := auth.UserJSON(u)
	out["nome_completo"] = u.FullName()
	out["date_joined_display"] = u.DateJoined.In(loc).Format(dateTimeLayout)
	out["last_login_display"] = formatTime(u.LastLogin, loc)
	return out
}
