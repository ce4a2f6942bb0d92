package admin

import (
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type GeneralUserStats struct {
	TotalUsuarios       int64 `json:"total_usuarios"`
	UsuariosAtivos      int64 `json:"usuarios_ativos"`
	UsuariosAdmins      int64 `json:"usuarios_admins"`
	UsuariosRecentes    int64 `json:"usuarios_recentes"`
	UsuariosInativos    int64 `json:"usuarios_inativos"`
	UsuariosComEmail    int64 `json:"usuarios_com_email"`
	UsuariosComChamadas int64 `json:"usuarios_com_chamadas"`
	UsuariosComUnidades int64 `json:"usuarios_com_unidades"`
}

type LatestUser struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	NomeCompleto  string `json:"nome_completo"`
	Email         string `json:"email"`
	IsActive      bool   `json:"is_active"`
	IsStaff       bool   `json:"is_staff"`
	DateJoined    string `json:"date_joined"`
	TotalChamadas int64  `json:"total_chamadas"`
	TotalUnidades int64  `json:"total_unidades"`
}

type MonthCount struct {
	Mes      string `json:"mes"`
	Nome     string `json:"nome"`
	Usuarios int64  `json:"usuarios"`
}

type UserStatistics struct {
	Gerais    GeneralUserStats `json:"estatisticas_gerais"`
	Ultimos   []LatestUser     `json:"ultimos_usuarios"`
	Mensais   []MonthCount     `json:"estatisticas_mensais"`
	Timestamp string           `json:"timestamp"`
}

func distinctCreators(db *gorm.DB, model any) (int64, error) {
	var n int64
	err := db.Model(model).
		Where("created_by_id IS NOT NULL").
		Distinct("created_by_id").
		Count(&n).Error
	return n, err
}

func joinedBetween(db *gorm.DB, start, end time.Time) (int64, error) {
	var n int64
	err := db.Model(&models.User{}).
		Where("date_joined >= ? AND date_joined < ?", start, end).
		Count(&n).Error
	return n, err
}

// BuildUserStatistics painel de usuários: totais, cinco mais recentes e seis meses.
func BuildUserStatistics(db *gorm.DB, loc *time.Location, now time.Time) (*UserStatistics, error) {
	totals, err := userTotals(db)
	if err != nil {
		return nil, err
	}
	s := &UserStatistics{
		Gerais: GeneralUserStats{
			TotalUsuarios:    totals.TotalUsuarios,
			UsuariosAtivos:   totals.UsuariosAtivos,
			UsuariosAdmins:   totals.UsuariosStaff,
			UsuariosInativos: totals.UsuariosInativos,
		},
		Timestamp: now.In(loc).Format(time.RFC3339),
	}
	g := &s.Gerais

	if err := db.Model(&models.User{}).
		Where("date_joined >= ?", now.AddDate(0, 0, -30).UTC()).
		Count(&g.UsuariosRecentes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).
		Where("email IS NOT NULL AND email <> ''").
		Count(&g.UsuariosComEmail).Error; err != nil {
		return nil, err
	}
	if g.UsuariosComChamadas, err = distinctCreators(db, &models.CallRecord{}); err != nil {
		return nil, err
	}
	if g.UsuariosComUnidades, err = distinctCreators(db, &models.HealthUnit{}); err != nil {
		return nil, err
	}

	var latest []models.User
	if err := db.Order("date_joined DESC").Order("id DESC").Limit(5).Find(&latest).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(latest))
	for i := range latest {
		ids[i] = latest[i].ID
	}
	calls, err := countByCreator(db, &models.CallRecord{}, ids)
	if err != nil {
		return nil, err
	}
	units, err := countByCreator(db, &models.HealthUnit{}, ids)
	if err != nil {
		return nil, err
	}
	s.Ultimos = make([]LatestUser, 0, len(latest))
	for i := range latest {
		u := &latest[i]
		s.Ultimos = append(s.Ultimos, LatestUser{
			ID:            u.ID,
			Username:      u.Username,
			NomeCompleto:  u.FullName(),
			Email:         u.Email,
			IsActive:      u.IsActive,
			IsStaff:       u.IsStaff,
			DateJoined:    u.DateJoined.In(loc).Format(dateTimeLayout),
			TotalChamadas: calls[u.ID],
			TotalUnidades: units[u.ID],
		})
	}

	for _, m := range filter.LastMonths(now, loc, 6) {
		n, err := joinedBetween(db, m.Start, m.End)
		if err != nil {
			return nil, err
		}
		s.Mensais = append(s.Mensais, MonthCount{Mes: m.Label, Nome: m.Name, Usuarios: n})
	}
	return s, nil
}

// GET /api/usuarios/estatisticas
func StatisticsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := BuildUserStatistics(database.DB, cfg.Location(), time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao carregar estatísticas: "+err.Error())
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    stats,
			"message": "Estatísticas carregadas com sucesso",
		})
	}
}
