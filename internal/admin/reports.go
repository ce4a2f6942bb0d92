package admin

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultReportMonths = 12
	maxReportMonths     = 60
	topUsersWindow      = 15
	topListLimit        = 10
)

// Pontos por item na pontuação de atividade.
const (
	pointsPerCall     = 3
	pointsPerUnit     = 10
	pointsPerResolved = 2
)

type TopUser struct {
	ID                  uint    `json:"id"`
	Username            string  `json:"username"`
	Nome                string  `json:"nome"`
	IsStaff             bool    `json:"is_staff"`
	TotalChamadas       int64   `json:"total_chamadas"`
	ChamadasResolvidas  int64   `json:"chamadas_resolvidas"`
	UnidadesCadastradas int64   `json:"unidades_cadastradas"`
	TaxaResolucao       float64 `json:"taxa_resolucao"`
	Pontuacao           int64   `json:"pontuacao_atividade"`
	Nivel               string  `json:"nivel"`
	DiasDesdeCadastro   int     `json:"dias_desde_cadastro"`
	MediaDiaria         float64 `json:"media_diaria"`
	Exemplo             bool    `json:"exemplo"`
}

// ExampleTopUser linha de demonstração usada quando ninguém tem atividade.
func ExampleTopUser() TopUser {
	return TopUser{
		Username:            "exemplo",
		Nome:                "Usuário Exemplo",
		TotalChamadas:       5,
		ChamadasResolvidas:  4,
		UnidadesCadastradas: 1,
		TaxaResolucao:       80.0,
		Pontuacao:           25,
		Nivel:               "Avançado",
		DiasDesdeCadastro:   30,
		MediaDiaria:         0.17,
		Exemplo:             true,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}

// ActivityScore chamadas×3 + unidades×10 + resolvidas×2.
func ActivityScore(calls, units, resolved int64) int64 {
	return calls*pointsPerCall + units*pointsPerUnit + resolved*pointsPerResolved
}

func Level(score int64) string {
	switch {
	case score >= 50:
		return "Expert"
	case score >= 25:
		return "Avançado"
	case score >= 10:
		return "Intermediário"
	}
	return "Iniciante"
}

func resolvedByCreator(db *gorm.DB, ids []uint) (map[uint]int64, error) {
	return countByCreator(db.Where("status = ?", models.StatusResolved), &models.CallRecord{}, ids)
}

// TopUsers entre os 15 cadastros mais recentes, quem tem chamada ou unidade,
// por pontuação decrescente. O segundo retorno indica a linha de exemplo.
func TopUsers(db *gorm.DB, loc *time.Location, now time.Time) ([]TopUser, bool, error) {
	var users []models.User
	if err := db.Order("date_joined DESC").Order("id DESC").Limit(topUsersWindow).Find(&users).Error; err != nil {
		return nil, false, err
	}
	if len(users) == 0 {
		return []TopUser{ExampleTopUser()}, true, nil
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	calls, err := countByCreator(db, &models.CallRecord{}, ids)
	if err != nil {
		return nil, false, err
	}
	units, err := countByCreator(db, &models.HealthUnit{}, ids)
	if err != nil {
		return nil, false, err
	}
	resolved, err := resolvedByCreator(db, ids)
	if err != nil {
		return nil, false, err
	}

	today, _ := filter.Day(now, loc)
	var out []TopUser
	for i := range users {
		u := &users[i]
		c, un, r := calls[u.ID], units[u.ID], resolved[u.ID]
		if c == 0 && un == 0 {
			continue
		}
		joined, _ := filter.Day(u.DateJoined, loc)
		days := int(today.Sub(joined).Hours() / 24)
		score := ActivityScore(c, un, r)
		out = append(out, TopUser{
			ID:                  u.ID,
			Username:            u.Username,
			Nome:                u.DisplayName(),
			IsStaff:             u.IsStaff,
			TotalChamadas:       c,
			ChamadasResolvidas:  r,
			UnidadesCadastradas: un,
			TaxaResolucao:       percent(r, c),
			Pontuacao:           score,
			Nivel:               Level(score),
			DiasDesdeCadastro:   days,
			MediaDiaria:         round(float64(c)/float64(max(days, 1)), 2),
		})
	}
	if len(out) == 0 {
		return []TopUser{ExampleTopUser()}, true, nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pontuacao > out[j].Pontuacao })
	return out, false, nil
}

type GeneralStats struct {
	TotalUsuarios  int64 `json:"total_usuarios"`
	UsuariosAtivos int64 `json:"usuarios_ativos"`
	UsuariosAdmins int64 `json:"usuarios_admins"`
	TotalUnidades  int64 `json:"total_unidades"`
	TotalChamadas  int64 `json:"total_chamadas"`
}

type LabeledCount struct {
	Codigo string `json:"codigo"`
	Label  string `json:"label"`
	Total  int64  `json:"total"`
}

type MonthTotal struct {
	Mes   string `json:"mes"`
	Nome  string `json:"nome"`
	Total int64  `json:"total"`
}

type MunicipalityCount struct {
	Municipio string `json:"municipio"`
	Total     int64  `json:"total"`
}

type ActiveUnit struct {
	ID            uint   `json:"id"`
	Nome          string `json:"nome"`
	Municipio     string `json:"municipio"`
	TotalChamadas int64  `json:"total_chamadas"`
}

type UserCallCount struct {
	UsuarioID uint   `json:"usuario_id"`
	Nome      string `json:"nome"`
	Total     int64  `json:"total"`
}

type UsersSection struct {
	PorMes             []MonthTotal     `json:"por_mes"`
	PorTipo            map[string]int64 `json:"por_tipo"`
	UsuariosMesAtual   int64            `json:"usuarios_mes_atual"`
	TopUsuarios        []TopUser        `json:"top_usuarios"`
	TopUsuariosExemplo bool             `json:"top_usuarios_exemplo"`
}

type UnitsSection struct {
	PorTipo      []LabeledCount      `json:"por_tipo"`
	PorMunicipio []MunicipalityCount `json:"por_municipio"`
	MaisAtivas   []ActiveUnit        `json:"mais_ativas"`
}

type CallsSection struct {
	PorTipo                   []LabeledCount  `json:"por_tipo"`
	PorStatus                 []LabeledCount  `json:"por_status"`
	PorMes                    []MonthTotal    `json:"por_mes"`
	PorUsuario                []UserCallCount `json:"por_usuario"`
	TotalUsuariosComChamadas  int             `json:"total_usuarios_com_chamadas"`
	TotalChamadasUsuarioAtual int64           `json:"total_chamadas_usuario_atual"`
	UsuarioEhAdmin            bool            `json:"usuario_eh_admin"`
}

type Insight struct {
	Tipo      string `json:"tipo"`
	Titulo    string `json:"titulo"`
	Descricao string `json:"descricao"`
}

type Analysis struct {
	CrescimentoUsuarios float64   `json:"crescimento_usuarios"`
	Insights            []Insight `json:"insights"`
}

type Report struct {
	Periodo   int          `json:"periodo_selecionado"`
	DataAtual string       `json:"data_atual"`
	Gerais    GeneralStats `json:"stats_gerais"`
	Usuarios  UsersSection `json:"usuarios_stats"`
	Unidades  UnitsSection `json:"unidades_stats"`
	Chamadas  CallsSection `json:"chamadas_stats"`
	Analises  Analysis     `json:"analises"`
}

func generalStats(db *gorm.DB) (*GeneralStats, error) {
	totals, err := userTotals(db)
	if err != nil {
		return nil, err
	}
	g := &GeneralStats{
		TotalUsuarios:  totals.TotalUsuarios,
		UsuariosAtivos: totals.UsuariosAtivos,
		UsuariosAdmins: totals.UsuariosStaff,
	}
	if err := db.Model(&models.HealthUnit{}).Count(&g.TotalUnidades).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CallRecord{}).Count(&g.TotalChamadas).Error; err != nil {
		return nil, err
	}
	return g, nil
}

func monthlySeries(db *gorm.DB, model any, column string, months []filter.MonthRange) ([]MonthTotal, error) {
	out := make([]MonthTotal, 0, len(months))
	for _, m := range months {
		var n int64
		if err := db.Model(model).
			Where(column+" >= ? AND "+column+" < ?", m.Start, m.End).
			Count(&n).Error; err != nil {
			return nil, err
		}
		out = append(out, MonthTotal{Mes: m.Label, Nome: m.Name, Total: n})
	}
	return out, nil
}

// labeled segue a ordem das escolhas; códigos fora da lista vão ao final.
func labeled(choices []models.Choice, counts map[string]int64, skipZero bool) []LabeledCount {
	out := make([]LabeledCount, 0, len(choices))
	seen := make(map[string]bool, len(choices))
	for _, ch := range choices {
		seen[ch.Code] = true
		if skipZero && counts[ch.Code] == 0 {
			continue
		}
		out = append(out, LabeledCount{Codigo: ch.Code, Label: ch.Label, Total: counts[ch.Code]})
	}
	var extra []string
	for code := range counts {
		if !seen[code] {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	for _, code := range extra {
		out = append(out, LabeledCount{Codigo: code, Label: code, Total: counts[code]})
	}
	return out
}

func municipalityRanking(db *gorm.DB) ([]MunicipalityCount, error) {
	var rows []MunicipalityCount
	err := db.Model(&models.HealthUnit{}).
		Select("municipality AS municipio, COUNT(*) AS total").
		Group("municipality").
		Order("total DESC").Order("municipality ASC").
		Limit(topListLimit).
		Scan(&rows).Error
	return rows, err
}

// mostActiveUnits chamadas associadas pelo nome da unidade (texto livre).
func mostActiveUnits(db *gorm.DB) ([]ActiveUnit, error) {
	var rows []ActiveUnit
	err := db.Model(&models.HealthUnit{}).
		Select("health_units.id AS id, health_units.name AS nome, health_units.municipality AS municipio, COUNT(call_records.id) AS total_chamadas").
		Joins("LEFT JOIN call_records ON call_records.unit_name = health_units.name").
		Group("health_units.id, health_units.name, health_units.municipality").
		Order("total_chamadas DESC").Order("health_units.name ASC").
		Limit(topListLimit).
		Scan(&rows).Error
	return rows, err
}

type callsPerUserRow struct {
	UsuarioID uint
	Username  string
	FirstName string
	LastName  string
	Total     int64
}

func callsPerUser(db *gorm.DB) ([]UserCallCount, error) {
	var rows []callsPerUserRow
	if err := db.Model(&models.CallRecord{}).
		Select("users.id AS usuario_id, users.username, users.first_name, users.last_name, COUNT(call_records.id) AS total").
		Joins("JOIN users ON users.id = call_records.created_by_id").
		Group("users.id, users.username, users.first_name, users.last_name").
		Order("total DESC").Order("users.username ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]UserCallCount, 0, len(rows))
	for _, r := range rows {
		u := models.User{Username: r.Username, FirstName: r.FirstName, LastName: r.LastName}
		out = append(out, UserCallCount{UsuarioID: r.UsuarioID, Nome: u.DisplayName(), Total: r.Total})
	}
	return out, nil
}

// ParsePeriod meses do relatório; inválido ou ausente vale 12.
func ParsePeriod(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return defaultReportMonths
	}
	return min(n, maxReportMonths)
}

// BuildReport calculado na hora; por_usuario só para administradores.
func BuildReport(db *gorm.DB, viewer *models.User, loc *time.Location, now time.Time, months int) (*Report, error) {
	r := &Report{Periodo: months, DataAtual: now.In(loc).Format(dateTimeLayout)}

	g, err := generalStats(db)
	if err != nil {
		return nil, err
	}
	r.Gerais = *g

	series := filter.LastMonths(now, loc, months)

	// usuários
	if r.Usuarios.PorMes, err = monthlySeries(db, &models.User{}, "date_joined", series); err != nil {
		return nil, err
	}
	r.Usuarios.PorTipo = map[string]int64{
		"usuarios_comuns": g.TotalUsuarios - g.UsuariosAdmins,
		"administradores": g.UsuariosAdmins,
	}
	current := filter.LastMonths(now, loc, 2)
	cur, err := joinedBetween(db, current[1].Start, current[1].End)
	if err != nil {
		return nil, err
	}
	prev, err := joinedBetween(db, current[0].Start, current[0].End)
	if err != nil {
		return nil, err
	}
	r.Usuarios.UsuariosMesAtual = cur
	if r.Usuarios.TopUsuarios, r.Usuarios.TopUsuariosExemplo, err = TopUsers(db, loc, now); err != nil {
		return nil, err
	}

	// unidades
	unitTypes, err := codeCounts(db, &models.HealthUnit{}, "type")
	if err != nil {
		return nil, err
	}
	r.Unidades.PorTipo = labeled(models.UnitTypes, unitTypes, false)
	if r.Unidades.PorMunicipio, err = municipalityRanking(db); err != nil {
		return nil, err
	}
	if r.Unidades.MaisAtivas, err = mostActiveUnits(db); err != nil {
		return nil, err
	}

	// chamadas
	callTypes, err := codeCounts(db, &models.CallRecord{}, "call_type")
	if err != nil {
		return nil, err
	}
	r.Chamadas.PorTipo = labeled(models.CallTypes, callTypes, true)
	statuses, err := codeCounts(db, &models.CallRecord{}, "status")
	if err != nil {
		return nil, err
	}
	r.Chamadas.PorStatus = labeled(models.CallStatuses, statuses, false)
	if r.Chamadas.PorMes, err = monthlySeries(db, &models.CallRecord{}, "created_at", series); err != nil {
		return nil, err
	}
	r.Chamadas.PorUsuario = []UserCallCount{}
	if viewer != nil {
		r.Chamadas.UsuarioEhAdmin = viewer.IsStaff
		if err := db.Model(&models.CallRecord{}).
			Where("created_by_id = ?", viewer.ID).
			Count(&r.Chamadas.TotalChamadasUsuarioAtual).Error; err != nil {
			return nil, err
		}
		if viewer.IsStaff {
			if r.Chamadas.PorUsuario, err = callsPerUser(db); err != nil {
				return nil, err
			}
			r.Chamadas.TotalUsuariosComChamadas = len(r.Chamadas.PorUsuario)
		}
	}

	// análises
	r.Analises.Insights = []Insight{}
	if prev > 0 {
		r.Analises.CrescimentoUsuarios = round(float64(cur-prev)/float64(prev)*100, 1)
	}
	if g.TotalUsuarios > 0 {
		ratio := float64(g.UsuariosAtivos) / float64(g.TotalUsuarios)
		if ratio > 0.8 {
			r.Analises.Insights = append(r.Analises.Insights, Insight{
				Tipo:      "positivo",
				Titulo:    "Alta Taxa de Usuários Ativos",
				Descricao: fmt.Sprintf("%.1f%% dos usuários estão ativos", ratio*100),
			})
		}
	}
	if top := r.Usuarios.TopUsuarios; !r.Usuarios.TopUsuariosExemplo && top[0].TotalChamadas > 50 {
		r.Analises.Insights = append(r.Analises.Insights, Insight{
			Tipo:      "destaque",
			Titulo:    "Usuário Mais Ativo",
			Descricao: fmt.Sprintf("%s registrou %d chamadas", top[0].Nome, top[0].TotalChamadas),
		})
	}
	return r, nil
}

// GET /api/relatorios
func ReportsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		months := ParsePeriod(c.Query("periodo"))
		report, err := BuildReport(database.DB, auth.CurrentUser(c), cfg.Location(), time.Now(), months)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao gerar relatórios: "+err.Error())
		}
		return c.JSON(fiber.Map{"success": true, "data": report})
	}
}
