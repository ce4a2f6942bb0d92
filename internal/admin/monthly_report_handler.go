package admin

import (
	"fmt"
	"strconv"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	monthlyReportBase = "relatorio_usuarios_por_mes"
	secondsLayout     = "02/01/2006 15:04:05"
)

type MonthSummary struct {
	Nome             string
	Ano              int
	MesNumero        int
	Total            int64
	Ativos           int64
	Admins           int64
	Comuns           int64
	TaxaAtivacao     float64
	PercentualAdmins float64
}

type Trend struct {
	Mes        string
	Atual      int64
	Anterior   int64
	Absoluto   int64
	Percentual float64
	Tendencia  string
}

type PeriodStats struct {
	Total     int64
	Ativos    int64
	Admins    int64
	MediaMes  float64
	MelhorMes string
	MaximoMes int64
	Meses     int
	GeradoEm  string
}

// MonthlyUsersReport novos usuários por mês de calendário, do mais antigo ao atual.
type MonthlyUsersReport struct {
	Months  []MonthSummary
	Details export.Table
	Period  PeriodStats
	Trends  []Trend
}

func ratio2(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 2)
}

func trendLabel(diff int64) string {
	switch {
	case diff > 0:
		return "Crescimento"
	case diff < 0:
		return "Decréscimo"
	}
	return "Estável"
}

func orNotInformed(s string) string {
	if s == "" {
		return "Não informado"
	}
	return s
}

// BuildMonthlyUsersReport uma consulta por mês; contagens de unidades e chamadas
// carregadas uma única vez.
func BuildMonthlyUsersReport(db *gorm.DB, loc *time.Location, now time.Time, months int) (*MonthlyUsersReport, error) {
	counts, err := loadCounts(db)
	if err != nil {
		return nil, err
	}

	r := &MonthlyUsersReport{
		Details: export.Table{
			Name: "Usuários Detalhados",
			Headers: []string{
				"Mês Cadastro", "Data Cadastro", "Nome Completo", "Nome de Usuário", "Email", "Tipo",
				"Status", "Superusuário", "Último Login", "Unidades Cadastradas", "Chamadas Registradas",
				"Dias Desde Cadastro",
			},
			Widths: []float64{18, 20, 30, 20, 30, 14, 10, 12, 20, 12, 12, 12},
		},
	}
	today, _ := filter.Day(now, loc)

	ranges := filter.LastMonths(now, loc, months)
	for _, m := range ranges {
		var users []models.User
		if err := db.Where("date_joined >= ? AND date_joined < ?", m.Start, m.End).
			Order("date_joined ASC").Order("id ASC").
			Find(&users).Error; err != nil {
			return nil, err
		}

		start := m.Start.In(loc)
		s := MonthSummary{Nome: m.Name, Ano: start.Year(), MesNumero: int(start.Month()), Total: int64(len(users))}
		for i := range users {
			u := &users[i]
			if u.IsActive {
				s.Ativos++
			}
			if u.IsStaff {
				s.Admins++
			}

			joined, _ := filter.Day(u.DateJoined, loc)
			last := "Nunca fez login"
			if u.LastLogin != nil {
				last = u.LastLogin.In(loc).Format(secondsLayout)
			}
			r.Details.Append(
				m.Name,
				u.DateJoined.In(loc).Format(secondsLayout),
				orNotInformed(u.FullName()),
				u.Username,
				orNotInformed(u.Email),
				roleLabel(u),
				statusLabel(u),
				export.YesNo(u.IsSuperuser),
				last,
				strconv.FormatInt(counts.Units[u.ID], 10),
				strconv.FormatInt(counts.Calls[u.ID], 10),
				strconv.Itoa(int(today.Sub(joined).Hours()/24)),
			)
		}
		s.Comuns = s.Total - s.Admins
		s.TaxaAtivacao = ratio2(s.Ativos, s.Total)
		s.PercentualAdmins = ratio2(s.Admins, s.Total)
		r.Months = append(r.Months, s)
	}

	p := &r.Period
	p.Meses = months
	p.GeradoEm = now.In(loc).Format(secondsLayout)
	for _, s := range r.Months {
		p.Total += s.Total
		p.Ativos += s.Ativos
		p.Admins += s.Admins
		if p.MelhorMes == "" || s.Total > p.MaximoMes {
			p.MelhorMes = s.Nome
			p.MaximoMes = s.Total
		}
	}
	if months > 0 {
		p.MediaMes = round(float64(p.Total)/float64(months), 2)
	}

	for i := 1; i < len(r.Months); i++ {
		cur, prev := r.Months[i], r.Months[i-1]
		diff := cur.Total - prev.Total
		r.Trends = append(r.Trends, Trend{
			Mes:        cur.Nome,
			Atual:      cur.Total,
			Anterior:   prev.Total,
			Absoluto:   diff,
			Percentual: ratio2(diff, prev.Total),
			Tendencia:  trendLabel(diff),
		})
	}
	return r, nil
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (r *MonthlyUsersReport) summaryTable() export.Table {
	t := export.Table{
		Name: "Resumo Mensal",
		Headers: []string{
			"Mês", "Ano", "Mês Número", "Total Novos Usuários", "Usuários Ativos", "Administradores",
			"Usuários Comuns", "Taxa de Ativação (%)", "Percentual Admins (%)",
		},
		Widths: []float64{20, 8, 12, 20, 16, 16, 16, 20, 20},
	}
	for _, s := range r.Months {
		t.Append(
			s.Nome,
			strconv.Itoa(s.Ano),
			strconv.Itoa(s.MesNumero),
			strconv.FormatInt(s.Total, 10),
			strconv.FormatInt(s.Ativos, 10),
			strconv.FormatInt(s.Admins, 10),
			strconv.FormatInt(s.Comuns, 10),
			decimal(s.TaxaAtivacao),
			decimal(s.PercentualAdmins),
		)
	}
	return t
}

func (r *MonthlyUsersReport) periodTable() export.Table {
	p := r.Period
	best := p.MelhorMes
	if best == "" {
		best = "N/A"
	}
	t := export.Table{
		Name:    "Estatísticas Período",
		Headers: []string{"Métrica", "Valor"},
		Widths:  []float64{30, 30},
	}
	t.Append("Total Usuários Criados", strconv.FormatInt(p.Total, 10))
	t.Append("Usuários Ativos", strconv.FormatInt(p.Ativos, 10))
	t.Append("Administradores", strconv.FormatInt(p.Admins, 10))
	t.Append("Taxa Média Mensal", decimal(p.MediaMes))
	t.Append("Melhor Mês", best)
	t.Append("Máximo em um Mês", strconv.FormatInt(p.MaximoMes, 10))
	t.Append("Período Analisado", fmt.Sprintf("%d meses", p.Meses))
	t.Append("Data do Relatório", p.GeradoEm)
	return t
}

func (r *MonthlyUsersReport) trendsTable() export.Table {
	t := export.Table{
		Name: "Análise Tendências",
		Headers: []string{
			"Mês", "Usuários Mês Atual", "Usuários Mês Anterior", "Crescimento Absoluto", "Crescimento (%)", "Tendência",
		},
		Widths: []float64{20, 18, 20, 20, 16, 14},
	}
	for _, tr := range r.Trends {
		t.Append(
			tr.Mes,
			strconv.FormatInt(tr.Atual, 10),
			strconv.FormatInt(tr.Anterior, 10),
			strconv.FormatInt(tr.Absoluto, 10),
			decimal(tr.Percentual),
			tr.Tendencia,
		)
	}
	return t
}

// Tables abas na ordem do arquivo; tendências só com dois meses ou mais.
func (r *MonthlyUsersReport) Tables(format export.Format) []export.Table {
	tables := []export.Table{r.summaryTable()}
	if format == export.FormatPDF {
		tables = append(tables, r.periodTable())
	} else {
		tables = append(tables, r.Details, r.periodTable())
	}
	if len(r.Trends) > 0 {
		tables = append(tables, r.trendsTable())
	}
	return tables
}

// GET /api/relatorios/usuarios-mes/{excel,csv,pdf}
func MonthlyUsersExportHandler(cfg *config.Config, format export.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		months := ParsePeriod(c.Query("periodo"))
		opts := export.PDFOptions{
			Title:      "Relatório de Novos Usuários por Mês",
			Landscape:  true,
			StaticPath: cfg.StaticPath,
			Location:   loc,
		}

		report, err := BuildMonthlyUsersReport(database.DB, loc, time.Now(), months)
		if err != nil {
			if format == export.FormatPDF {
				return export.Send(c, monthlyReportBase+"_erro.pdf", export.MIMEPDF, export.ErrorPDF(opts.Title, err))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}

		opts.Lines = []string{
			fmt.Sprintf("Período analisado: %d meses", months),
			fmt.Sprintf("Total de novos usuários: %d", report.Period.Total),
		}
		return export.Write(c, format, monthlyReportBase, opts, report.Tables(format)...)
	}
}
