package admin

import (
	"fmt"
	"strconv"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"

	"github.com/gofiber/fiber/v2"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func countsTable(name string, rows []LabeledCount) export.Table {
	t := export.Table{Name: name, Headers: []string{"Categoria", "Quantidade"}, Widths: []float64{40, 16}}
	for _, r := range rows {
		t.Append(r.Label, itoa(r.Total))
	}
	return t
}

// GeneralTables tabelas do relatório geral; quem não é administrador vê só as
// próprias chamadas no lugar do ranking por usuário.
func (r *Report) GeneralTables() []export.Table {
	g := r.Gerais
	stats := export.Table{Name: "Estatísticas Gerais", Headers: []string{"Métrica", "Valor"}, Widths: []float64{30, 16}}
	stats.Append("Total de Usuários", itoa(g.TotalUsuarios))
	stats.Append("Usuários Ativos", itoa(g.UsuariosAtivos))
	stats.Append("Administradores", itoa(g.UsuariosAdmins))
	stats.Append("Total de Unidades", itoa(g.TotalUnidades))
	stats.Append("Total de Chamadas", itoa(g.TotalChamadas))
	stats.Append("Crescimento de Usuários (%)", decimal(r.Analises.CrescimentoUsuarios))

	top := export.Table{
		Name: "Top Usuários",
		Headers: []string{
			"Usuário", "Nome", "Chamadas", "Resolvidas", "Unidades", "Taxa de Resolução (%)",
			"Pontuação", "Nível", "Exemplo",
		},
		Widths: []float64{16, 26, 10, 10, 10, 18, 10, 14, 10},
	}
	for _, u := range r.Usuarios.TopUsuarios {
		top.Append(
			u.Username,
			u.Nome,
			itoa(u.TotalChamadas),
			itoa(u.ChamadasResolvidas),
			itoa(u.UnidadesCadastradas),
			strconv.FormatFloat(u.TaxaResolucao, 'f', 1, 64),
			itoa(u.Pontuacao),
			u.Nivel,
			export.YesNo(u.Exemplo),
		)
	}

	tables := []export.Table{
		stats,
		top,
		countsTable("Unidades por Tipo", r.Unidades.PorTipo),
		countsTable("Chamadas por Status", r.Chamadas.PorStatus),
		countsTable("Chamadas por Tipo", r.Chamadas.PorTipo),
	}

	if r.Chamadas.UsuarioEhAdmin {
		perUser := export.Table{Name: "Chamadas por Usuário", Headers: []string{"Usuário", "Chamadas"}, Widths: []float64{30, 12}}
		for _, u := range r.Chamadas.PorUsuario {
			perUser.Append(u.Nome, itoa(u.Total))
		}
		tables = append(tables, perUser)
	} else {
		mine := export.Table{Name: "Minhas Chamadas", Headers: []string{"Métrica", "Valor"}, Widths: []float64{30, 16}}
		mine.Append("Chamadas registradas por você", itoa(r.Chamadas.TotalChamadasUsuarioAtual))
		tables = append(tables, mine)
	}
	return tables
}

// GeneralReportBase relatorio_geral_{username}_{YYYYmmdd_HHMMSS}
func GeneralReportBase(username string, now time.Time, loc *time.Location) string {
	return fmt.Sprintf("relatorio_geral_%s_%s", export.Filename(username), now.In(loc).Format("20060102_150405"))
}

// GET /api/relatorios/geral/{excel,csv,pdf}
func GeneralReportExportHandler(cfg *config.Config, format export.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		now := time.Now()
		viewer := auth.CurrentUser(c)
		username := ""
		if viewer != nil {
			username = viewer.Username
		}
		base := GeneralReportBase(username, now, loc)
		opts := export.PDFOptions{
			Title:      "Relatório Geral do Sistema",
			StaticPath: cfg.StaticPath,
			Location:   loc,
			Now:        now,
		}

		report, err := BuildReport(database.DB, viewer, loc, now, ParsePeriod(c.Query("periodo")))
		if err != nil {
			if format == export.FormatPDF {
				return export.Send(c, base+"_erro.pdf", export.MIMEPDF, export.ErrorPDF(opts.Title, err))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}

		opts.Lines = []string{"Gerado por: " + username}
		if report.Usuarios.TopUsuariosExemplo {
			opts.Lines = append(opts.Lines, "Sem atividade registrada: o ranking mostra apenas uma linha de exemplo.")
		}
		return export.Write(c, format, base, opts, report.GeneralTables()...)
	}
}
