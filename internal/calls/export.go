package calls

import (
	"fmt"
	"strings"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const exportBase = "historico_chamadas"

var historyHeaders = []string{
	"Data e Hora", "Nome do Contato", "Telefone", "Função/Cargo", "Setor de Atuação",
	"Nome da Unidade", "Município", "Código CNES", "Contato Telefônico CNES",
	"Tipo de Chamada", "Status", "Nome do Atendente", "Descrição da Solicitação",
	"Solução/Encaminhamento", "Usuário Criador", "Data de Atualização",
}

var historyWidths = []float64{20, 25, 15, 20, 20, 30, 18, 12, 18, 28, 18, 20, 40, 40, 18, 20}

// LoadHistory carrega as chamadas filtradas na mesma ordem da listagem.
func LoadHistory(db *gorm.DB, spec filter.Spec) ([]models.CallRecord, error) {
	var calls []models.CallRecord
	err := spec.Query(db.Model(&models.CallRecord{}).Preload("CreatedBy")).Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("carregar chamadas: %w", err)
	}
	return calls, nil
}

func creatorForExport(call *models.CallRecord) string {
	if call.CreatedBy == nil {
		return "Sistema"
	}
	if call.CreatedBy.FirstName != "" {
		return call.CreatedBy.FirstName
	}
	return call.CreatedBy.Username
}

// HistoryTable todas as colunas do CSV e do Excel.
func HistoryTable(calls []models.CallRecord, loc *time.Location) export.Table {
	t := export.Table{Name: "Histórico de Chamadas", Headers: historyHeaders, Widths: historyWidths}
	for i := range calls {
		call := &calls[i]
		t.Append(
			call.CreatedAt.In(loc).Format(dateTimeLayout),
			call.ContactName,
			call.Phone,
			call.Role,
			call.Sector,
			call.UnitName,
			call.Municipality,
			call.CNES,
			call.CNESPhoneContact,
			call.TypeLabel(),
			call.StatusLabel(),
			call.AttendantName,
			call.Description,
			call.Solution,
			creatorForExport(call),
			call.UpdatedAt.In(loc).Format(dateTimeLayout),
		)
	}
	return t
}

// PDFTable colunas reduzidas para caber em A4 paisagem.
func PDFTable(calls []models.CallRecord, loc *time.Location, simple bool) export.Table {
	if simple {
		t := export.Table{
			Headers: []string{"Data/Hora", "Contato", "Telefone", "Unidade", "Município", "Tipo", "Status"},
			Widths:  []float64{1.0, 1.5, 1.0, 2.0, 1.0, 1.5, 0.8},
		}
		for i := range calls {
			call := &calls[i]
			t.Append(
				call.CreatedAt.In(loc).Format("02/01/2006 15:04"),
				export.Truncate(call.ContactName, 20),
				export.Truncate(call.Phone, 15),
				export.Truncate(call.UnitName, 30),
				export.Truncate(call.Municipality, 15),
				export.Truncate(call.TypeLabel(), 20),
				call.StatusLabel(),
			)
		}
		return t
	}

	t := export.Table{
		Headers: []string{"Data/Hora", "Contato", "Telefone", "Função", "Setor", "Unidade", "Município", "Tipo", "Status", "Atendente"},
		Widths:  []float64{1.1, 1.4, 1.0, 1.0, 1.0, 2.0, 1.0, 1.5, 1.0, 1.2},
	}
	for i := range calls {
		call := &calls[i]
		t.Append(
			call.CreatedAt.In(loc).Format("02/01/2006 15:04"),
			call.ContactName,
			call.Phone,
			call.Role,
			call.Sector,
			export.Truncate(call.UnitName, 30),
			call.Municipality,
			call.TypeLabel(),
			call.StatusLabel(),
			export.Truncate(call.AttendantName, 20),
		)
	}
	return t
}

func filterSummary(spec filter.Spec) string {
	active := spec.Active()
	if len(active) == 0 {
		return "Filtros: nenhum"
	}
	parts := make([]string, 0, len(spec.Predicates))
	for _, p := range spec.Predicates {
		parts = append(parts, p.Param+"="+active[p.Param])
	}
	return "Filtros: " + strings.Join(parts, ", ")
}

// GET /api/chamadas/export/{csv,excel,pdf}
func ExportHandler(cfg *config.Config, format export.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		spec := filter.CallHistory(filter.FromFiber(c), loc)
		opts := export.PDFOptions{
			Title:      "Relatório de Histórico de Chamadas",
			Landscape:  true,
			StaticPath: cfg.StaticPath,
			Location:   loc,
		}

		calls, err := LoadHistory(database.DB, spec)
		if err != nil {
			if format == export.FormatPDF {
				return export.Send(c, exportBase+"_erro.pdf", export.MIMEPDF, export.ErrorPDF(opts.Title, err))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}

		if format == export.FormatPDF {
			simple := c.QueryBool("simples")
			opts.Landscape = !simple
			opts.Lines = []string{
				fmt.Sprintf("Total de registros: %d", len(calls)),
				filterSummary(spec),
			}
			return export.Write(c, format, exportBase, opts, PDFTable(calls, loc, simple))
		}
		return export.Write(c, format, exportBase, opts, HistoryTable(calls, loc))
	}
}
