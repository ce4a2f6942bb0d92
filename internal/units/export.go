package units

import (
	"fmt"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const exportBase = "unidades_saude"

// UnitsTable colunas do CSV e do Excel.
func UnitsTable(units []models.HealthUnit, loc *time.Location) export.Table {
	t := export.Table{
		Name: "Unidades de Saúde",
		Headers: []string{
			"Nome", "CNES", "Tipo", "Endereço", "Telefone", "Responsável", "Email",
			"Horário de Funcionamento", "Serviços de Emergência", "Data de Cadastro",
		},
		Widths: []float64{40, 12, 25, 40, 16, 25, 30, 25, 12, 20},
	}
	for i := range units {
		u := &units[i]
		t.Append(
			u.Name,
			u.CNESValue(),
			u.Type.Label(),
			u.Address,
			u.Phone,
			u.Manager,
			u.Email,
			u.OpeningHours,
			export.YesNo(u.EmergencyServices),
			u.CreatedAt.In(loc).Format(dateTimeLayout),
		)
	}
	return t
}

// PDFTable Nome, CNES, Tipo, Telefone, Responsável.
func PDFTable(units []models.HealthUnit, loc *time.Location) export.Table {
	return UnitsTable(units, loc).Project([]int{0, 1, 2, 4, 5}, []float64{2.5, 0.9, 1.5, 1.1, 1.5})
}

// GET /api/unidades/export/{csv,excel,pdf}
func ExportHandler(cfg *config.Config, format export.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		spec := filter.Units(filter.FromFiber(c))
		opts := export.PDFOptions{
			Title:      "Relatório de Unidades de Saúde",
			StaticPath: cfg.StaticPath,
			Location:   loc,
		}

		units, err := LoadUnits(database.DB, spec)
		if err != nil {
			if format == export.FormatPDF {
				return export.Send(c, exportBase+"_erro.pdf", export.MIMEPDF, export.ErrorPDF(opts.Title, err))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}

		if format == export.FormatPDF {
			opts.Lines = []string{fmt.Sprintf("Total de unidades: %d", len(units))}
			return export.Write(c, format, exportBase, opts, PDFTable(units, loc))
		}
		return export.Write(c, format, exportBase, opts, UnitsTable(units, loc))
	}
}
