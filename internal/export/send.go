package export

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatExcel, FormatPDF:
		return true
	}
	return false
}

func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// Write gera o arquivo no formato pedido e o envia como anexo base.{ext}.
// Falha no PDF vira um PDF de erro (base_erro.pdf); nos demais formatos, 500.
func Write(c *fiber.Ctx, format Format, base string, opts PDFOptions, tables ...Table) error {
	var (
		body []byte
		mime string
		err  error
	)
	switch format {
	case FormatCSV:
		body, err = CSV(tables...)
		mime = MIMECSV
	case FormatExcel:
		body, err = Excel(tables...)
		mime = MIMEXLSX
	case FormatPDF:
		body, err = PDF(opts, tables...)
		mime = MIMEPDF
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Formato de exportação inválido")
	}

	if err != nil {
		zap.L().Error("falha na exportação",
			zap.String("arquivo", base),
			zap.String("formato", string(format)),
			zap.Error(err),
		)
		if format == FormatPDF {
			if fallback := ErrorPDF(opts.Title, err); fallback != nil {
				return Send(c, base+"_erro.pdf", MIMEPDF, fallback)
			}
		}
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Erro ao gerar arquivo: %v", err))
	}

	return Send(c, base+"."+format.Extension(), mime, body)
}
