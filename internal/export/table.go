// Package export gera CSV, planilhas Excel e PDFs a partir de tabelas simples.
//
// Os três formatos recebem a mesma Table, montada uma única vez pelo chamador a partir
// da consulta filtrada, de modo que todos enumeram as mesmas linhas na mesma ordem.
package export

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
)

const (
	MIMECSV  = "text/csv; charset=utf-8"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEPDF  = "application/pdf"
	MIMEJSON = "application/json; charset=utf-8"
)

// Table uma aba da planilha ou um bloco do PDF.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
	// Widths largura das colunas no Excel (caracteres); no PDF vira proporção.
	Widths []float64
}

func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Project nova tabela só com as colunas indicadas, na ordem dada.
func (t Table) Project(columns []int, widths []float64) Table {
	out := Table{Name: t.Name, Widths: widths}
	for _, i := range columns {
		out.Headers = append(out.Headers, t.Headers[i])
	}
	for _, row := range t.Rows {
		r := make([]string, 0, len(columns))
		for _, i := range columns {
			r = append(r, row[i])
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// Send devolve o arquivo como anexo.
func Send(c *fiber.Ctx, filename, contentType string, body []byte) error {
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(body)
}

// Truncate corta em n runas acrescentando "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func YesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func DateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("02/01/2006 15:04")
}

func Date(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("02/01/2006")
}

// Filename troca caracteres problemáticos em nomes de arquivo.
func Filename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, s)
}
