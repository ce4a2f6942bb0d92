package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM faz o Excel abrir o CSV como UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV grava BOM e as linhas já montadas.
func WriteCSV(w io.Writer, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("csv bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

// CSV uma tabela: cabeçalho + linhas. Com várias tabelas, cada uma vem precedida
// do nome e separada por uma linha em branco.
func CSV(tables ...Table) ([]byte, error) {
	var rows [][]string
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				rows = append(rows, []string{})
			}
			rows = append(rows, []string{t.Name})
		}
		rows = append(rows, t.Headers)
		rows = append(rows, t.Rows...)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
