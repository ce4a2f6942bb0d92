package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Excel uma aba por tabela; a primeira fica ativa.
func Excel(tables ...Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("estilo do cabeçalho: %w", err)
	}

	for i, t := range tables {
		name := sheetName(t.Name, i)
		index, err := f.NewSheet(name)
		if err != nil {
			return nil, fmt.Errorf("criar aba %q: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, name, t, headerStyle); err != nil {
			return nil, err
		}
	}

	if len(tables) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("remover aba padrão: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("gravar planilha: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	for col, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("cabeçalho %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("estilo %s: %w", cell, err)
		}
	}

	for r, row := range t.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("célula %s: %w", cell, err)
			}
		}
	}

	for i, w := range t.Widths {
		if w <= 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("largura %s: %w", col, err)
		}
	}
	return nil
}

func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Planilha%d", i+1)
	}
	r := []rune(name)
	if len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
