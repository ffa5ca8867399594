package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/xuri/excelize/v2"
)

const (
	wbsSheetName     = "WBS"
	summarySheetName = "Resumo"
)

// ExcelGenerator gera a planilha de exportação de um run
type ExcelGenerator struct{}

// NewExcelGenerator cria um novo gerador de Excel
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

var wbsHeaders = []string{
	"ID", "Nome", "Nível", "Horas Estimadas", "Duração (dias)",
	"Início (dia)", "Fim (dia)", "Paralelo", "Dependências", "Status",
}

// Generate monta o arquivo Excel com a árvore WBS e o cronograma
func (g *ExcelGenerator) Generate(result *AnalysisResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Renomeia a sheet padrão
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, wbsSheetName); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	if err := g.writeHeaders(f); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	if err := g.writeTree(f, result.Tree, result.Schedule); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}

	if err := g.writeSummary(f, result); err != nil {
		return nil, fmt.Errorf("escrever resumo: %w", err)
	}

	if err := g.autoFitColumns(f, len(wbsHeaders)); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	return buf, nil
}

// writeHeaders escreve os cabeçalhos no Excel
func (g *ExcelGenerator) writeHeaders(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range wbsHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(wbsSheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(wbsSheetName, cell, cell, style); err != nil {
			return err
		}
	}

	return nil
}

// writeTree escreve fases, pacotes e tarefas, uma linha por nó
func (g *ExcelGenerator) writeTree(f *excelize.File, tree *model.WBSTree, sched *schedule.Schedule) error {
	if tree == nil {
		return nil
	}

	phaseStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"D9E1F2"},
			Pattern: 1,
		},
	})

	row := 2
	for pi := range tree.Phases {
		phase := &tree.Phases[pi]

		if err := g.writeRow(f, row, rowValues(
			phase.ID, phase.Name, "Fase", phase.EstimatedHours,
			itemFor(sched, phase.ID), false, nil, "")); err != nil {
			return err
		}
		startCell, _ := excelize.CoordinatesToCellName(1, row)
		endCell, _ := excelize.CoordinatesToCellName(len(wbsHeaders), row)
		f.SetCellStyle(wbsSheetName, startCell, endCell, phaseStyle)
		row++

		for wi := range phase.WorkPackages {
			wp := &phase.WorkPackages[wi]

			if err := g.writeRow(f, row, rowValues(
				wp.ID, wp.Name, "Pacote", wp.EstimatedHours,
				itemFor(sched, wp.ID), wp.CanStartParallel, wp.Dependencies, "")); err != nil {
				return err
			}
			row++

			for ti := range wp.Tasks {
				task := &wp.Tasks[ti]

				if err := g.writeRow(f, row, rowValues(
					task.ID, task.Name, "Tarefa", task.EstimatedHours,
					itemFor(sched, task.ID), task.CanStartParallel, task.Dependencies, task.Status)); err != nil {
					return err
				}
				row++
			}
		}
	}

	return nil
}

// writeSummary adiciona a sheet de resumo com os metadados do run
func (g *ExcelGenerator) writeSummary(f *excelize.File, result *AnalysisResult) error {
	if _, err := f.NewSheet(summarySheetName); err != nil {
		return err
	}

	lines := [][2]interface{}{
		{"Run", result.RunID},
		{"Método de consenso", result.Metadata.Method},
		{"Confiança", result.Metadata.Confidence},
		{"Iterações totais", result.Metadata.TotalIterations},
		{"Iterações usadas", result.Metadata.UsedIterations},
		{"Outliers removidos", result.Metadata.OutliersRemoved},
	}

	if result.Tree != nil {
		lines = append(lines,
			[2]interface{}{"Projeto", result.Tree.ProjectInfo.ProjectName},
			[2]interface{}{"Horas totais", result.Tree.ProjectInfo.TotalEstimatedHours},
			[2]interface{}{"Duração estimada", result.Tree.ProjectInfo.EstimatedDuration},
		)
	}
	if result.Validation != nil {
		lines = append(lines,
			[2]interface{}{"Válido", result.Validation.IsValid},
			[2]interface{}{"Problemas", len(result.Validation.Issues)},
			[2]interface{}{"Avisos", len(result.Validation.Warnings)},
		)
	}
	if result.Schedule != nil {
		lines = append(lines,
			[2]interface{}{"Dias totais", result.Schedule.TotalDays},
			[2]interface{}{"Semanas totais", result.Schedule.TotalWeeks},
		)
	}

	for i, line := range lines {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(summarySheetName, keyCell, line[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheetName, valCell, line[1]); err != nil {
			return err
		}
	}

	f.SetColWidth(summarySheetName, "A", "A", 22)
	f.SetColWidth(summarySheetName, "B", "B", 40)

	return nil
}

func (g *ExcelGenerator) writeRow(f *excelize.File, row int, values []interface{}) error {
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(wbsSheetName, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// autoFitColumns ajusta a largura das colunas da sheet principal
func (g *ExcelGenerator) autoFitColumns(f *excelize.File, columns int) error {
	widths := []float64{10, 42, 10, 16, 14, 12, 12, 10, 18, 12}
	for col := 0; col < columns && col < len(widths); col++ {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(wbsSheetName, name, name, widths[col]); err != nil {
			return err
		}
	}
	return nil
}

func rowValues(id, name, kind string, hours float64, item *schedule.Item, parallel bool, deps []string, status string) []interface{} {
	values := []interface{}{id, name, kind, hours, "", "", "", "", strings.Join(deps, ", "), status}

	if item != nil {
		values[4] = item.DurationDays
		values[5] = item.StartDay
		values[6] = item.EndDay
	}
	if parallel {
		values[7] = "Sim"
	} else {
		values[7] = "Não"
	}

	return values
}

func itemFor(sched *schedule.Schedule, id string) *schedule.Item {
	if sched == nil {
		return nil
	}
	if item, ok := sched.Items[id]; ok {
		return &item
	}
	return nil
}
