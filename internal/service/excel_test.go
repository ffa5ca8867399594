package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/stabilizer"
	"github.com/xuri/excelize/v2"
)

func sampleAnalysisResult() *AnalysisResult {
	tree := &model.WBSTree{
		ProjectInfo: model.ProjectInfo{
			ProjectName:         "Loja Virtual",
			TotalEstimatedHours: 48,
			EstimatedDuration:   "2 weeks",
		},
		Phases: []model.Phase{{
			ID: "1", Name: "Análise", EstimatedHours: 48, DurationDays: 6,
			WorkPackages: []model.WorkPackage{{
				ID: "1.1", Name: "Levantamento", EstimatedHours: 48,
				CanStartParallel: true,
				Dependencies:     []string{"0.1"},
				Tasks: []model.Task{
					{ID: "1.1.1", Name: "Entrevistas", EstimatedHours: 24, Status: "pending"},
				},
			}},
		}},
	}

	return &AnalysisResult{
		RunID: "run-test",
		Tree:  tree,
		Metadata: stabilizer.Metadata{
			Method:          "median",
			Confidence:      0.9,
			TotalIterations: 3,
			UsedIterations:  3,
		},
		Schedule:  schedule.New().Compute(tree),
		CreatedAt: time.Now(),
	}
}

func TestExcelGenerate(t *testing.T) {
	gen := NewExcelGenerator()

	buf, err := gen.Generate(sampleAnalysisResult())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("buffer vazio")
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("arquivo gerado não é um xlsx válido: %v", err)
	}
	defer f.Close()

	// Header na primeira linha
	if got, _ := f.GetCellValue(wbsSheetName, "A1"); got != "ID" {
		t.Errorf("A1 = %q, esperava ID", got)
	}

	// Primeira linha de dados é a fase
	if got, _ := f.GetCellValue(wbsSheetName, "A2"); got != "1" {
		t.Errorf("A2 = %q, esperava id da fase", got)
	}
	if got, _ := f.GetCellValue(wbsSheetName, "C2"); got != "Fase" {
		t.Errorf("C2 = %q, esperava Fase", got)
	}

	// WP paralelo marcado
	if got, _ := f.GetCellValue(wbsSheetName, "H3"); got != "Sim" {
		t.Errorf("H3 = %q, esperava Sim", got)
	}

	// Sheet de resumo existe
	if idx, _ := f.GetSheetIndex(summarySheetName); idx < 0 {
		t.Error("sheet de resumo ausente")
	}
}

func TestExcelGenerateEmptyTree(t *testing.T) {
	gen := NewExcelGenerator()

	result := &AnalysisResult{
		RunID: "run-vazio",
		Tree:  &model.WBSTree{},
	}

	buf, err := gen.Generate(result)
	if err != nil {
		t.Fatalf("árvore vazia não deveria falhar: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("buffer vazio")
	}
}
