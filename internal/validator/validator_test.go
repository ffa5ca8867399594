package validator

import (
	"reflect"
	"testing"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validTree() *model.WBSTree {
	return &model.WBSTree{
		ProjectInfo: model.ProjectInfo{
			ProjectName:         "Sistema de Pedidos",
			ComplexityLevel:     model.ComplexityMedium,
			TotalEstimatedHours: 120,
		},
		Phases: []model.Phase{
			{
				ID: "1", Name: "Análise", Duration: "3 days", EstimatedHours: 40,
				WorkPackages: []model.WorkPackage{{
					ID: "1.1", Name: "Levantamento", EstimatedHours: 40,
					Tasks: []model.Task{
						{ID: "1.1.1", Name: "Entrevistas", EstimatedHours: 16},
						{ID: "1.1.2", Name: "Documentação inicial", EstimatedHours: 8},
					},
				}},
			},
			{
				ID: "2", Name: "Desenvolvimento", Duration: "5 days", EstimatedHours: 40,
				WorkPackages: []model.WorkPackage{{
					ID: "2.1", Name: "Backend", EstimatedHours: 40,
					Tasks: []model.Task{
						{ID: "2.1.1", Name: "API endpoint de pedidos", EstimatedHours: 8},
						{ID: "2.1.2", Name: "CRUD de produtos", EstimatedHours: 16},
					},
				}},
			},
			{
				ID: "3", Name: "Testes", Duration: "5 days", EstimatedHours: 40,
				WorkPackages: []model.WorkPackage{{
					ID: "3.1", Name: "QA", EstimatedHours: 40,
					Tasks: []model.Task{
						{ID: "3.1.1", Name: "Testing integrado", EstimatedHours: 16},
					},
				}},
			},
		},
	}
}

func TestValidateMissingPhases(t *testing.T) {
	v := New(rules.Default())

	for _, tree := range []*model.WBSTree{nil, {}} {
		result := v.Validate(tree)

		if result.IsValid {
			t.Error("árvore sem phases deveria ser inválida")
		}
		if len(result.Issues) != 1 {
			t.Fatalf("issues = %d, esperava exatamente 1", len(result.Issues))
		}
		issue := result.Issues[0]
		if issue.Category != CategoryStructure {
			t.Errorf("categoria = %q, esperava %q", issue.Category, CategoryStructure)
		}
		if issue.Location != "wbs" {
			t.Errorf("location = %q, esperava %q", issue.Location, "wbs")
		}
		if result.ConfidenceScore >= 1.0 {
			t.Errorf("confiança = %v, deveria ser < 1.0", result.ConfidenceScore)
		}
	}
}

func TestValidateCleanTree(t *testing.T) {
	v := New(rules.Default())
	result := v.Validate(validTree())

	if !result.IsValid {
		t.Errorf("árvore válida rejeitada: %+v", result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues inesperadas: %+v", result.Issues)
	}
}

func TestValidatePhaseOverMaximumIsIssue(t *testing.T) {
	v := New(rules.Default())
	tree := validTree()
	tree.Phases[0].EstimatedHours = 600

	result := v.Validate(tree)

	if result.IsValid {
		t.Error("fase acima do máximo deveria invalidar a árvore")
	}

	found := false
	for _, issue := range result.Issues {
		if issue.Category == CategoryEstimation && issue.SuggestedValue == 500 {
			found = true
		}
	}
	if !found {
		t.Errorf("esperava issue de estimativa com sugestão 500, obteve %+v", result.Issues)
	}
}

func TestValidatePhaseBelowMinimumIsWarning(t *testing.T) {
	v := New(rules.Default())
	tree := validTree()
	tree.Phases[0].EstimatedHours = 4

	result := v.Validate(tree)

	// Abaixo do mínimo é aviso, não erro
	for _, issue := range result.Issues {
		if issue.Category == CategoryEstimation {
			t.Errorf("não esperava issue de estimativa: %+v", issue)
		}
	}
	if len(result.Warnings) == 0 {
		t.Error("esperava warning de horas abaixo do mínimo")
	}
}

func TestValidateTaskOutOfRangeProposesCorrection(t *testing.T) {
	v := New(rules.Default())

	tests := []struct {
		name     string
		hours    float64
		expected float64
	}{
		{"abaixo do mínimo", 1, 2},
		{"acima do máximo", 120, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := validTree()
			tree.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours = tt.hours
			tree.Phases[0].WorkPackages[0].Tasks[0].Name = "Tarefa genérica"

			result := v.Validate(tree)

			if len(result.Corrections) != 1 {
				t.Fatalf("corrections = %d, esperava 1", len(result.Corrections))
			}
			corr := result.Corrections[0]
			if corr.OldValue != tt.hours || corr.NewValue != tt.expected {
				t.Errorf("correção %v -> %v, esperava %v -> %v",
					corr.OldValue, corr.NewValue, tt.hours, tt.expected)
			}
			// Correções são propostas, nunca aplicadas
			if tree.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours != tt.hours {
				t.Error("Validate não deve modificar a árvore")
			}
		})
	}
}

func TestValidateWPTaskDivergenceWarning(t *testing.T) {
	v := New(rules.Default())
	tree := validTree()
	// WP declara 40h mas tasks somam 24h: divergência de 40%
	tree.Phases[0].WorkPackages[0].EstimatedHours = 40

	result := v.Validate(tree)

	found := false
	for _, w := range result.Warnings {
		if w.Category == CategoryEstimation {
			found = true
		}
	}
	if !found {
		t.Errorf("esperava warning de divergência WP/tasks, obteve %+v", result.Warnings)
	}
}

func TestConfidencePenalties(t *testing.T) {
	v := New(rules.Default())

	clean := v.Validate(validTree())

	small := &model.WBSTree{
		ProjectInfo: model.ProjectInfo{ProjectName: "P", TotalEstimatedHours: 40},
		Phases: []model.Phase{{
			ID: "1", Name: "Única", Duration: "5 days", EstimatedHours: 40,
			WorkPackages: []model.WorkPackage{{
				ID: "1.1", Name: "WP", EstimatedHours: 40,
				Tasks: []model.Task{{ID: "1.1.1", Name: "T", EstimatedHours: 40}},
			}},
		}},
	}
	sparse := v.Validate(small)

	// Menos de 3 fases e menos de 5 tasks: duas penalidades de 0.10
	if sparse.ConfidenceScore >= clean.ConfidenceScore {
		t.Errorf("árvore esparsa (%v) deveria ter confiança menor que completa (%v)",
			sparse.ConfidenceScore, clean.ConfidenceScore)
	}
}

func TestNormalizeClampsAndRecomputesTotals(t *testing.T) {
	v := New(rules.Default())
	tree := validTree()
	tree.Phases[0].EstimatedHours = 600
	tree.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours = 1
	tree.ProjectInfo.TotalEstimatedHours = 9999

	normalized := v.Normalize(tree)

	if normalized.Phases[0].EstimatedHours != 500 {
		t.Errorf("horas de fase = %v, esperava clamp em 500", normalized.Phases[0].EstimatedHours)
	}
	if normalized.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours != 2 {
		t.Errorf("horas de task = %v, esperava clamp em 2",
			normalized.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours)
	}

	wantTotal := normalized.PhaseHoursSum()
	if normalized.ProjectInfo.TotalEstimatedHours != wantTotal {
		t.Errorf("total = %v, esperava soma das fases %v",
			normalized.ProjectInfo.TotalEstimatedHours, wantTotal)
	}

	// Entrada intocada
	if tree.Phases[0].EstimatedHours != 600 {
		t.Error("Normalize não deve modificar a árvore de entrada")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	v := New(rules.Default())

	genHours := gen.Float64Range(0, 1000)

	properties.Property("normalize(normalize(t)) == normalize(t)", prop.ForAll(
		func(phaseHours, wpHours, taskHours float64) bool {
			tree := &model.WBSTree{
				ProjectInfo: model.ProjectInfo{ProjectName: "P", TotalEstimatedHours: phaseHours},
				Phases: []model.Phase{{
					ID: "1", Name: "Fase", EstimatedHours: phaseHours,
					WorkPackages: []model.WorkPackage{{
						ID: "1.1", Name: "WP", EstimatedHours: wpHours,
						Tasks: []model.Task{{ID: "1.1.1", Name: "Tarefa", EstimatedHours: taskHours}},
					}},
				}},
			}

			once := v.Normalize(tree)
			twice := v.Normalize(once)
			return reflect.DeepEqual(once, twice)
		},
		genHours, genHours, genHours,
	))

	properties.Property("normalized hours stay within limits", prop.ForAll(
		func(taskHours float64) bool {
			tree := validTree()
			tree.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours = taskHours

			normalized := v.Normalize(tree)
			got := normalized.Phases[0].WorkPackages[0].Tasks[0].EstimatedHours
			limits := rules.Default().Limits
			return got >= limits.MinHoursPerTask && got <= limits.MaxHoursPerTask
		},
		gen.Float64Range(-10, 10000),
	))

	properties.TestingRun(t)
}
