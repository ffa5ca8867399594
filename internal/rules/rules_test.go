package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeHours(t *testing.T) {
	rs := Default()

	tests := []struct {
		name     string
		hours    float64
		taskName string
		want     float64
	}{
		{"abaixo do mínimo global", 1, "Tarefa qualquer", 2},
		{"acima do máximo global", 200, "Tarefa qualquer", 80},
		{"dentro da faixa", 16, "Tarefa qualquer", 16},
		{"zero sobe para o mínimo", 0, "Tarefa qualquer", 2},
		{"template aperta o mínimo", 2, "Login de usuários", 4},
		{"template aperta o máximo", 60, "Tela de login", 8},
		{"template dashboard", 4, "Dashboard gerencial", 16},
		{"sem nome usa faixa global", 1, "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rs.NormalizeHours(tt.hours, tt.taskName); got != tt.want {
				t.Errorf("NormalizeHours(%v, %q) = %v, esperava %v",
					tt.hours, tt.taskName, got, tt.want)
			}
		})
	}
}

func TestFindTemplateFirstMatchWins(t *testing.T) {
	rs := Default()

	tests := []struct {
		name        string
		taskName    string
		wantPattern string
	}{
		{"match direto", "Implementar CRUD de clientes", "crud"},
		{"case insensitive", "LOGIN com OAuth", "login"},
		{"sem match", "Refatorar módulo interno", ""},
		{"nome vazio", "", ""},
		// "authorization" vem antes de "login" na lista: primeira vence
		{"ordem de declaração", "Authorization e login", "authorization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := rs.FindTemplate(tt.taskName)
			if tt.wantPattern == "" {
				if tmpl != nil {
					t.Errorf("esperava nil, obteve template %q", tmpl.Pattern)
				}
				return
			}
			if tmpl == nil || tmpl.Pattern != tt.wantPattern {
				t.Errorf("FindTemplate(%q) = %v, esperava padrão %q", tt.taskName, tmpl, tt.wantPattern)
			}
		})
	}
}

func TestComplexityMultiplier(t *testing.T) {
	rs := Default()

	if got := rs.ComplexityMultiplier("High"); got != 1.5 {
		t.Errorf("High = %v, esperava 1.5", got)
	}
	if got := rs.ComplexityMultiplier("Unknown"); got != 1.0 {
		t.Errorf("nível desconhecido = %v, esperava 1.0", got)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	rs := Load("/caminho/inexistente/regras.json")

	if rs.Limits.MinHoursPerTask != 2 || rs.Limits.MaxHoursPerPhase != 500 {
		t.Errorf("fallback não devolveu os padrões: %+v", rs.Limits)
	}
	if !rs.AutoNormalize() {
		t.Error("auto_normalize padrão deveria ser true")
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	doc := `{
		"limits": {"min_hours_per_task": 4, "max_hours_per_task": 40},
		"stabilization_settings": {"consensus_method": "mean"}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rs := Load(path)

	if rs.Limits.MinHoursPerTask != 4 || rs.Limits.MaxHoursPerTask != 40 {
		t.Errorf("limites carregados incorretos: %+v", rs.Limits)
	}
	if rs.Stabilization.ConsensusMethod != MethodMean {
		t.Errorf("método = %q, esperava mean", rs.Stabilization.ConsensusMethod)
	}
	// Seções omitidas recebem os padrões
	if rs.Limits.MaxHoursPerPhase != 500 {
		t.Errorf("max por fase = %v, esperava padrão 500", rs.Limits.MaxHoursPerPhase)
	}
	if rs.Stabilization.OutlierThresholdStd != 2.0 {
		t.Errorf("threshold = %v, esperava padrão 2.0", rs.Stabilization.OutlierThresholdStd)
	}
	if len(rs.TaskTemplates) == 0 {
		t.Error("templates omitidos deveriam receber os padrões")
	}
}

func TestLoadMalformedFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{nonsense"), 0o644); err != nil {
		t.Fatal(err)
	}

	rs := Load(path)
	if rs.Limits.MinHoursPerTask != 2 {
		t.Errorf("arquivo inválido deveria cair nos padrões: %+v", rs.Limits)
	}
}

func TestNormalizeHoursAlwaysWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	rs := Default()

	properties.Property("output within global limits", prop.ForAll(
		func(hours float64, name string) bool {
			got := rs.NormalizeHours(hours, name)
			return got >= rs.Limits.MinHoursPerTask && got <= rs.Limits.MaxHoursPerTask
		},
		gen.Float64Range(-100, 1000),
		gen.AlphaString(),
	))

	properties.Property("in-range values without template pass through", prop.ForAll(
		func(hours float64) bool {
			// Nome que não casa com nenhum template
			return rs.NormalizeHours(hours, "zzz") == hours
		},
		gen.Float64Range(2, 80),
	))

	properties.TestingRun(t)
}
