package rules

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
)

// Consensus methods accepted by the stabilizer
const (
	MethodMedian      = "median"
	MethodMean        = "mean"
	MethodTrimmedMean = "trimmed_mean"
	MethodSingle      = "single_result"
)

// Limits define the authoritative hour ranges for tasks and phases
type Limits struct {
	MinHoursPerTask  float64 `json:"min_hours_per_task"`
	MaxHoursPerTask  float64 `json:"max_hours_per_task"`
	MinHoursPerPhase float64 `json:"min_hours_per_phase"`
	MaxHoursPerPhase float64 `json:"max_hours_per_phase"`
}

// TaskTemplate holds typical hour ranges for a task-name pattern.
// Patterns are matched as case-insensitive substrings, in declaration
// order: the first match wins, overlapping patterns are not disambiguated
// by specificity.
type TaskTemplate struct {
	Pattern      string  `json:"pattern"`
	MinHours     float64 `json:"min_hours"`
	MaxHours     float64 `json:"max_hours"`
	TypicalHours float64 `json:"typical_hours"`
}

// StabilizationSettings control the ensemble consensus behavior
type StabilizationSettings struct {
	EnsembleIterations  int     `json:"ensemble_iterations"`
	ConsensusMethod     string  `json:"consensus_method"`
	OutlierThresholdStd float64 `json:"outlier_threshold_std"`
	AutoNormalize       *bool   `json:"auto_normalize"`
}

// Policy holds the divergence thresholds and confidence penalty weights.
// These were fixed constants in earlier revisions; they are configurable
// now but the defaults are intentionally unchanged.
type Policy struct {
	WPDivergenceRatio    float64 `json:"wp_divergence_ratio"`
	TotalDivergenceRatio float64 `json:"total_divergence_ratio"`
	IssuePenalty         float64 `json:"issue_penalty"`
	WarningPenalty       float64 `json:"warning_penalty"`
	FewPhasesPenalty     float64 `json:"few_phases_penalty"`
	FewTasksPenalty      float64 `json:"few_tasks_penalty"`
	MinPhases            int     `json:"min_phases"`
	MinTasks             int     `json:"min_tasks"`
}

// RuleSet is the immutable policy source shared by validator, stabilizer
// and scheduler. Loaded once per process and passed in explicitly; there
// is no ambient global instance.
type RuleSet struct {
	Limits                Limits                `json:"limits"`
	ComplexityMultipliers map[string]float64    `json:"complexity_multipliers"`
	TaskTemplates         []TaskTemplate        `json:"task_templates"`
	Stabilization         StabilizationSettings `json:"stabilization_settings"`
	Policy                Policy                `json:"policy"`
}

// Default returns the embedded rule set used when no external
// configuration is supplied.
func Default() *RuleSet {
	autoNormalize := true
	return &RuleSet{
		Limits: Limits{
			MinHoursPerTask:  2,
			MaxHoursPerTask:  80,
			MinHoursPerPhase: 8,
			MaxHoursPerPhase: 500,
		},
		ComplexityMultipliers: map[string]float64{
			"Low":    0.8,
			"Medium": 1.0,
			"High":   1.5,
		},
		TaskTemplates: []TaskTemplate{
			{Pattern: "authorization", MinHours: 8, MaxHours: 24, TypicalHours: 16},
			{Pattern: "registration", MinHours: 6, MaxHours: 16, TypicalHours: 10},
			{Pattern: "login", MinHours: 4, MaxHours: 8, TypicalHours: 6},
			{Pattern: "crud", MinHours: 4, MaxHours: 16, TypicalHours: 8},
			{Pattern: "api endpoint", MinHours: 2, MaxHours: 8, TypicalHours: 4},
			{Pattern: "form", MinHours: 4, MaxHours: 16, TypicalHours: 8},
			{Pattern: "page", MinHours: 4, MaxHours: 16, TypicalHours: 8},
			{Pattern: "report", MinHours: 8, MaxHours: 24, TypicalHours: 16},
			{Pattern: "dashboard", MinHours: 16, MaxHours: 40, TypicalHours: 24},
			{Pattern: "integration", MinHours: 16, MaxHours: 80, TypicalHours: 32},
			{Pattern: "testing", MinHours: 4, MaxHours: 16, TypicalHours: 8},
			{Pattern: "documentation", MinHours: 2, MaxHours: 8, TypicalHours: 4},
			{Pattern: "data migration", MinHours: 8, MaxHours: 40, TypicalHours: 16},
			{Pattern: "admin panel", MinHours: 24, MaxHours: 80, TypicalHours: 40},
			{Pattern: "notification", MinHours: 8, MaxHours: 24, TypicalHours: 12},
			{Pattern: "search", MinHours: 8, MaxHours: 24, TypicalHours: 12},
			{Pattern: "filter", MinHours: 4, MaxHours: 12, TypicalHours: 6},
			{Pattern: "export", MinHours: 4, MaxHours: 16, TypicalHours: 8},
			{Pattern: "import", MinHours: 8, MaxHours: 24, TypicalHours: 12},
			{Pattern: "validation", MinHours: 2, MaxHours: 8, TypicalHours: 4},
		},
		Stabilization: StabilizationSettings{
			EnsembleIterations:  3,
			ConsensusMethod:     MethodMedian,
			OutlierThresholdStd: 2.0,
			AutoNormalize:       &autoNormalize,
		},
		Policy: Policy{
			WPDivergenceRatio:    0.30,
			TotalDivergenceRatio: 0.20,
			IssuePenalty:         0.10,
			WarningPenalty:       0.02,
			FewPhasesPenalty:     0.10,
			FewTasksPenalty:      0.10,
			MinPhases:            3,
			MinTasks:             5,
		},
	}
}

// Load reads a rule set document from path. A missing or malformed file
// is never fatal: the embedded defaults are returned and the problem is
// only logged, so callers can always count on a usable rule set.
func Load(path string) *RuleSet {
	log := logger.Global()

	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("Arquivo de regras não encontrado, usando padrões")
		return Default()
	}

	loaded := &RuleSet{}
	if err := json.Unmarshal(data, loaded); err != nil {
		log.Error().Str("path", path).Err(err).Msg("Erro ao interpretar regras, usando padrões")
		return Default()
	}

	loaded.applyDefaults()
	log.Info().Str("path", path).Int("templates", len(loaded.TaskTemplates)).Msg("Regras de estimativa carregadas")
	return loaded
}

// applyDefaults fills any section the loaded document omitted
func (r *RuleSet) applyDefaults() {
	def := Default()

	if r.Limits.MinHoursPerTask == 0 && r.Limits.MaxHoursPerTask == 0 {
		r.Limits = def.Limits
	}
	if r.Limits.MaxHoursPerTask == 0 {
		r.Limits.MaxHoursPerTask = def.Limits.MaxHoursPerTask
	}
	if r.Limits.MaxHoursPerPhase == 0 {
		r.Limits.MaxHoursPerPhase = def.Limits.MaxHoursPerPhase
	}
	if len(r.ComplexityMultipliers) == 0 {
		r.ComplexityMultipliers = def.ComplexityMultipliers
	}
	if len(r.TaskTemplates) == 0 {
		r.TaskTemplates = def.TaskTemplates
	}
	if r.Stabilization.EnsembleIterations == 0 {
		r.Stabilization.EnsembleIterations = def.Stabilization.EnsembleIterations
	}
	if r.Stabilization.ConsensusMethod == "" {
		r.Stabilization.ConsensusMethod = def.Stabilization.ConsensusMethod
	}
	if r.Stabilization.OutlierThresholdStd == 0 {
		r.Stabilization.OutlierThresholdStd = def.Stabilization.OutlierThresholdStd
	}
	if r.Stabilization.AutoNormalize == nil {
		r.Stabilization.AutoNormalize = def.Stabilization.AutoNormalize
	}
	if r.Policy.WPDivergenceRatio == 0 {
		r.Policy.WPDivergenceRatio = def.Policy.WPDivergenceRatio
	}
	if r.Policy.TotalDivergenceRatio == 0 {
		r.Policy.TotalDivergenceRatio = def.Policy.TotalDivergenceRatio
	}
	if r.Policy.IssuePenalty == 0 {
		r.Policy.IssuePenalty = def.Policy.IssuePenalty
	}
	if r.Policy.WarningPenalty == 0 {
		r.Policy.WarningPenalty = def.Policy.WarningPenalty
	}
	if r.Policy.FewPhasesPenalty == 0 {
		r.Policy.FewPhasesPenalty = def.Policy.FewPhasesPenalty
	}
	if r.Policy.FewTasksPenalty == 0 {
		r.Policy.FewTasksPenalty = def.Policy.FewTasksPenalty
	}
	if r.Policy.MinPhases == 0 {
		r.Policy.MinPhases = def.Policy.MinPhases
	}
	if r.Policy.MinTasks == 0 {
		r.Policy.MinTasks = def.Policy.MinTasks
	}
}

// AutoNormalize reports whether the stabilized tree should be passed
// through the validator's normalization step.
func (r *RuleSet) AutoNormalize() bool {
	return r.Stabilization.AutoNormalize == nil || *r.Stabilization.AutoNormalize
}

// FindTemplate returns the first template whose pattern occurs in the
// task name, or nil when none matches.
func (r *RuleSet) FindTemplate(taskName string) *TaskTemplate {
	if taskName == "" {
		return nil
	}
	lower := strings.ToLower(taskName)
	for i := range r.TaskTemplates {
		if strings.Contains(lower, strings.ToLower(r.TaskTemplates[i].Pattern)) {
			return &r.TaskTemplates[i]
		}
	}
	return nil
}

// NormalizeHours clamps an hour value into the global task range,
// tightened by the best-matching template when the task name matches one.
func (r *RuleSet) NormalizeHours(hours float64, taskName string) float64 {
	min := r.Limits.MinHoursPerTask
	max := r.Limits.MaxHoursPerTask

	if tmpl := r.FindTemplate(taskName); tmpl != nil {
		if tmpl.MinHours > min {
			min = tmpl.MinHours
		}
		if tmpl.MaxHours < max {
			max = tmpl.MaxHours
		}
	}

	if hours < min {
		return min
	}
	if hours > max {
		return max
	}
	return hours
}

// ComplexityMultiplier returns the multiplier for a complexity level,
// 1.0 when the level is unknown.
func (r *RuleSet) ComplexityMultiplier(level string) float64 {
	if m, ok := r.ComplexityMultipliers[level]; ok {
		return m
	}
	return 1.0
}
