// Package validator audits a single WBS tree against a rule set.
//
// Validation reports problems without touching the tree; normalization
// rewrites the tree into a range-compliant form. The two operations are
// deliberately separate contracts: callers inspect proposed corrections
// before deciding to accept them.
package validator

import (
	"fmt"
	"math"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
)

// Issue categories
const (
	CategoryStructure    = "structure"
	CategoryEstimation   = "estimation"
	CategoryCompleteness = "completeness"
)

// Issue is a hard validation problem
type Issue struct {
	Category       string  `json:"category"`
	Message        string  `json:"message"`
	Location       string  `json:"location"`
	CurrentValue   float64 `json:"current_value,omitempty"`
	SuggestedValue float64 `json:"suggested_value,omitempty"`
}

// Warning is a soft validation problem
type Warning struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// Correction is a proposed (not applied) value fix
type Correction struct {
	Location string  `json:"location"`
	Field    string  `json:"field"`
	OldValue float64 `json:"old_value"`
	NewValue float64 `json:"new_value"`
	Reason   string  `json:"reason"`
}

// Result holds everything found during one validation pass
type Result struct {
	IsValid         bool         `json:"is_valid"`
	Issues          []Issue      `json:"issues"`
	Warnings        []Warning    `json:"warnings"`
	Corrections     []Correction `json:"corrections"`
	ConfidenceScore float64      `json:"confidence_score"`
}

func newResult() *Result {
	return &Result{
		IsValid:     true,
		Issues:      []Issue{},
		Warnings:    []Warning{},
		Corrections: []Correction{},
	}
}

func (r *Result) addIssue(category, message, location string, current, suggested float64) {
	r.IsValid = false
	r.Issues = append(r.Issues, Issue{
		Category:       category,
		Message:        message,
		Location:       location,
		CurrentValue:   current,
		SuggestedValue: suggested,
	})
}

func (r *Result) addWarning(category, message, location string) {
	r.Warnings = append(r.Warnings, Warning{Category: category, Message: message, Location: location})
}

func (r *Result) addCorrection(location, field string, oldValue, newValue float64, reason string) {
	r.Corrections = append(r.Corrections, Correction{
		Location: location,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
		Reason:   reason,
	})
}

// Validator checks and normalizes WBS trees
type Validator struct {
	rules *rules.RuleSet
}

// New creates a validator bound to a rule set
func New(rs *rules.RuleSet) *Validator {
	return &Validator{rules: rs}
}

// Validate audits the tree and returns issues, warnings, proposed
// corrections and a heuristic confidence score. The tree is never
// modified.
func (v *Validator) Validate(tree *model.WBSTree) *Result {
	result := newResult()

	if tree == nil || tree.Phases == nil {
		result.addIssue(CategoryStructure, "Missing 'phases' field", "wbs", 0, 0)
		result.ConfidenceScore = v.confidence(result, tree)
		return result
	}

	for i := range tree.Phases {
		v.validatePhase(&tree.Phases[i], result)
	}

	v.validateProjectInfo(&tree.ProjectInfo, result)
	v.validateTotalHours(tree, result)

	result.ConfidenceScore = v.confidence(result, tree)
	return result
}

func (v *Validator) validatePhase(phase *model.Phase, result *Result) {
	location := fmt.Sprintf("phase[%s]", orUnknown(phase.ID))

	if phase.Name == "" {
		result.addIssue(CategoryStructure, "Missing field: name", location, 0, 0)
	}
	if phase.Duration == "" && phase.DurationDays == 0 {
		result.addIssue(CategoryStructure, "Missing field: duration", location, 0, 0)
	}
	if phase.EstimatedHours == 0 {
		result.addIssue(CategoryStructure, "Missing field: estimated_hours", location, 0, 0)
	}

	hours := phase.EstimatedHours
	limits := v.rules.Limits
	if hours < limits.MinHoursPerPhase {
		result.addWarning(CategoryEstimation,
			fmt.Sprintf("Phase hours (%g) below minimum", hours), location)
	} else if hours > limits.MaxHoursPerPhase {
		result.addIssue(CategoryEstimation,
			fmt.Sprintf("Phase hours (%g) exceed maximum", hours), location,
			hours, limits.MaxHoursPerPhase)
	}

	if len(phase.WorkPackages) == 0 {
		result.addIssue(CategoryStructure, "Phase has no work packages", location, 0, 0)
		return
	}

	for i := range phase.WorkPackages {
		v.validateWorkPackage(&phase.WorkPackages[i], location, result)
	}
}

func (v *Validator) validateWorkPackage(wp *model.WorkPackage, parentLocation string, result *Result) {
	location := fmt.Sprintf("%s.wp[%s]", parentLocation, orUnknown(wp.ID))

	// A work package without tasks is tolerated as a soft problem
	if len(wp.Tasks) == 0 {
		result.addWarning(CategoryStructure, "Work package has no tasks", location)
		return
	}

	var taskSum float64
	for i := range wp.Tasks {
		v.validateTask(&wp.Tasks[i], location, result)
		taskSum += wp.Tasks[i].EstimatedHours
	}

	if wp.EstimatedHours > 0 && taskSum > 0 {
		diffRatio := math.Abs(wp.EstimatedHours-taskSum) / math.Max(wp.EstimatedHours, 1)
		if diffRatio > v.rules.Policy.WPDivergenceRatio {
			result.addWarning(CategoryEstimation,
				fmt.Sprintf("WP hours (%g) differ from sum of tasks (%g)", wp.EstimatedHours, taskSum),
				location)
		}
	}
}

func (v *Validator) validateTask(task *model.Task, parentLocation string, result *Result) {
	location := fmt.Sprintf("%s.task[%s]", parentLocation, orUnknown(task.ID))
	hours := task.EstimatedHours
	limits := v.rules.Limits

	if hours < limits.MinHoursPerTask {
		result.addCorrection(location, "estimated_hours", hours, limits.MinHoursPerTask,
			fmt.Sprintf("Hours below minimum (%g < %g)", hours, limits.MinHoursPerTask))
	}
	if hours > limits.MaxHoursPerTask {
		result.addCorrection(location, "estimated_hours", hours, limits.MaxHoursPerTask,
			fmt.Sprintf("Hours exceed maximum (%g > %g)", hours, limits.MaxHoursPerTask))
	}

	// Template bounds are advisory: outside them is a warning, the global
	// limits above stay authoritative.
	if tmpl := v.rules.FindTemplate(task.Name); tmpl != nil {
		if hours < tmpl.MinHours || hours > tmpl.MaxHours {
			result.addWarning(CategoryEstimation,
				fmt.Sprintf("Task '%s' hours (%g) outside typical range (%g-%g)",
					task.Name, hours, tmpl.MinHours, tmpl.MaxHours),
				location)
		}
	}
}

func (v *Validator) validateProjectInfo(info *model.ProjectInfo, result *Result) {
	location := "project_info"

	if info.ProjectName == "" {
		result.addWarning(CategoryCompleteness, "Missing project name", location)
	}
	if info.TotalEstimatedHours == 0 {
		result.addWarning(CategoryCompleteness, "Missing total estimated hours", location)
	}
	if info.ComplexityLevel != "" {
		if _, ok := v.rules.ComplexityMultipliers[info.ComplexityLevel]; !ok {
			result.addWarning(CategoryEstimation,
				fmt.Sprintf("Unknown complexity level: %s", info.ComplexityLevel), location)
		}
	}
}

func (v *Validator) validateTotalHours(tree *model.WBSTree, result *Result) {
	declared := tree.ProjectInfo.TotalEstimatedHours
	actual := tree.PhaseHoursSum()

	if declared > 0 && actual > 0 {
		diffRatio := math.Abs(declared-actual) / math.Max(declared, 1)
		if diffRatio > v.rules.Policy.TotalDivergenceRatio {
			result.addWarning(CategoryEstimation,
				fmt.Sprintf("Declared total (%g) differs from sum of phases (%g)", declared, actual),
				"project_info")
		}
	}
}

// confidence is a heuristic score, not a statistically calibrated one:
// penalty weights come from the rule set policy.
func (v *Validator) confidence(result *Result, tree *model.WBSTree) float64 {
	policy := v.rules.Policy
	score := 1.0

	score -= float64(len(result.Issues)) * policy.IssuePenalty
	score -= float64(len(result.Warnings)) * policy.WarningPenalty

	phaseCount := 0
	taskCount := 0
	if tree != nil {
		phaseCount = len(tree.Phases)
		taskCount = tree.TaskCount()
	}
	if phaseCount < policy.MinPhases {
		score -= policy.FewPhasesPenalty
	}
	if taskCount < policy.MinTasks {
		score -= policy.FewTasksPenalty
	}

	return clamp01(score)
}

// Normalize returns a deep copy of the tree with every hour value
// clamped into the rule set ranges and the roll-up totals recomputed.
// It never fails, even when the input is already conformant.
func (v *Validator) Normalize(tree *model.WBSTree) *model.WBSTree {
	normalized := tree.Clone()
	if normalized == nil {
		normalized = &model.WBSTree{}
	}
	limits := v.rules.Limits

	for pi := range normalized.Phases {
		phase := &normalized.Phases[pi]
		phase.EstimatedHours = clampRange(phase.EstimatedHours, limits.MinHoursPerPhase, limits.MaxHoursPerPhase)

		for wi := range phase.WorkPackages {
			wp := &phase.WorkPackages[wi]
			if wp.EstimatedHours < limits.MinHoursPerTask {
				wp.EstimatedHours = limits.MinHoursPerTask
			}
			for ti := range wp.Tasks {
				task := &wp.Tasks[ti]
				task.EstimatedHours = clampRange(task.EstimatedHours, limits.MinHoursPerTask, limits.MaxHoursPerTask)
			}
		}
	}

	total := normalized.PhaseHoursSum()
	normalized.ProjectInfo.TotalEstimatedHours = total
	normalized.ProjectInfo.EstimatedDuration = model.DurationWeeksText(total)

	return normalized
}

func clampRange(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clamp01(value float64) float64 {
	return clampRange(value, 0, 1)
}

func orUnknown(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
