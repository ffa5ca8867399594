package stabilizer

import "github.com/cleberrangel/wbs-stabilizer-api/internal/model"

// Matcher correlates the same logical node across candidate trees and
// collects its hour samples. The default implementation aligns nodes by
// ordinal position; an id- or name-similarity matcher can be swapped in
// without touching the statistics code.
type Matcher interface {
	TotalHours(trees []*model.WBSTree) []float64
	PhaseHours(trees []*model.WBSTree, phaseIdx int) []float64
	WorkPackageHours(trees []*model.WBSTree, phaseIdx, wpIdx int) []float64
	TaskHours(trees []*model.WBSTree, phaseIdx, wpIdx, taskIdx int) []float64
}

// PositionalMatcher assumes the trees share the same ordinal topology
// because they come from independent runs of the same generation prompt.
// Trees shorter than the template at a given position simply contribute
// no value; zero and missing hours are skipped as well.
type PositionalMatcher struct{}

func (PositionalMatcher) TotalHours(trees []*model.WBSTree) []float64 {
	values := make([]float64, 0, len(trees))
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		if total := tree.ProjectInfo.TotalEstimatedHours; total > 0 {
			values = append(values, total)
		}
	}
	return values
}

func (PositionalMatcher) PhaseHours(trees []*model.WBSTree, phaseIdx int) []float64 {
	values := make([]float64, 0, len(trees))
	for _, tree := range trees {
		if tree == nil || phaseIdx >= len(tree.Phases) {
			continue
		}
		if hours := tree.Phases[phaseIdx].EstimatedHours; hours > 0 {
			values = append(values, hours)
		}
	}
	return values
}

func (PositionalMatcher) WorkPackageHours(trees []*model.WBSTree, phaseIdx, wpIdx int) []float64 {
	values := make([]float64, 0, len(trees))
	for _, tree := range trees {
		if tree == nil || phaseIdx >= len(tree.Phases) {
			continue
		}
		wps := tree.Phases[phaseIdx].WorkPackages
		if wpIdx >= len(wps) {
			continue
		}
		if hours := wps[wpIdx].EstimatedHours; hours > 0 {
			values = append(values, hours)
		}
	}
	return values
}

func (PositionalMatcher) TaskHours(trees []*model.WBSTree, phaseIdx, wpIdx, taskIdx int) []float64 {
	values := make([]float64, 0, len(trees))
	for _, tree := range trees {
		if tree == nil || phaseIdx >= len(tree.Phases) {
			continue
		}
		wps := tree.Phases[phaseIdx].WorkPackages
		if wpIdx >= len(wps) {
			continue
		}
		tasks := wps[wpIdx].Tasks
		if taskIdx >= len(tasks) {
			continue
		}
		if hours := tasks[taskIdx].EstimatedHours; hours > 0 {
			values = append(values, hours)
		}
	}
	return values
}
