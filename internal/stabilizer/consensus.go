// Package stabilizer merges N independently generated WBS trees into one
// canonical result: whole-tree outlier rejection by total hours, per-node
// consensus via a configurable statistic, and renormalization against the
// rule set. The merge is purely functional: input trees are read-only and
// the output is always a fresh tree.
package stabilizer

import (
	"math"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
)

// Consensus methods re-exported for callers that only import this package
const (
	MethodMedian      = rules.MethodMedian
	MethodMean        = rules.MethodMean
	MethodTrimmedMean = rules.MethodTrimmedMean
	MethodSingle      = rules.MethodSingle
)

// minReferenceSamples is the minimum number of other totals needed to
// estimate spread when judging a candidate; below it no tree is rejected.
const minReferenceSamples = 3

// Statistics summarize the total-hours distribution of the raw ensemble
type Statistics struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
	Mean   float64 `json:"mean,omitempty"`
	Median float64 `json:"median,omitempty"`
	Std    float64 `json:"std,omitempty"`
	CV     float64 `json:"cv,omitempty"`
}

// Metadata describes how a stabilized result was produced
type Metadata struct {
	Method          string      `json:"method"`
	Confidence      float64     `json:"confidence"`
	TotalIterations int         `json:"total_iterations"`
	UsedIterations  int         `json:"used_iterations"`
	OutliersRemoved int         `json:"outliers_removed"`
	Statistics      *Statistics `json:"statistics,omitempty"`
}

// Result is the stabilized tree plus its consensus metadata
type Result struct {
	Tree     *model.WBSTree `json:"tree"`
	Metadata Metadata       `json:"metadata"`
}

// Normalizer rewrites a tree into a range-compliant form; satisfied by
// validator.Validator.
type Normalizer interface {
	Normalize(tree *model.WBSTree) *model.WBSTree
}

// Engine combines candidate trees into one consensus result
type Engine struct {
	rules      *rules.RuleSet
	matcher    Matcher
	normalizer Normalizer
}

// NewEngine creates an engine with the default positional matcher
func NewEngine(rs *rules.RuleSet, normalizer Normalizer) *Engine {
	return &Engine{rules: rs, matcher: PositionalMatcher{}, normalizer: normalizer}
}

// NewEngineWithMatcher creates an engine with a custom node matcher
func NewEngineWithMatcher(rs *rules.RuleSet, normalizer Normalizer, matcher Matcher) *Engine {
	return &Engine{rules: rs, matcher: matcher, normalizer: normalizer}
}

// Stabilize merges the candidate trees using the given consensus method
// (empty means the rule set default). With zero trees it fails; with one
// tree it passes the tree through untouched.
func (e *Engine) Stabilize(trees []*model.WBSTree, method string) (*Result, error) {
	log := logger.Global()

	if len(trees) == 0 {
		return nil, model.ErrNoResults
	}

	if len(trees) == 1 {
		return &Result{
			Tree: trees[0].Clone(),
			Metadata: Metadata{
				Method:          MethodSingle,
				Confidence:      1.0,
				TotalIterations: 1,
				UsedIterations:  1,
				Statistics:      e.statistics(trees),
			},
		}, nil
	}

	if method == "" {
		method = e.rules.Stabilization.ConsensusMethod
	}

	used := e.removeOutliers(trees)
	if len(used) == 0 {
		// Never starve the pipeline: an over-aggressive filter falls
		// back to the full ensemble.
		used = trees
	}

	consensus := e.consensus(used, method)
	if e.rules.AutoNormalize() && e.normalizer != nil {
		consensus = e.normalizer.Normalize(consensus)
	}

	confidence := e.confidence(trees, used)
	outliers := len(trees) - len(used)

	log.Info().
		Str("method", method).
		Int("total", len(trees)).
		Int("used", len(used)).
		Int("outliers", outliers).
		Float64("confidence", confidence).
		Msg("Ensemble estabilizado")

	return &Result{
		Tree: consensus,
		Metadata: Metadata{
			Method:          method,
			Confidence:      confidence,
			TotalIterations: len(trees),
			UsedIterations:  len(used),
			OutliersRemoved: outliers,
			Statistics:      e.statistics(trees),
		},
	}, nil
}

// removeOutliers drops trees whose declared total hours sit too far from
// the rest of the ensemble. Each candidate is scored against the mean and
// sample deviation of the OTHER totals: a global z-score lets a single
// extreme value inflate the deviation enough to hide itself in small
// ensembles. Trees without a usable total are kept; they cannot be judged.
func (e *Engine) removeOutliers(trees []*model.WBSTree) []*model.WBSTree {
	log := logger.Global()
	threshold := e.rules.Stabilization.OutlierThresholdStd

	totals := e.matcher.TotalHours(trees)
	if len(totals) < 3 {
		return trees // not enough data for a meaningful deviation
	}
	if stddev(totals) == 0 {
		return trees // no real variation to reject on
	}

	kept := make([]*model.WBSTree, 0, len(trees))
	for _, tree := range trees {
		total := tree.ProjectInfo.TotalEstimatedHours
		if total <= 0 {
			kept = append(kept, tree)
			continue
		}

		others := withoutOne(totals, total)
		if len(others) < minReferenceSamples {
			kept = append(kept, tree)
			continue
		}

		m := mean(others)
		s := stddev(others)

		outlier := false
		if s == 0 {
			outlier = total != m
		} else {
			outlier = math.Abs(total-m)/s > threshold
		}

		if outlier {
			log.Info().
				Float64("total_hours", total).
				Float64("reference_mean", m).
				Float64("reference_std", s).
				Msg("Resultado descartado como outlier")
			continue
		}
		kept = append(kept, tree)
	}

	return kept
}

// consensus builds the merged tree using the first surviving tree as the
// structural template.
func (e *Engine) consensus(trees []*model.WBSTree, method string) *model.WBSTree {
	out := trees[0].Clone()

	if totals := e.matcher.TotalHours(trees); len(totals) > 0 {
		total := math.Round(reduce(totals, method))
		out.ProjectInfo.TotalEstimatedHours = total
		out.ProjectInfo.EstimatedDuration = model.DurationWeeksText(total)
	}

	for pi := range out.Phases {
		phase := &out.Phases[pi]

		if values := e.matcher.PhaseHours(trees, pi); len(values) > 0 {
			phase.EstimatedHours = math.Round(reduce(values, method))
		}
		phase.DurationDays = model.DurationDays(phase.EstimatedHours)
		phase.Duration = model.DurationDaysText(phase.EstimatedHours)

		for wi := range phase.WorkPackages {
			wp := &phase.WorkPackages[wi]

			if values := e.matcher.WorkPackageHours(trees, pi, wi); len(values) > 0 {
				wp.EstimatedHours = math.Round(reduce(values, method))
			}

			for ti := range wp.Tasks {
				task := &wp.Tasks[ti]
				if values := e.matcher.TaskHours(trees, pi, wi, ti); len(values) > 0 {
					task.EstimatedHours = math.Round(reduce(values, method))
				}
				task.EstimatedHours = e.rules.NormalizeHours(task.EstimatedHours, task.Name)
			}
		}
	}

	return out
}

// confidence scores the ensemble: enough used iterations raise it,
// removed outliers and cross-sample variance lower it.
func (e *Engine) confidence(all, used []*model.WBSTree) float64 {
	if len(all) < 2 {
		return 1.0
	}

	base := math.Min(1.0, float64(len(used))/3.0)

	outlierRatio := float64(len(all)-len(used)) / float64(len(all))
	outlierPenalty := outlierRatio * 0.2

	variancePenalty := 0.0
	usedTotals := e.matcher.TotalHours(used)
	if len(usedTotals) > 1 {
		variancePenalty = math.Min(0.3, coefficientOfVariation(usedTotals)*0.5)
	}

	confidence := base - outlierPenalty - variancePenalty
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// statistics summarizes the unfiltered ensemble totals
func (e *Engine) statistics(trees []*model.WBSTree) *Statistics {
	totals := e.matcher.TotalHours(trees)
	if len(totals) == 0 {
		return nil
	}

	min, max := totals[0], totals[0]
	for _, t := range totals {
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}

	stats := &Statistics{
		Count: len(totals),
		Min:   min,
		Max:   max,
		Range: max - min,
	}

	if len(totals) > 1 {
		stats.Mean = math.Round(mean(totals)*10) / 10
		stats.Median = median(totals)
		stats.Std = math.Round(stddev(totals)*10) / 10
		if stats.Mean > 0 {
			stats.CV = math.Round(stats.Std/stats.Mean*1000) / 1000
		}
	}

	return stats
}

// withoutOne returns values minus a single instance of exclude
func withoutOne(values []float64, exclude float64) []float64 {
	out := make([]float64, 0, len(values))
	removed := false
	for _, v := range values {
		if !removed && v == exclude {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}
