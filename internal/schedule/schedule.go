// Package schedule computes Gantt-style start/end offsets for a WBS tree.
//
// Phases run strictly in declared order. Inside a phase, work packages
// (and inside them, tasks) follow a two-cursor rule: non-parallel nodes
// queue behind the sequential cursor, parallel nodes may start as soon as
// the container starts or their explicit dependency finishes. Dependency
// ids are resolved only when already computed earlier in traversal order;
// forward references contribute nothing to the start time and are flagged,
// not rejected.
package schedule

import (
	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
)

// Item is the computed window of one node, in working-day offsets from
// project start.
type Item struct {
	ID           string `json:"id"`
	StartDay     int    `json:"start_day"`
	DurationDays int    `json:"duration_days"`
	EndDay       int    `json:"end_day"`
}

// Schedule maps node ids to their computed windows plus project roll-ups
type Schedule struct {
	Items                  map[string]Item `json:"items"`
	TotalDays              int             `json:"total_days"`
	TotalWeeks             int             `json:"total_weeks"`
	UnresolvedDependencies []string        `json:"unresolved_dependencies,omitempty"`
}

// Scheduler derives per-node timing from durations, dependency edges and
// parallel-execution flags.
type Scheduler struct{}

// New creates a scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// Compute walks the tree and returns the full schedule. It never fails:
// missing durations are derived from hours and unknown dependency ids
// resolve to "no known end time".
func (s *Scheduler) Compute(tree *model.WBSTree) *Schedule {
	sched := &Schedule{Items: make(map[string]Item)}
	if tree == nil {
		sched.TotalWeeks = model.WeeksFromDays(0)
		return sched
	}

	flagged := make(map[string]bool)
	phaseStart := 0

	for pi := range tree.Phases {
		phase := &tree.Phases[pi]

		seqCursor := phaseStart
		parallelMaxEnd := phaseStart

		for wi := range phase.WorkPackages {
			wp := &phase.WorkPackages[wi]

			depEnd := s.dependencyEnd(sched, wp.Dependencies, flagged)
			duration := durationOf(wp.DurationDays, wp.EstimatedHours)

			var start int
			if wp.CanStartParallel {
				// Parallel packages ignore the sequential cursor: they
				// begin with the phase or as soon as their dependency ends.
				start = phaseStart
				if depEnd > 0 {
					start = depEnd
				}
			} else {
				start = seqCursor
				if depEnd > start {
					start = depEnd
				}
			}

			taskMaxEnd := s.computeTasks(sched, wp.Tasks, start, flagged)

			end := start + duration
			if taskMaxEnd > end {
				end = taskMaxEnd
			}

			sched.Items[wp.ID] = Item{
				ID:           wp.ID,
				StartDay:     start,
				DurationDays: end - start,
				EndDay:       end,
			}

			if !wp.CanStartParallel {
				seqCursor = end
			}
			if end > parallelMaxEnd {
				parallelMaxEnd = end
			}
		}

		sched.Items[phase.ID] = Item{
			ID:           phase.ID,
			StartDay:     phaseStart,
			DurationDays: parallelMaxEnd - phaseStart,
			EndDay:       parallelMaxEnd,
		}

		phaseStart = parallelMaxEnd
	}

	sched.TotalDays = phaseStart
	sched.TotalWeeks = model.WeeksFromDays(phaseStart)

	return sched
}

// computeTasks applies the same two-cursor rule one level down, seeded
// with the work package start. Returns the max end across all tasks.
func (s *Scheduler) computeTasks(sched *Schedule, tasks []model.Task, wpStart int, flagged map[string]bool) int {
	seqCursor := wpStart
	parallelMaxEnd := wpStart

	for ti := range tasks {
		task := &tasks[ti]

		depEnd := s.dependencyEnd(sched, task.Dependencies, flagged)
		duration := durationOf(task.DurationDays, task.EstimatedHours)

		var start int
		if task.CanStartParallel {
			start = wpStart
			if depEnd > 0 {
				start = depEnd
			}
		} else {
			start = seqCursor
			if depEnd > start {
				start = depEnd
			}
		}

		end := start + duration
		sched.Items[task.ID] = Item{
			ID:           task.ID,
			StartDay:     start,
			DurationDays: duration,
			EndDay:       end,
		}

		if !task.CanStartParallel {
			seqCursor = end
		}
		if end > parallelMaxEnd {
			parallelMaxEnd = end
		}
	}

	return parallelMaxEnd
}

// dependencyEnd returns the latest end among already-computed
// dependencies; ids not yet computed contribute 0 and are flagged.
func (s *Scheduler) dependencyEnd(sched *Schedule, deps []string, flagged map[string]bool) int {
	end := 0
	for _, dep := range deps {
		if dep == "" {
			continue
		}
		item, ok := sched.Items[dep]
		if !ok {
			if !flagged[dep] {
				flagged[dep] = true
				sched.UnresolvedDependencies = append(sched.UnresolvedDependencies, dep)
			}
			continue
		}
		if item.EndDay > end {
			end = item.EndDay
		}
	}
	return end
}

// durationOf prefers the declared duration and falls back to deriving it
// from estimated hours.
func durationOf(declaredDays int, hours float64) int {
	if declaredDays > 0 {
		return declaredDays
	}
	return model.DurationDays(hours)
}
