// Package scheduler resolves wave execution order from a frozen plan
// snapshot's dependency graph. Validation happens once at plan-start time;
// during execution the graph is consulted through an index-based adjacency
// structure, never re-validated.
package scheduler

import (
	"fmt"
	"sort"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
)

const moduleName = "scheduler"

// WaveGraph is the validated, index-based dependency graph of a plan's waves.
// Indices refer to positions in the snapshot plan's wave slice, ordered by
// sequence position.
type WaveGraph struct {
	waves []model.Wave
	// preds[i] lists the wave indices that must complete before wave i.
	preds [][]int
	// order is the deterministic topological order of wave indices.
	order []int
}

// NewWaveGraph validates the snapshot's wave list and builds the dependency
// graph. It returns a validation error for an empty plan, a wave without
// protection groups, an unknown predecessor reference, or a cyclic graph.
func NewWaveGraph(snapshot model.PlanSnapshot) (*WaveGraph, error) {
	waves := append([]model.Wave(nil), snapshot.Plan.Waves...)
	if len(waves) == 0 {
		return nil, exception.NewValidation(moduleName, fmt.Sprintf("recovery plan '%s' has no waves", snapshot.Plan.ID), nil)
	}

	// Canonical order is sequence position; ties keep definition order.
	sort.SliceStable(waves, func(i, j int) bool {
		return waves[i].Sequence < waves[j].Sequence
	})

	indexByID := make(map[string]int, len(waves))
	for i, w := range waves {
		if len(w.GroupIDs) == 0 {
			return nil, exception.NewValidation(moduleName, fmt.Sprintf("wave '%s' references no protection groups", w.ID), nil)
		}
		if _, dup := indexByID[w.ID]; dup {
			return nil, exception.NewValidation(moduleName, fmt.Sprintf("duplicate wave id '%s'", w.ID), nil)
		}
		indexByID[w.ID] = i
	}

	preds := make([][]int, len(waves))
	for i, w := range waves {
		if len(w.Predecessors) == 0 {
			// Implicit dependency on the previous wave in sequence order.
			if i > 0 {
				preds[i] = []int{i - 1}
			}
			continue
		}
		for _, pid := range w.Predecessors {
			pi, ok := indexByID[pid]
			if !ok {
				return nil, exception.NewValidation(moduleName, fmt.Sprintf("wave '%s' references unknown predecessor '%s'", w.ID, pid), nil)
			}
			if pi == i {
				return nil, exception.NewValidation(moduleName, fmt.Sprintf("wave '%s' depends on itself", w.ID), nil)
			}
			preds[i] = append(preds[i], pi)
		}
	}

	g := &WaveGraph{waves: waves, preds: preds}
	order, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// topologicalOrder runs Kahn's algorithm with a deterministic tie-break:
// among ready waves, the lowest index (sequence position) goes first.
func (g *WaveGraph) topologicalOrder() ([]int, error) {
	n := len(g.waves)
	indegree := make([]int, n)
	succs := make([][]int, n)
	for i, ps := range g.preds {
		indegree[i] = len(ps)
		for _, p := range ps {
			succs[p] = append(succs[p], i)
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, s := range succs[next] {
			indegree[s]--
			if indegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	if len(order) != n {
		return nil, exception.NewValidation(moduleName, "wave dependency graph contains a cycle", nil)
	}
	return order, nil
}

// Order returns the deterministic topological order of wave indices.
func (g *WaveGraph) Order() []int {
	return append([]int(nil), g.order...)
}

// Len returns the number of waves in the graph.
func (g *WaveGraph) Len() int {
	return len(g.waves)
}

// Wave returns the wave at the given index in canonical (sequence) order.
func (g *WaveGraph) Wave(index int) model.Wave {
	return g.waves[index]
}

// NextReadyWave returns the index of the lowest-sequence wave whose
// predecessors are all complete and which is not itself complete, or -1 when
// the plan is exhausted. completed reports per-index completion, typically
// derived from the execution's job records.
func (g *WaveGraph) NextReadyWave(completed func(waveIndex int) bool) int {
	for _, i := range g.order {
		if completed(i) {
			continue
		}
		ready := true
		for _, p := range g.preds[i] {
			if !completed(p) {
				ready = false
				break
			}
		}
		if ready {
			return i
		}
	}
	return -1
}
