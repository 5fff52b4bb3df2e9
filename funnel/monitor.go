package funnel

import "github.com/poiesic/classit/core"

// Monitor provides hooks to observe the funnel.
// Implement this interface to trace stage survivors during a run.
type Monitor interface {
	Start(query string)
	AfterStage(level core.Level, survivors []core.ScoredCandidate, fellBack bool)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                            {}
func (n *noopMonitor) AfterStage(_ core.Level, _ []core.ScoredCandidate, _ bool) {}
func (n *noopMonitor) Finish(_ *Result)                                          {}
