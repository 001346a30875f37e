package workflow

import (
	"time"

	"github.com/ariel-frischer/codeforge/internal/progress"
)

// ProgressDisplay renders stage transitions. *progress.Display implements it.
type ProgressDisplay interface {
	StageStarted(index, total int, name string)
	StageFinished(index, total int, name, outcome string, elapsed time.Duration, err error)
}

// ProgressController wraps a ProgressDisplay with nil-safe methods that
// become no-ops when no display is configured.
type ProgressController struct {
	display ProgressDisplay
}

// NewProgressController creates a controller. display may be nil.
func NewProgressController(display ProgressDisplay) *ProgressController {
	return &ProgressController{display: display}
}

// StartStage shows a stage as running. index is 0-based.
func (p *ProgressController) StartStage(index, total int, name string) {
	if p == nil || p.display == nil {
		return
	}
	p.display.StageStarted(index+1, total, name)
}

// FinishStage shows the outcome of a stage attempt.
func (p *ProgressController) FinishStage(index, total int, name string, status AgentStatus, elapsed time.Duration, err error) {
	if p == nil || p.display == nil {
		return
	}
	outcome := progress.OutcomeFailed
	switch status {
	case AgentCompleted:
		outcome = progress.OutcomeCompleted
	case AgentSkipped:
		outcome = progress.OutcomeSkipped
	}
	p.display.StageFinished(index+1, total, name, outcome, elapsed, err)
}

// HasDisplay reports whether a display is configured.
func (p *ProgressController) HasDisplay() bool {
	return p != nil && p.display != nil
}
