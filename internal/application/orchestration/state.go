package orchestration

import (
	"context"

	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
)

// State 单次编排的状态
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCompletion State = "awaiting_completion"
	StateValidating         State = "validating"
	StateFailed             State = "failed"
)

// allowedTransitions Idle -> AwaitingCompletion -> {Validating, Failed} -> Idle
var allowedTransitions = map[State][]State{
	StateIdle:               {StateAwaitingCompletion, StateFailed},
	StateAwaitingCompletion: {StateValidating, StateFailed},
	StateValidating:         {StateIdle, StateFailed},
	StateFailed:             {StateIdle},
}

// machine 记录一次编排的状态迁移
type machine struct {
	state   State
	history []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, history: []State{StateIdle}}
}

func (m *machine) transition(ctx context.Context, to State) {
	from := m.state
	if !canTransition(from, to) {
		logger.Warn(ctx, "unexpected orchestration state transition", "from", string(from), "to", string(to))
	}
	metrics.OrchestrationStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	logger.Debug(ctx, "orchestration state transition", "from", string(from), "to", string(to))
	m.state = to
	m.history = append(m.history, to)
}

// fail 进入 Failed 后回到 Idle
func (m *machine) fail(ctx context.Context) {
	m.transition(ctx, StateFailed)
	m.transition(ctx, StateIdle)
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
