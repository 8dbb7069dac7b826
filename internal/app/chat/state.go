package chat

import "fmt"

// turnState tracks one user turn through the request cycle. The tool
// sub-machine (awaitingPrimary → awaitingTool → done) makes the at-most-one
// tool round-trip explicit: there is no edge back from awaitingTool.
type turnState uint8

const (
	stateIdle turnState = iota
	stateComposing
	stateAwaitingPrimary
	stateAwaitingTool
	stateDone
	stateFailed
)

func (s turnState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateComposing:
		return "composing"
	case stateAwaitingPrimary:
		return "awaiting_primary_response"
	case stateAwaitingTool:
		return "awaiting_tool_response"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

var turnTransitions = map[turnState][]turnState{
	stateIdle:            {stateComposing},
	stateComposing:       {stateAwaitingPrimary},
	stateAwaitingPrimary: {stateDone, stateAwaitingTool, stateFailed},
	stateAwaitingTool:    {stateDone, stateFailed},
}

type turnMachine struct {
	state turnState
}

func newTurn() *turnMachine {
	return &turnMachine{state: stateIdle}
}

func (m *turnMachine) advance(next turnState) error {
	for _, allowed := range turnTransitions[m.state] {
		if next == allowed {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid turn transition %s -> %s", m.state, next)
}
