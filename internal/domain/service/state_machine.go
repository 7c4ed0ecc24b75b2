package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TurnState is the Turn state machine (§4.8):
// idle → awaiting_llm → streaming → {tool_dispatch → awaiting_llm | done | aborted | failed}.
type TurnState string

const (
	TurnIdle         TurnState = "idle"
	TurnAwaitingLLM  TurnState = "awaiting_llm"
	TurnStreaming    TurnState = "streaming"
	TurnToolDispatch TurnState = "tool_dispatch"
	TurnCompacting   TurnState = "compacting" // SPEC_FULL.md §1.3 detour
	TurnDone         TurnState = "done"
	TurnAborted      TurnState = "aborted"
	TurnFailed       TurnState = "failed"
)

var turnTransitions = map[TurnState]map[TurnState]bool{
	TurnIdle:         {TurnAwaitingLLM: true},
	TurnAwaitingLLM:  {TurnStreaming: true, TurnAborted: true, TurnFailed: true},
	TurnStreaming:    {TurnToolDispatch: true, TurnCompacting: true, TurnDone: true, TurnAborted: true, TurnFailed: true},
	TurnToolDispatch: {TurnAwaitingLLM: true, TurnAborted: true, TurnFailed: true},
	TurnCompacting:   {TurnAwaitingLLM: true, TurnAborted: true, TurnFailed: true},
	TurnDone:         {},
	TurnAborted:      {},
	TurnFailed:       {},
}

// TurnStateMachine is a thread-safe whitelist-transition state machine,
// grounded on the teacher's domain/service.StateMachine. Listeners are
// invoked outside the lock to avoid deadlocks against re-entrant callers.
type TurnStateMachine struct {
	mu        sync.RWMutex
	state     TurnState
	listeners []func(from, to TurnState)
	logger    *zap.Logger
}

func NewTurnStateMachine(logger *zap.Logger) *TurnStateMachine {
	return &TurnStateMachine{state: TurnIdle, logger: logger}
}

func (sm *TurnStateMachine) State() TurnState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

func (sm *TurnStateMachine) IsTerminal() bool {
	switch sm.State() {
	case TurnDone, TurnAborted, TurnFailed:
		return true
	}
	return false
}

func (sm *TurnStateMachine) Transition(to TurnState) error {
	sm.mu.Lock()
	from := sm.state
	allowed, ok := turnTransitions[from]
	if !ok || !allowed[to] {
		sm.mu.Unlock()
		err := fmt.Errorf("invalid turn state transition: %s -> %s", from, to)
		if sm.logger != nil {
			sm.logger.Error("turn state machine violation", zap.Error(err))
		}
		return err
	}
	sm.state = to
	listeners := append([]func(from, to TurnState){}, sm.listeners...)
	sm.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return nil
}

func (sm *TurnStateMachine) OnTransition(fn func(from, to TurnState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, fn)
}

// ToolCallState is the tool-call state machine (§4.8):
// pending → (approval_wait)? → running → {succeeded|failed|timed_out|aborted|denied}.
type ToolCallState string

const (
	ToolCallPending      ToolCallState = "pending"
	ToolCallApprovalWait ToolCallState = "approval_wait"
	ToolCallRunning      ToolCallState = "running"
	ToolCallSucceeded    ToolCallState = "succeeded"
	ToolCallFailed       ToolCallState = "failed"
	ToolCallTimedOut     ToolCallState = "timed_out"
	ToolCallAborted      ToolCallState = "aborted"
	ToolCallDenied       ToolCallState = "denied"
)
