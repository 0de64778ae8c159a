package session

import (
	"fmt"
	"sync"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
)

// ConnectionState is the seven-state adapter lifecycle from spec.md §3/§4.4.
type ConnectionState int

const (
	StateNotSpawned ConnectionState = iota
	StateSpawned
	StateInitializing
	StatePartiallyInitialized
	StateLaunched
	StateAttached
	StateInitialized
)

func (s ConnectionState) String() string {
	switch s {
	case StateNotSpawned:
		return "not_spawned"
	case StateSpawned:
		return "spawned"
	case StateInitializing:
		return "initializing"
	case StatePartiallyInitialized:
		return "partially_initialized"
	case StateLaunched:
		return "launched"
	case StateAttached:
		return "attached"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// StateMachine tracks the connection's lifecycle state plus the orthogonal
// `initialized` flag. The teacher's utils.StatusManager is the direct
// ancestor of this type's lock pattern, generalized from a flat string
// status to the full lifecycle plus the flag the Open Question in
// spec.md §9 asks for: the `initialized` event is tracked as a flag next to
// state, not as a transition that overwrites the launched/attached
// distinction.
type StateMachine struct {
	mu sync.RWMutex

	state ConnectionState

	// initializedEventSeen is set once by ObserveInitializedEvent and
	// never cleared for the life of the connection.
	initializedEventSeen bool

	// initializeSent enforces the single-initialize-per-lifetime
	// invariant (spec.md §3, "Single initialize").
	initializeSent bool
}

// NewStateMachine returns a machine in StateNotSpawned.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateNotSpawned}
}

// State returns the current lifecycle state.
func (m *StateMachine) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// InitializedEventSeen reports whether the `initialized` event has ever
// been observed on this connection.
func (m *StateMachine) InitializedEventSeen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initializedEventSeen
}

// FullyInitialized reports state ∈ {initialized, launched, attached}.
func (m *StateMachine) FullyInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fullyInitializedLocked()
}

func (m *StateMachine) fullyInitializedLocked() bool {
	return m.state == StateInitialized || m.state == StateLaunched || m.state == StateAttached
}

// Spawn transitions not_spawned -> spawned.
func (m *StateMachine) Spawn() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateNotSpawned {
		return errs.ErrAdapterAlreadySpawned
	}
	m.state = StateSpawned
	return nil
}

// CanSend reports whether cmd may leave the queue given the current state,
// independent of capability gating (session.CapabilityRegistry handles
// that half separately). initialize requires exactly StateSpawned and at
// most one ever; launch/attach require exactly StatePartiallyInitialized;
// every other command requires having gotten past the initialize response
// (state beyond StateInitializing) — this is the interpretation DESIGN.md
// records for the "state's allow-list" spec.md §4.4 describes only by
// example, since configurationDone is sent while still
// StatePartiallyInitialized, before the launch/attach response arrives.
func (m *StateMachine) CanSend(cmd constants.Command) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch cmd {
	case constants.CommandInitialize:
		return m.state == StateSpawned && !m.initializeSent
	case constants.CommandLaunch, constants.CommandAttach:
		return m.state == StatePartiallyInitialized
	default:
		switch m.state {
		case StateNotSpawned, StateSpawned, StateInitializing:
			return false
		default:
			return true
		}
	}
}

// BeginSendInitialize records that the initialize request has left the
// queue: spawned -> initializing, and marks the single-initialize
// invariant consumed.
func (m *StateMachine) BeginSendInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSpawned || m.initializeSent {
		return fmt.Errorf("begin initialize: %w (state=%s)", errs.ErrAdapterNotDoneInitializing, m.state)
	}
	m.initializeSent = true
	m.state = StateInitializing
	return nil
}

// HandleInitializeResponse: initializing -> partially_initialized.
func (m *StateMachine) HandleInitializeResponse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateInitializing {
		m.state = StatePartiallyInitialized
	}
}

// HandleLaunchResponse: partially_initialized -> launched.
func (m *StateMachine) HandleLaunchResponse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateLaunched
}

// HandleAttachResponse: partially_initialized -> attached.
func (m *StateMachine) HandleAttachResponse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAttached
}

// ObserveInitializedEvent sets the orthogonal flag without touching state.
func (m *StateMachine) ObserveInitializedEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initializedEventSeen = true
}

// HandleDisconnectResponse moves state -> initialized on success, meaning
// the debuggee is gone but the adapter may still be reachable. Failure
// leaves state untouched.
func (m *StateMachine) HandleDisconnectResponse(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.state = StateInitialized
	}
}

// Reset returns the machine to not_spawned, called once Wait() has
// collected the adapter's exit code.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateNotSpawned
	m.initializeSent = false
	m.initializedEventSeen = false
}
