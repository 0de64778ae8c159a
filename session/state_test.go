package session

import (
	"testing"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_HappyPathTransitions(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, StateNotSpawned, m.State())

	require.NoError(t, m.Spawn())
	assert.Equal(t, StateSpawned, m.State())

	assert.True(t, m.CanSend(constants.CommandInitialize))
	require.NoError(t, m.BeginSendInitialize())
	assert.Equal(t, StateInitializing, m.State())
	assert.False(t, m.CanSend(constants.CommandInitialize), "single initialize invariant")

	m.HandleInitializeResponse()
	assert.Equal(t, StatePartiallyInitialized, m.State())
	assert.True(t, m.CanSend(constants.CommandLaunch))
	assert.True(t, m.CanSend(constants.CommandConfigurationDone), "configurationDone must be sendable before launch response")

	m.HandleLaunchResponse()
	assert.Equal(t, StateLaunched, m.State())
	assert.True(t, m.FullyInitialized())

	m.ObserveInitializedEvent()
	assert.True(t, m.InitializedEventSeen())
	assert.Equal(t, StateLaunched, m.State(), "initialized event must not overwrite launched")
}

func TestStateMachine_SpawnTwiceFails(t *testing.T) {
	m := NewStateMachine()
	require.NoError(t, m.Spawn())
	assert.ErrorIs(t, m.Spawn(), errs.ErrAdapterAlreadySpawned)
}

func TestStateMachine_CannotSendBeforeSpawn(t *testing.T) {
	m := NewStateMachine()
	assert.False(t, m.CanSend(constants.CommandInitialize))
	assert.False(t, m.CanSend(constants.CommandThreads))
}

func TestStateMachine_DisconnectSuccessMovesToInitialized(t *testing.T) {
	m := NewStateMachine()
	require.NoError(t, m.Spawn())
	require.NoError(t, m.BeginSendInitialize())
	m.HandleInitializeResponse()
	m.HandleLaunchResponse()

	m.HandleDisconnectResponse(false)
	assert.Equal(t, StateLaunched, m.State(), "failed disconnect leaves state untouched")

	m.HandleDisconnectResponse(true)
	assert.Equal(t, StateInitialized, m.State())
}

func TestStateMachine_Reset(t *testing.T) {
	m := NewStateMachine()
	require.NoError(t, m.Spawn())
	require.NoError(t, m.BeginSendInitialize())
	m.ObserveInitializedEvent()

	m.Reset()
	assert.Equal(t, StateNotSpawned, m.State())
	assert.False(t, m.InitializedEventSeen())
	assert.False(t, m.CanSend(constants.CommandInitialize), "not_spawned still forbids initialize")
}
