package session

import (
	"bytes"
	"testing"
	"time"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLaunchedOrchestrator(t *testing.T) (*Orchestrator, *Connection) {
	t.Helper()
	conn := NewConnection(DefaultClientCapabilities("test", "test", ""), false)
	require.NoError(t, conn.state.Spawn())
	require.NoError(t, conn.state.BeginSendInitialize())
	conn.state.HandleInitializeResponse()
	conn.state.HandleLaunchResponse()
	return NewOrchestrator(conn), conn
}

func TestOrchestrator_EndSession_RejectsBeforeLaunch(t *testing.T) {
	conn := NewConnection(DefaultClientCapabilities("test", "test", ""), false)
	orch := NewOrchestrator(conn)
	err := orch.EndSession(EndDisconnect)
	assert.ErrorIs(t, err, errs.ErrSessionNotStarted)
}

func TestOrchestrator_EndSession_EnqueuesDisconnect(t *testing.T) {
	orch, conn := newLaunchedOrchestrator(t)
	require.NoError(t, orch.EndSession(EndDisconnect))
	assert.Equal(t, 1, conn.queue.PendingLen())
}

// TestOrchestrator_EndSession_WatchdogKillsOnTimeout pins the Comment-4 fix:
// EndSession must arm a watchdog that escalates to Connection.Kill if
// terminate/disconnect never gets a response. Connection.Kill on an
// unspawned process is a harmless no-op, so the assertion here is on the
// escalation actually firing (captured via the log line it emits), not on
// process-table side effects a unit test has no way to observe without a
// live subprocess.
func TestOrchestrator_EndSession_WatchdogKillsOnTimeout(t *testing.T) {
	var buf bytes.Buffer
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(prevOut)

	orch, _ := newLaunchedOrchestrator(t)
	orch.SetEndSessionTimeout(10 * time.Millisecond)
	require.NoError(t, orch.EndSession(EndDisconnect))

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("killing adapter"))
	}, time.Second, 5*time.Millisecond, "watchdog must escalate to Kill once the timeout elapses unanswered")
}

// TestOrchestrator_EndSession_ResponseCancelsWatchdog confirms the normal
// path never escalates: once the disconnect response is handled, the
// watchdog must be cancelled before its timeout fires.
func TestOrchestrator_EndSession_ResponseCancelsWatchdog(t *testing.T) {
	var buf bytes.Buffer
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(prevOut)

	orch, conn := newLaunchedOrchestrator(t)
	orch.SetEndSessionTimeout(50 * time.Millisecond)
	require.NoError(t, orch.EndSession(EndDisconnect))

	conn.cb.fireResponse(constants.CommandDisconnect, StatusSuccess, &dap.DisconnectResponse{})

	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, buf.String(), "killing adapter", "watchdog should have been cancelled once the response landed")
}

func TestOrchestrator_FetchSources_Enqueues(t *testing.T) {
	orch, conn := newLaunchedOrchestrator(t)
	require.NoError(t, orch.FetchSources())
	assert.Equal(t, 1, conn.queue.PendingLen())
}
