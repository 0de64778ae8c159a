package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCommand_RoundTripsEveryKnownCommand(t *testing.T) {
	for _, c := range allCommands {
		got, ok := LookupCommand(string(c))
		assert.True(t, ok, "command %q missing from the decode table", c)
		assert.Equal(t, c, got)
	}
	assert.Equal(t, len(allCommands), CommandTableSize(), "allCommands and commandTable must stay in lockstep")
}

func TestLookupCommand_RejectsUnknownCommand(t *testing.T) {
	_, ok := LookupCommand("notAnImaginedRequest")
	assert.False(t, ok)
}

func TestIsReverseRequest(t *testing.T) {
	assert.True(t, IsReverseRequest(CommandRunInTerminal))
	assert.True(t, IsReverseRequest(CommandStartDebugging))
	assert.False(t, IsReverseRequest(CommandLaunch))
	assert.False(t, IsReverseRequest(CommandInitialize))
}
