package session

import (
	"encoding/json"
	"testing"

	"github.com/fansqz/dapclient/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapterCapabilities_DecodesBothStandardAndExtension(t *testing.T) {
	raw := json.RawMessage(`{
		"supportsConfigurationDoneRequest": true,
		"supportsFunctionBreakpoints": true,
		"exceptionBreakpointFilters": [{"filter": "all", "label": "All Exceptions"}],
		"supportsInstructionBreakpoints": true,
		"supportsWriteMemoryRequest": true,
		"supportsSingleThreadExecutionRequests": true
	}`)

	ac, err := NewAdapterCapabilities(raw)
	require.NoError(t, err)

	assert.True(t, ac.SupportsConfigurationDoneRequest)
	assert.True(t, ac.SupportsFunctionBreakpoints)
	require.Len(t, ac.ExceptionBreakpointFilters, 1)
	assert.Equal(t, "all", ac.ExceptionBreakpointFilters[0].Filter)
	assert.True(t, ac.SupportsInstructionBreakpoints())
	assert.True(t, ac.SupportsWriteMemoryRequest())
	assert.True(t, ac.SupportsSingleThreadExecutionRequests())
}

func TestCapabilityRegistry_IsRequestAllowed(t *testing.T) {
	reg := NewCapabilityRegistry(DefaultClientCapabilities("c1", "test", ""))

	// before SetAdapter, every gated command is forbidden but core commands
	// remain allowed.
	assert.True(t, reg.IsRequestAllowed(constants.CommandThreads))
	assert.False(t, reg.IsRequestAllowed(constants.CommandConfigurationDone))
	assert.False(t, reg.IsRequestAllowed(constants.CommandRunInTerminal), "reverse requests are always forbidden")

	ac, err := NewAdapterCapabilities(json.RawMessage(`{
		"supportsConfigurationDoneRequest": true,
		"supportsTerminateRequest": false,
		"exceptionBreakpointFilters": [{"filter": "a", "label": "A"}]
	}`))
	require.NoError(t, err)
	reg.SetAdapter(ac)

	assert.True(t, reg.IsRequestAllowed(constants.CommandConfigurationDone))
	assert.False(t, reg.IsRequestAllowed(constants.CommandTerminate))
	assert.False(t, reg.IsRequestAllowed(constants.CommandSetExceptionBreakpoints), "exactly one filter does not satisfy length > 1")
}

func TestCapabilityRegistry_SetExceptionBreakpointsRequiresMultipleFilters(t *testing.T) {
	reg := NewCapabilityRegistry(DefaultClientCapabilities("c1", "test", ""))
	ac, err := NewAdapterCapabilities(json.RawMessage(`{
		"exceptionBreakpointFilters": [{"filter": "a", "label": "A"}, {"filter": "b", "label": "B"}]
	}`))
	require.NoError(t, err)
	reg.SetAdapter(ac)
	assert.True(t, reg.IsRequestAllowed(constants.CommandSetExceptionBreakpoints))
}

func TestClientCapabilities_ToArguments(t *testing.T) {
	c := DefaultClientCapabilities("client-1", "dapclient", "go")
	args := c.ToArguments()
	assert.Equal(t, "client-1", args.ClientID)
	assert.True(t, args.LinesStartAt1)
	assert.True(t, args.ColumnsStartAt1)
	assert.Equal(t, "path", args.PathFormat)
}
