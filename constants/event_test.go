package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupEvent_RoundTripsEveryKnownEvent(t *testing.T) {
	for _, e := range allEvents {
		got, ok := LookupEvent(string(e))
		assert.True(t, ok, "event %q missing from the decode table", e)
		assert.Equal(t, e, got)
	}
	assert.Equal(t, len(allEvents), EventTableSize(), "allEvents and eventTable must stay in lockstep")
}

func TestLookupEvent_RejectsUnknownEvent(t *testing.T) {
	_, ok := LookupEvent("somethingNeverStandardized")
	assert.False(t, ok)
}
