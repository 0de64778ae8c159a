package protocol

import (
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/fansqz/dapclient/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPollFrame_TruncatedBodyThenEOF drives spec.md §8 scenario 6 against
// the real wire codec: a frame header declaring Content-Length: 10 but only
// 8 body bytes arrive before the stream closes. PollFrame must surface the
// failure as a wrapped errs.ErrProtocolError, never a hang or a silent
// nil-nil timeout.
func TestPollFrame_TruncatedBodyThenEOF(t *testing.T) {
	pr, pw := io.Pipe()
	codec := NewCodec(pr, io.Discard)

	go func() {
		_, _ = pw.Write([]byte("Content-Length: 10\r\n\r\n{\"ab\":1}"))
		_ = pw.Close()
	}()

	msg, raw, err := codec.PollFrame(2 * time.Second)
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.Nil(t, raw)
	assert.True(t, errors.Is(err, errs.ErrProtocolError))
}

// TestPollFrame_NoFrameWithinTimeout asserts the non-error, non-arrival
// case: nothing was written, so PollFrame must time out rather than block
// forever or report an error.
func TestPollFrame_NoFrameWithinTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	codec := NewCodec(pr, io.Discard)

	msg, raw, err := codec.PollFrame(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Nil(t, raw)
}

// TestPollFrame_DecodesValidFrameWithRawBytes confirms PollFrame returns
// both the typed message and the exact raw content bytes it was decoded
// from — the contract session.Dispatcher/Handler depend on to recover
// initialize-response capability fields go-dap's typed struct doesn't know
// about (see session/capabilities.go).
func TestPollFrame_DecodesValidFrameWithRawBytes(t *testing.T) {
	pr, pw := io.Pipe()
	codec := NewCodec(pr, io.Discard)

	body := `{"seq":2,"type":"response","request_seq":1,"success":true,"command":"initialize","body":{"supportsInstructionBreakpoints":true}}`
	go func() {
		_, _ = pw.Write([]byte("Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body))
	}()

	msg, raw, err := codec.PollFrame(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.JSONEq(t, body, string(raw))
}
