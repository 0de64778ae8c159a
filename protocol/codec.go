package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fansqz/dapclient/errs"
	"github.com/fansqz/dapclient/utils/gosync"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// Codec frames messages on the adapter's stdio pair using the DAP header
// "Content-Length: N\r\n\r\n" followed by N bytes of UTF-8 JSON. Framing
// itself is go-dap's ReadBaseMessage/WriteProtocolMessage; decoding the
// frame into a typed dap.Message is go-dap's DecodeProtocolMessage, called
// separately from ReadBaseMessage (rather than through the bundled
// dap.ReadProtocolMessage) specifically so the raw content bytes survive
// past the typed decode — go-dap's typed structs drop any field the DAP
// spec has added since the version this module vendors, and the
// capability registry needs those raw bytes back to recover them (see
// session/capabilities.go).
//
// dap.ReadBaseMessage blocks on the underlying reader with no deadline
// support, so PollFrame can't just forward a deadline to it the way
// ctagard-dap-mcp's Transport.Receive does. Instead a single background
// goroutine loops on ReadBaseMessage and pushes every decoded frame (or
// the terminal read error) onto a buffered channel; PollFrame is a select
// between that channel and a timer. This keeps "at most one poll-frame read
// per tick" true at the call site while letting the blocking read itself
// happen off the tick thread.
type Codec struct {
	writeMu sync.Mutex
	writer  *bufio.Writer

	frames chan frameOrErr
}

type frameOrErr struct {
	msg dap.Message
	raw json.RawMessage
	err error
}

// NewCodec wraps r/w (typically the adapter's stdout and stdin pipes) and
// starts the background frame reader.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	c := &Codec{
		writer: bufio.NewWriter(w),
		frames: make(chan frameOrErr, 64),
	}
	gosync.Go(context.Background(), func(ctx context.Context) {
		c.readLoop(bufio.NewReader(r))
	})
	return c
}

func (c *Codec) readLoop(r *bufio.Reader) {
	for {
		content, err := dap.ReadBaseMessage(r)
		if err != nil {
			c.frames <- frameOrErr{err: err}
			logrus.Errorf("[Codec] read loop terminating, err = %v", err)
			return
		}
		msg, err := dap.DecodeProtocolMessage(content)
		c.frames <- frameOrErr{msg: msg, raw: json.RawMessage(content), err: err}
		if err != nil {
			logrus.Errorf("[Codec] read loop terminating, err = %v", err)
			return
		}
	}
}

// WriteFrame writes the DAP envelope for msg atomically to the adapter's
// input and flushes it.
func (c *Codec) WriteFrame(msg dap.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := dap.WriteProtocolMessage(c.writer, msg); err != nil {
		return fmt.Errorf("write frame: %w: %v", errs.ErrProtocolError, err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w: %v", errs.ErrProtocolError, err)
	}
	return nil
}

// PollFrame waits up to timeout for a single inbound frame, returning the
// typed message alongside the raw content bytes it was decoded from. A
// nil, nil, nil result means no frame arrived within timeout — not an
// error. A non-nil error (always wrapping errs.ErrProtocolError) means
// framing failed — malformed header, truncated body, non-UTF-8 — and is
// fatal to the session.
func (c *Codec) PollFrame(timeout time.Duration) (dap.Message, json.RawMessage, error) {
	select {
	case fe := <-c.frames:
		if fe.err != nil {
			if fe.err == io.EOF {
				return nil, nil, fmt.Errorf("adapter closed stream: %w", errs.ErrProtocolError)
			}
			return nil, nil, fmt.Errorf("read frame: %w: %v", errs.ErrProtocolError, fe.err)
		}
		return fe.msg, fe.raw, nil
	case <-time.After(timeout):
		return nil, nil, nil
	}
}
