package http

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/glorpus-work/gogenome/pkg/errors"
)

// idleBody aborts a response body that delivers no data for timeout. Each
// Read arms the timer and disarms it once data arrives, so the limit applies
// to a stalled connection and not to the length of the transfer.
type idleBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	stalled atomic.Bool
	rawURL  string
}

func newIdleBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc, rawURL string) *idleBody {
	b := &idleBody{body: body, timeout: timeout, cancel: cancel, rawURL: rawURL}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, b.expire)
		b.timer.Stop()
	}
	return b
}

func (b *idleBody) expire() {
	b.stalled.Store(true)
	b.cancel()
}

func (b *idleBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.body.Read(p)
	if b.timer != nil {
		b.timer.Stop()
	}
	if err != nil && err != io.EOF && b.stalled.Load() {
		return n, fmt.Errorf("%s: no data received for %s: %w", b.rawURL, b.timeout, errors.ErrTransportTimeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.cancel()
	return b.body.Close()
}
