package testutils

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

// WaitUntilListening dials the address until the listener accepts or the
// retry budget is exhausted.
func WaitUntilListening(tb testing.TB, network, address string) (net.Conn, error) {
	tb.Helper()

	var (
		conn net.Conn
		err  error
	)

	dialer := &net.Dialer{Timeout: 100 * time.Millisecond}

	for range 10 {
		conn, err = dialer.DialContext(tb.Context(), network, address)
		if err == nil {
			return conn, nil
		}

		if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.Errno(10061)) {
			time.Sleep(50 * time.Millisecond)

			continue
		}
	}

	return nil, fmt.Errorf("listener not listening: %w", err)
}
