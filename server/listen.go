package server

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrListen wraps failures to create, bind or listen on the server socket
	ErrListen = errors.New("listen failed")
	// ErrServerClosed is returned by Serve after Shutdown
	ErrServerClosed = errors.New("server closed")
)

// Listen binds a TCP socket on all interfaces at port with address and
// port reuse enabled. Port 0 picks an ephemeral port.
func Listen(ctx context.Context, port int) (net.Listener, error) {
	addr := fmt.Sprintf(":%d", port)
	lc := net.ListenConfig{Control: reuseControl}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrListen, addr, err)
	}
	return listener, nil
}
