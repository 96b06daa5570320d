package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var ErrTimeout = errors.New("connection timed out")

const DefaultDialTimeout = 5 * time.Second

// Dial connects to addr over TCP. The connection inherits ctx's deadline,
// if any, for all subsequent reads and writes.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: dial %s", ErrTimeout, addr)
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := ApplyDeadline(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ApplyDeadline sets conn's deadline from ctx when ctx carries one
func ApplyDeadline(ctx context.Context, conn net.Conn) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	return nil
}
