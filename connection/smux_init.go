package connection

import (
	"fmt"
	"net"
	"time"

	"github.com/xtaci/smux"
)

func DefaultSmuxConfig() *smux.Config {
	return &smux.Config{
		Version:           1,
		KeepAliveInterval: 5 * time.Second,
		KeepAliveTimeout:  30 * time.Second,
		MaxFrameSize:      65535,
		MaxReceiveBuffer:  4194304,
		MaxStreamBuffer:   131072,
	}
}

// NewClientSession opens a smux client session over conn, falling back to
// DefaultSmuxConfig when no config is given.
func NewClientSession(conn net.Conn, config ...*smux.Config) (*smux.Session, error) {
	session, err := smux.Client(conn, pickConfig(config))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SMUX client session: %w", err)
	}
	return session, nil
}

func NewServerSession(conn net.Conn, config ...*smux.Config) (*smux.Session, error) {
	session, err := smux.Server(conn, pickConfig(config))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SMUX server session: %w", err)
	}
	return session, nil
}

func pickConfig(config []*smux.Config) *smux.Config {
	if len(config) > 0 && config[0] != nil {
		return config[0]
	}
	return DefaultSmuxConfig()
}
