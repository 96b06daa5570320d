package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"pathserver/connection"
	"pathserver/graph"
	packet "pathserver/packet_handler"
	"pathserver/routing"

	"github.com/xtaci/smux"
)

// maxReplySize caps how much of a reply is read
const maxReplySize = 1 << 20

// Query sends one "<source> <dest>" request over a fresh TCP connection and
// returns the raw reply text. The server closes the connection after replying.
func Query(ctx context.Context, addr string, source, dest graph.NodeID) (string, error) {
	conn, err := connection.Dial(ctx, addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return exchange(conn, source, dest)
}

// QueryPath is Query with the reply decoded; an empty path means not found
func QueryPath(ctx context.Context, addr string, source, dest graph.NodeID) (routing.Path, error) {
	reply, err := Query(ctx, addr, source, dest)
	if err != nil {
		return nil, err
	}
	return packet.ParseResponse([]byte(reply))
}

func exchange(conn net.Conn, source, dest graph.NodeID) (string, error) {
	if _, err := conn.Write(packet.EncodeRequest(source, dest)); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	reply, err := io.ReadAll(io.LimitReader(conn, maxReplySize))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(reply), nil
}

// SmuxClient multiplexes queries over one TCP connection to a server using
// the smux transport. Every query opens its own stream.
type SmuxClient struct {
	mu      sync.Mutex
	session *smux.Session
}

func NewSmuxClient(ctx context.Context, addr string) (*SmuxClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connection.DefaultDialTimeout)
	defer cancel()
	conn, err := connection.Dial(dialCtx, addr)
	if err != nil {
		return nil, err
	}
	// the session outlives the dial context
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}
	session, err := connection.NewClientSession(conn)
	if err != nil {
		return nil, err
	}
	return &SmuxClient{session: session}, nil
}

func (c *SmuxClient) Query(ctx context.Context, source, dest graph.NodeID) (string, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil || session.IsClosed() {
		return "", fmt.Errorf("smux session closed")
	}

	stream, err := session.OpenStream()
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()
	if err := connection.ApplyDeadline(ctx, stream); err != nil {
		return "", err
	}
	return exchange(stream, source, dest)
}

func (c *SmuxClient) QueryPath(ctx context.Context, source, dest graph.NodeID) (routing.Path, error) {
	reply, err := c.Query(ctx, source, dest)
	if err != nil {
		return nil, err
	}
	return packet.ParseResponse([]byte(reply))
}

func (c *SmuxClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
