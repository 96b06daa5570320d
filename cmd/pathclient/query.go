package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"pathserver/client"
	"pathserver/graph"
)

const defaultTimeout = 10 * time.Second

type queryOptions struct {
	smux    bool
	timeout time.Duration
}

// runQuery sends one query built from "<server-ip> <port> <from> <to>" and
// returns the raw reply
func runQuery(ctx context.Context, args []string, opts queryOptions) (string, error) {
	ip := net.ParseIP(args[0])
	if ip == nil {
		return "", fmt.Errorf("address error: invalid server ip %q", args[0])
	}
	port, err := strconv.Atoi(args[1])
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("input error: invalid port %q", args[1])
	}
	from, err := strconv.Atoi(args[2])
	if err != nil {
		return "", fmt.Errorf("input error: invalid source node %q", args[2])
	}
	to, err := strconv.Atoi(args[3])
	if err != nil {
		return "", fmt.Errorf("input error: invalid destination node %q", args[3])
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(port))

	if !opts.smux {
		return client.Query(ctx, addr, graph.NodeID(from), graph.NodeID(to))
	}
	c, err := client.NewSmuxClient(ctx, addr)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.Query(ctx, graph.NodeID(from), graph.NodeID(to))
}
