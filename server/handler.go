package server

import (
	"errors"
	"io"
	"net"
	"time"

	"pathserver/graph"
	"pathserver/metrics"
	packet "pathserver/packet_handler"
	"pathserver/routing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type HandlerConfig struct {
	// IOTimeout bounds the whole exchange; zero waits indefinitely
	IOTimeout time.Duration
	// StrictRequests answers packet.InvalidRequestResponse when fewer than
	// two node ids parse, instead of substituting 0 for the missing ones
	StrictRequests bool
}

// Handler runs one request/response exchange per connection against a
// shared graph and path cache.
type Handler struct {
	graph   *graph.Graph
	cache   *routing.PathCache
	metrics *metrics.Metrics
	config  HandlerConfig
}

func NewHandler(g *graph.Graph, cache *routing.PathCache, m *metrics.Metrics, config HandlerConfig) *Handler {
	return &Handler{
		graph:   g,
		cache:   cache,
		metrics: m,
		config:  config,
	}
}

// Serve reads a single request of at most packet.MaxRequestSize bytes,
// writes the reply and closes conn. I/O failures are logged and never
// returned; a failed read proceeds with whatever bytes arrived.
func (h *Handler) Serve(conn net.Conn) {
	done := h.metrics.HandlerStarted()
	defer done()

	entry := log.WithFields(log.Fields{
		"conn":   uuid.NewString(),
		"remote": remoteAddr(conn),
	})
	defer func() {
		if err := conn.Close(); err != nil {
			entry.Debugf("close connection failed, err: %v", err)
		}
	}()

	if h.config.IOTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(h.config.IOTimeout)); err != nil {
			entry.Warnf("set deadline failed, err: %v", err)
		}
	}

	buf := make([]byte, packet.MaxRequestSize)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		entry.Warnf("failed to read the request, err: %v", err)
		h.metrics.IOError("read")
	}

	response := h.respond(entry, packet.ParseRequest(buf[:n]))
	if _, err := conn.Write(response); err != nil {
		entry.Warnf("failed to write the response, err: %v", err)
		h.metrics.IOError("write")
	}
}

func (h *Handler) respond(entry *log.Entry, req packet.Request) []byte {
	if !req.Complete() {
		h.metrics.MalformedRequest()
		if h.config.StrictRequests {
			entry.Warnf("rejecting request with %d of 2 node ids", req.Parsed)
			return []byte(packet.InvalidRequestResponse)
		}
		entry.Warnf("request has %d of 2 node ids, missing values default to 0", req.Parsed)
	}

	start := time.Now()
	path, hit := h.cache.Resolve(h.graph, req.Source, req.Dest)
	h.metrics.ObserveQuery(hit, !path.Empty(), time.Since(start))

	entry.Debugf("query %d -> %d, cache hit: %v, hops: %d", req.Source, req.Dest, hit, path.Hops())
	return packet.FormatResponse(path)
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
