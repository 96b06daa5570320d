package packet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pathserver/graph"
	"pathserver/routing"
)

const (
	// MaxRequestSize is the largest request read from a connection
	MaxRequestSize = 1024

	NotFoundResponse       = "path not found"
	InvalidRequestResponse = "invalid request"
)

var ErrMalformedResponse = errors.New("malformed response")

// Request is a decoded "<source> <dest>" query. Values that could not be
// parsed stay 0; Parsed counts how many were read.
type Request struct {
	Source graph.NodeID
	Dest   graph.NodeID
	Parsed int
}

func (r Request) Complete() bool {
	return r.Parsed == 2
}

// ParseRequest reads up to two whitespace-separated integers from data.
// Each value is its leading sign and digits, and parsing stops where no
// integer can be read, so "1 4abc" is the query 1 -> 4.
func ParseRequest(data []byte) Request {
	var req Request
	values, _ := graph.ScanInts(string(data), 2)
	if len(values) > 0 {
		req.Source = graph.NodeID(values[0])
	}
	if len(values) > 1 {
		req.Dest = graph.NodeID(values[1])
	}
	req.Parsed = len(values)
	return req
}

func EncodeRequest(source, dest graph.NodeID) []byte {
	return []byte(fmt.Sprintf("%d %d", source, dest))
}

// FormatResponse renders a path as space-separated node ids with one
// trailing space and no newline, or NotFoundResponse for an empty path.
func FormatResponse(path routing.Path) []byte {
	if path.Empty() {
		return []byte(NotFoundResponse)
	}
	var sb strings.Builder
	for _, node := range path {
		sb.WriteString(strconv.Itoa(int(node)))
		sb.WriteByte(' ')
	}
	return []byte(sb.String())
}

// ParseResponse decodes a server reply. A not-found reply yields an empty path.
func ParseResponse(data []byte) (routing.Path, error) {
	text := string(data)
	switch strings.TrimSpace(text) {
	case NotFoundResponse:
		return nil, nil
	case InvalidRequestResponse:
		return nil, fmt.Errorf("%w: server rejected request", ErrMalformedResponse)
	case "":
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	fields := strings.Fields(text)
	path := make(routing.Path, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedResponse, field)
		}
		path = append(path, graph.NodeID(v))
	}
	return path, nil
}
