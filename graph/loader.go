package graph

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// ErrGraphSource is returned when the edge-list resource cannot be read
var ErrGraphSource = errors.New("graph source unavailable")

// ParseEdgeList reads newline-delimited edge text. Every line holds zero or
// more whitespace-separated integer pairs "v1 v2". Parsing of a line stops
// where no integer can be read ("2x" still yields 2), and an unpaired trailing value is
// ignored, so malformed input yields a partially populated graph rather than
// an error. Only a failing reader produces an error.
func ParseEdgeList(r io.Reader) (*Graph, error) {
	var edges []Edge
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		lineEdges, complete := parseLine(scanner.Text())
		edges = append(edges, lineEdges...)
		if !complete {
			skipped++
			log.Debugf("edge list line %d truncated at first non-numeric token", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphSource, err)
	}

	if skipped > 0 {
		log.Warnf("edge list: %d line(s) contained non-numeric tokens and were truncated", skipped)
	}
	return Build(edges), nil
}

// ParseEdgeListBytes parses an in-memory edge list
func ParseEdgeListBytes(data []byte) *Graph {
	// a bytes.Reader never fails
	g, _ := ParseEdgeList(bytes.NewReader(data))
	return g
}

// LoadFile opens path and parses it as an edge list
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrGraphSource, path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	g, err := ParseEdgeList(f)
	if err != nil {
		return nil, err
	}
	log.Infof("graph loaded from %s, node num: %d, edge num: %d", path, g.NodeCount(), g.EdgeCount())
	return g, nil
}

func parseLine(line string) ([]Edge, bool) {
	values, complete := ScanInts(line, -1)
	edges := make([]Edge, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		edges = append(edges, Edge{U: NodeID(values[i]), V: NodeID(values[i+1])})
	}
	return edges, complete
}
