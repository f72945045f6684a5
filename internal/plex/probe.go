package plex

import (
	"context"
	"errors"
)

// ErrNoValidConnections is returned when no candidate endpoint answered.
var ErrNoValidConnections = errors.New("no valid connections")

// Prober checks whether an endpoint is reachable.
type Prober interface {
	Probe(ctx context.Context, uri string) bool
}

// FindConnection probes every candidate concurrently and returns the first
// one to answer. The winner is decided by completion order, not list order.
// Outstanding probes are cancelled once a winner is found.
func FindConnection(ctx context.Context, p Prober, conns []Connection) (Connection, error) {
	if len(conns) == 0 {
		return Connection{}, ErrNoValidConnections
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		conn Connection
		ok   bool
	}
	// Buffered so losing probes never block after we return.
	results := make(chan result, len(conns))
	for _, conn := range conns {
		go func(conn Connection) {
			results <- result{conn: conn, ok: p.Probe(ctx, conn.URI)}
		}(conn)
	}

	for range conns {
		r := <-results
		if r.ok {
			return r.conn, nil
		}
	}
	return Connection{}, ErrNoValidConnections
}
