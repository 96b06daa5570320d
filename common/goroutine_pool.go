package common

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

type PoolConfig struct {
	// MaxWorkers bounds concurrently running tasks; <= 0 means unbounded
	MaxWorkers int
	// Nonblocking makes Submit fail with ants.ErrPoolOverload instead of
	// waiting for a free worker
	Nonblocking bool
}

// NewPool creates an ants goroutine pool. Panics in submitted tasks are
// logged and do not take the process down.
func NewPool(config PoolConfig) (*ants.Pool, error) {
	pool, err := ants.NewPool(config.MaxWorkers,
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(p interface{}) {
			log.Errorf("goroutine pool task panicked: %v", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants goroutine pool: %w", err)
	}
	return pool, nil
}
