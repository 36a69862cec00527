// Package lock serializes writers per key. Version lineage mutations of one
// agreement take the agreement's lock for the duration of their transaction.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straye-as/dossier-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotAcquired is returned when a lock could not be taken before the context ended
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive per-key locks
type Locker interface {
	// Acquire blocks until the key is held or ctx is done. The returned func releases it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NewLocker builds the locker selected by configuration
func NewLocker(cfg *config.LockingConfig, logger *zap.Logger) (Locker, error) {
	switch cfg.Mode {
	case "", "memory":
		logger.Info("Using in-process agreement locks")
		return NewMemoryLocker(), nil
	case "redis":
		locker, err := NewRedisLocker(cfg.RedisURL, cfg.TTLDuration(), logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis agreement locks")
		return locker, nil
	default:
		return nil, fmt.Errorf("unknown locking mode: %s", cfg.Mode)
	}
}

// AgreementKey is the lock key guarding an agreement's version lineage
func AgreementKey(agreementID fmt.Stringer) string {
	return "agreement:" + agreementID.String()
}

const retryInterval = 25 * time.Millisecond
