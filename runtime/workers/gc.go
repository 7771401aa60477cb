package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGC reclaims value-log space periodically. Badger never garbage
// collects on its own; a long-running process has to drive it.
type BadgerGC struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGC(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGC {
	return &BadgerGC{db: db, log: log, interval: interval}
}

func (w *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping badger GC")
			return nil
		case <-ticker.C:
			// Rewrite one value-log file per pass at most; repeat until
			// badger reports nothing left to collect.
			for {
				if err := w.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}
