package sqlite

import (
	"context"
	"log"
	"time"

	"campaign_feed/internal/domain"
)

const journalWriteTimeout = 2 * time.Second

// Journal adapts the store to the queue's per-job record hook. Write
// failures are logged and otherwise ignored.
type Journal struct {
	store  *Store
	logger *log.Logger
}

func NewJournal(store *Store, logger *log.Logger) *Journal {
	if logger == nil {
		logger = log.Default()
	}
	return &Journal{store: store, logger: logger}
}

func (j *Journal) RecordGeneration(rec domain.GenerationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if err := j.store.LogGeneration(ctx, rec); err != nil {
		j.logger.Printf("generation log write failed job=%s kind=%s: %v", rec.JobID, rec.Kind, err)
	}
}
