package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Ack confirms a persisted scan event.
type Ack struct {
	// ID correlates log lines for one submission; it is not stored.
	ID        string
	JobNumber string
	ScannedAt time.Time
}

// EventSubmitter appends accepted scans to the event log. It holds no
// per-call state and is safe for concurrent use.
type EventSubmitter struct {
	db       *gorm.DB
	identity *Identity
	log      zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewEventSubmitter(store *Store, identity *Identity, log zerolog.Logger, metrics *Metrics) *EventSubmitter {
	return &EventSubmitter{
		db:       store.DB(),
		identity: identity,
		log:      log.With().Str("component", "submitter").Logger(),
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit inserts one scan event. There is no retry or buffering: on error
// the event is dropped and the error returned for display.
func (s *EventSubmitter) Submit(ctx context.Context, jobNumber, hostname, location string) (Ack, error) {
	start := time.Now()
	ack := Ack{ID: uuid.NewString(), JobNumber: jobNumber, ScannedAt: s.now()}
	ev := ScanEvent{
		JobNumber:  jobNumber,
		Barcode:    jobNumber,
		PiIP:       s.identity.IP(),
		PiHostname: hostname,
		Location:   location,
		ScannedAt:  ack.ScannedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ev).Error
	})
	s.metrics.ObserveSubmission(time.Since(start), err)
	if err != nil {
		se := newStoreError("insert scan", err)
		s.log.Error().Err(err).
			Str("submission_id", ack.ID).
			Str("job_number", jobNumber).
			Str("kind", se.Kind).
			Msg("scan event dropped")
		return Ack{}, se
	}

	s.log.Info().
		Str("submission_id", ack.ID).
		Str("job_number", jobNumber).
		Str("location", location).
		Str("pi_ip", ev.PiIP).
		Msg("scan event stored")
	return ack, nil
}
