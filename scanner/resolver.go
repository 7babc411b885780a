package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocationStatus is the terminal's activation state as last seen in the registry.
type LocationStatus int

const (
	StatusLoading LocationStatus = iota
	StatusReady
	StatusUnregistered
	StatusInactive
	StatusStoreError
)

func (s LocationStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusUnregistered:
		return "unregistered"
	case StatusInactive:
		return "inactive"
	case StatusStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

const LoadingLocation = "Loading..."

// Resolution is the outcome of one registry lookup.
type Resolution struct {
	Location string
	Status   LocationStatus
	// Err is set only for StatusStoreError.
	Err error
}

// Warning is the advisory text for statuses that need an administrator;
// empty when the terminal is ready.
func (r Resolution) Warning() string {
	switch r.Status {
	case StatusUnregistered:
		return "⚠️  This terminal is not registered. Admin must assign a location."
	case StatusInactive:
		return "⚠️  This terminal is marked as inactive."
	case StatusStoreError:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "database error"
	default:
		return ""
	}
}

// LocationResolver looks up, and on first contact registers, a terminal in
// the registry.
type LocationResolver struct {
	db      *gorm.DB
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewLocationResolver(store *Store, log zerolog.Logger, metrics *Metrics) *LocationResolver {
	return &LocationResolver{
		db:      store.DB(),
		log:     log.With().Str("component", "resolver").Logger(),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve runs the registration protocol in one transaction. It does not
// retry; the session calls it again on its refresh period.
func (r *LocationResolver) Resolve(ctx context.Context, hostname string) Resolution {
	var res Resolution
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec DeviceRecord
		err := tx.Where("hostname = ?", hostname).Take(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return r.register(tx, hostname, &res)
		case err != nil:
			return err
		}

		if !rec.IsActive {
			res = Resolution{Location: rec.Location, Status: StatusInactive}
			return nil
		}

		now := r.now()
		if err := tx.Model(&DeviceRecord{}).
			Where("hostname = ?", hostname).
			Update("last_seen", now).Error; err != nil {
			return err
		}
		res = Resolution{Location: rec.Location, Status: StatusReady}
		return nil
	})
	if err != nil {
		se := newStoreError("resolve location", err)
		res = Resolution{Location: ErrorLocation(hostname), Status: StatusStoreError, Err: se}
		r.log.Error().Err(err).Str("hostname", hostname).Str("kind", se.Kind).Msg("location lookup failed")
	} else {
		r.log.Debug().Str("hostname", hostname).Str("location", res.Location).Stringer("status", res.Status).Msg("location resolved")
	}
	r.metrics.ObserveResolution(res.Status)
	return res
}

// register inserts a placeholder row. A concurrent first contact that wins
// the race turns this into a no-op rather than an error.
func (r *LocationResolver) register(tx *gorm.DB, hostname string, res *Resolution) error {
	now := r.now()
	placeholder := PlaceholderLocation(hostname)
	rec := DeviceRecord{
		Hostname: hostname,
		Location: placeholder,
		IsActive: false,
		LastSeen: &now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hostname"}},
		DoNothing: true,
	}).Create(&rec).Error
	if err != nil {
		return err
	}
	r.log.Info().Str("hostname", hostname).Msg("auto-registered terminal with placeholder location")
	*res = Resolution{Location: placeholder, Status: StatusUnregistered}
	return nil
}
