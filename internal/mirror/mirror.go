// Package mirror keeps the on-device store in sync with the hosted
// backend so the rest of the system has data to show while offline.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/store"
)

// ErrSyncInFlight is returned when Sync is called while a sync is
// already running. The caller gets the current best-known status and no
// second fetch cycle is started.
var ErrSyncInFlight = errors.New("sync already in progress")

// Fetcher is the subset of the backend client the syncer needs.
type Fetcher interface {
	VerifiedOrganizations(ctx context.Context) ([]model.Organization, error)
	RecentMessages(ctx context.Context, limit int) ([]model.VerifiedMessage, error)
}

// Status is a snapshot of the syncer state.
type Status struct {
	Syncing    bool
	LastSynced time.Time
	LastError  string
	OrgCount   int
	MsgCount   int
}

// Syncer pulls the verified-organizations set and recent verified
// messages into the local mirror. State machine: idle -> syncing -> idle,
// with a guard preventing overlapping runs.
type Syncer struct {
	fetcher     Fetcher
	store       *store.Store
	recentLimit int
	logger      *slog.Logger

	syncing   atomic.Bool
	mu        sync.Mutex // guards the status fields below
	lastError string
	orgCount  int
	msgCount  int

	scheduler *gocron.Scheduler
}

// NewSyncer creates a syncer. recentLimit caps the verified messages
// fetched per cycle (100 when zero).
func NewSyncer(fetcher Fetcher, st *store.Store, recentLimit int, logger *slog.Logger) *Syncer {
	if recentLimit <= 0 {
		recentLimit = 100
	}
	return &Syncer{
		fetcher:     fetcher,
		store:       st,
		recentLimit: recentLimit,
		logger:      logger,
	}
}

// Sync runs one fetch cycle. A call arriving while a sync is in flight
// returns ErrSyncInFlight without starting a second run. On any fetch
// failure the cycle aborts, previously cached data stays untouched, and
// the error is surfaced without retry.
func (s *Syncer) Sync(ctx context.Context) error {
	if !s.syncing.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	defer s.syncing.Store(false)

	err := s.run(ctx)

	s.mu.Lock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
	return err
}

func (s *Syncer) run(ctx context.Context) error {
	started := time.Now()

	orgs, err := s.fetcher.VerifiedOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("fetching organizations: %w", err)
	}
	msgs, err := s.fetcher.RecentMessages(ctx, s.recentLimit)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	// Full overwrite, not a delta merge
	if err := s.store.ReplaceOrganizations(orgs); err != nil {
		return err
	}
	if err := s.store.ReplaceMessages(msgs); err != nil {
		return err
	}
	if err := s.store.SetSyncedAt(time.Now()); err != nil {
		return err
	}

	s.mu.Lock()
	s.orgCount = len(orgs)
	s.msgCount = len(msgs)
	s.mu.Unlock()

	s.logger.Info("mirror synced",
		"organizations", len(orgs),
		"messages", len(msgs),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Status returns the current syncer status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Syncing:    s.syncing.Load(),
		LastSynced: s.store.SyncedAt(),
		LastError:  s.lastError,
		OrgCount:   s.orgCount,
		MsgCount:   s.msgCount,
	}
}

// Start schedules background syncs at the given interval. Calling Start
// on a running syncer is a no-op.
func (s *Syncer) Start(interval time.Duration) {
	if s.scheduler != nil {
		return
	}
	s.scheduler = gocron.NewScheduler(time.UTC)
	_, err := s.scheduler.Every(interval).Do(func() {
		if err := s.Sync(context.Background()); err != nil && !errors.Is(err, ErrSyncInFlight) {
			s.logger.Warn("background sync failed", "error", err)
		}
	})
	if err != nil {
		s.logger.Error("scheduling sync failed", "error", err)
		s.scheduler = nil
		return
	}
	s.scheduler.StartAsync()
	s.logger.Info("background sync started", "interval", interval)
}

// Stop halts the background schedule. In-flight syncs finish.
func (s *Syncer) Stop() {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Stop()
	s.scheduler = nil
	s.logger.Info("background sync stopped")
}
