package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"minigameshub-edge/backend"
	"minigameshub-edge/catalog"
	"minigameshub-edge/config"
	"minigameshub-edge/db"
	"minigameshub-edge/queue"
	"minigameshub-edge/syncer"
)

const catalogSnapshotKey = "catalog"

// snapshotPayload is the serialized form of a fetched catalog, persisted so
// a later start with an unreachable remote still has data to serve.
type snapshotPayload struct {
	Games      []catalog.Game     `json:"games"`
	Categories []catalog.Category `json:"categories"`
}

// Service wires the backend client, the in-memory catalog, the persistent
// mutation queue and the reconciler into the single object the commands talk
// to.
type Service struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	gdb    *gorm.DB
	client *backend.Client
	cache  *catalog.Cache
	queue  *queue.Queue
	rec    *syncer.Reconciler
}

// New assembles a service from configuration. No network traffic happens
// here; Init performs the first catalog fetch.
func New(cfg config.Config, log *zap.SugaredLogger) (*Service, error) {
	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client, err := backend.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	q := queue.New(gdb, cfg.QueueCap)

	return &Service{
		cfg:    cfg,
		log:    log,
		gdb:    gdb,
		client: client,
		cache:  catalog.NewCache(),
		queue:  q,
		rec:    syncer.New(q, client, cfg.SyncInterval, log),
	}, nil
}

// Cache exposes the catalog read surface.
func (s *Service) Cache() *catalog.Cache {
	return s.cache
}

// Queue exposes the pending mutation queue.
func (s *Service) Queue() *queue.Queue {
	return s.queue
}

// Reconciler exposes the queue reconciler.
func (s *Service) Reconciler() *syncer.Reconciler {
	return s.rec
}

// Init populates the catalog cache: from the remote store when reachable,
// otherwise from the last persisted snapshot. A reachable remote also kicks
// the reconciler so any backlog from a previous offline run drains promptly.
func (s *Service) Init(ctx context.Context) error {
	games, categories, err := s.client.FetchCatalog(ctx)
	if err == nil {
		s.cache.Load(games, categories)
		s.persistSnapshot(games, categories)
		s.rec.Notify()
		s.log.Infow("Catalog loaded from remote store",
			zap.Int("games", len(games)),
			zap.Int("categories", len(categories)),
		)
		return nil
	}
	if !errors.Is(err, backend.ErrRemoteUnavailable) {
		return err
	}

	s.log.Warnw("Remote store unreachable, falling back to snapshot", zap.Error(err))
	return s.loadSnapshot()
}

func (s *Service) persistSnapshot(games []catalog.Game, categories []catalog.Category) {
	raw, err := json.Marshal(snapshotPayload{Games: games, Categories: categories})
	if err != nil {
		s.log.Errorw("Failed to serialize catalog snapshot", zap.Error(err))
		return
	}
	var snap db.Snapshot
	result := s.gdb.
		Where(db.Snapshot{Key: catalogSnapshotKey}).
		Assign(db.Snapshot{Data: raw, FetchedAt: time.Now()}).
		FirstOrCreate(&snap)
	if result.Error != nil {
		s.log.Errorw("Failed to persist catalog snapshot", zap.Error(result.Error))
	}
}

func (s *Service) loadSnapshot() error {
	var snap db.Snapshot
	if err := s.gdb.Where("key = ?", catalogSnapshotKey).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("No catalog snapshot available, starting with an empty catalog")
			return nil
		}
		return fmt.Errorf("reading catalog snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(snap.Data, &payload); err != nil {
		return fmt.Errorf("decoding catalog snapshot: %w", err)
	}
	s.cache.Load(payload.Games, payload.Categories)
	s.log.Infow("Catalog loaded from snapshot",
		zap.Int("games", len(payload.Games)),
		zap.Time("fetched_at", snap.FetchedAt),
	)
	return nil
}

// RecordPlay applies a play-count increment optimistically to the local
// catalog and forwards it to the remote store, queueing it when the store is
// unreachable. The caller never sees a failure; a permanently rejected
// mutation is logged and dropped.
func (s *Service) RecordPlay(ctx context.Context, gameID int) {
	s.cache.UpdateStats(gameID, 1, nil)
	s.apply(ctx, backend.Mutation{
		Kind:     backend.KindPlayIncrement,
		TargetID: gameID,
		Amount:   1,
	})
}

// RecordRating applies a rating update optimistically and forwards it like
// RecordPlay. The rating is clamped to the valid range before anything sees
// it.
func (s *Service) RecordRating(ctx context.Context, gameID int, rating float64) {
	rating = catalog.ClampRating(rating)
	s.cache.UpdateStats(gameID, 0, &rating)
	s.apply(ctx, backend.Mutation{
		Kind:     backend.KindRatingUpdate,
		TargetID: gameID,
		Value:    rating,
	})
}

func (s *Service) apply(ctx context.Context, m backend.Mutation) {
	err := s.client.ApplyMutation(ctx, m)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrRejected):
		s.log.Warnw("Mutation rejected by remote store, dropping",
			zap.String("kind", m.Kind),
			zap.Int("target", m.TargetID),
			zap.Error(err),
		)
	default:
		if qErr := s.queue.Enqueue(m); qErr != nil {
			s.log.Errorw("Failed to queue mutation", zap.String("kind", m.Kind), zap.Error(qErr))
			return
		}
		s.log.Infow("Remote store unavailable, mutation queued",
			zap.String("kind", m.Kind),
			zap.Int("target", m.TargetID),
		)
	}
}

// Run drives the reconciler until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.rec.Run(ctx)
}

// Close releases the underlying database handle.
func (s *Service) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
