// Package poller refreshes the upstream snapshot on a timer and derives the
// persisted side effects: technician tracks, assignment notifications, poll
// run records and broker events.
package poller

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/dashboard"
	"fieldops-map-backend/internal/events"
	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/notification"
	"fieldops-map-backend/internal/snapshot"
	"fieldops-map-backend/internal/store"
)

// Service orchestrates one poll cycle and the loop around it.
type Service struct {
	cfg        config.PollerConfig
	store      store.Store
	live       dashboard.Source
	cache      *snapshot.Cache
	normalizer *normalize.Normalizer
	publisher  events.Publisher
	workerPool *notification.WorkerPool // nil when push is disabled
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService creates a poller writing into cache and st. A nil publisher
// disables events.
func NewService(cfg *config.Config, st store.Store, live dashboard.Source, cache *snapshot.Cache, normalizer *normalize.Normalizer, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, st.DB(), &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		})
	}

	return &Service{
		cfg:        cfg.Poller,
		store:      st,
		live:       live,
		cache:      cache,
		normalizer: normalizer,
		publisher:  publisher,
		workerPool: pool,
		now:        time.Now,
		logger:     logging.Component("poller"),
	}
}

// Run polls immediately and then every configured interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("poller is disabled; not starting")
		return
	}
	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("starting poller")

	if s.workerPool != nil {
		s.workerPool.Start(ctx)
	}

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("poller shutting down")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// PollOnce fetches a fresh snapshot, persists what changed and returns the
// recorded run. A failed fetch clears the cached snapshot so readers do not
// keep serving stale data as current.
func (s *Service) PollOnce(ctx context.Context) model.PollRun {
	run := model.PollRun{StartedAt: s.now().UTC()}
	s.logger.Debug().Msg("executing poll cycle")

	snap, err := s.live.Fetch(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch snapshot")
		s.cache.Clear()
		run.Error = truncate(err.Error(), 1024)
		s.finish(ctx, &run)
		return run
	}
	s.cache.Put(snap)

	workOrders, technicians := s.normalizer.Normalize(snap.WorkOrders, snap.Technicians)
	mappable, unmappable := geo.Partition(workOrders)
	valid := geo.ValidTechnicians(technicians)
	run.WorkOrders = len(workOrders)
	run.Mappable = len(mappable)
	run.Unmappable = len(unmappable)
	run.Technicians = len(valid)

	var msgs []events.Message

	moved, err := s.store.SyncTechnicians(ctx, run.StartedAt, valid)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sync technician positions")
	} else if len(moved) > 0 {
		msgs = appendMessage(msgs, s.logger)(events.MovedMessage(run.StartedAt, moved))
	}

	assignments, err := s.store.SyncAssignments(ctx, run.StartedAt, workOrders)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sync assignments")
	}
	if len(assignments) > 0 {
		s.logger.Info().Int("count", len(assignments)).Msg("dispatching new assignments")
	}
	for _, a := range assignments {
		if s.workerPool != nil {
			s.workerPool.Dispatch(ctx, a)
		}
		msgs = appendMessage(msgs, s.logger)(events.AssignmentMessage(run.StartedAt, a))
	}

	s.finish(ctx, &run, msgs...)
	s.logger.Info().
		Int("work_orders", run.WorkOrders).
		Int("mappable", run.Mappable).
		Int("technicians", run.Technicians).
		Int("assigned", len(assignments)).
		Msg("poll cycle finished")
	return run
}

func (s *Service) finish(ctx context.Context, run *model.PollRun, msgs ...events.Message) {
	run.FinishedAt = s.now().UTC()
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Error().Err(err).Msg("failed to record poll run")
	}

	msgs = appendMessage(msgs, s.logger)(events.PollMessage(*run))
	if err := events.Send(ctx, s.publisher, msgs...); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish events")
	}
}

func appendMessage(msgs []events.Message, logger zerolog.Logger) func(events.Message, error) []events.Message {
	return func(m events.Message, err error) []events.Message {
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode event")
			return msgs
		}
		return append(msgs, m)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
