package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/normalize"
)

// Source provides the raw upstream snapshot.
type Source interface {
	Fetch(ctx context.Context) (model.RawSnapshot, error)
}

// ErrStopped is returned by Dispatch once Run has returned.
var ErrStopped = errors.New("dashboard controller stopped")

type request struct {
	action Action
	reply  chan View
}

// Controller serializes every state transition through one channel. Each
// transition, including the marker reconciliation it triggers, completes before
// the next one starts.
type Controller struct {
	source     Source
	normalizer *normalize.Normalizer
	reconciler marker.Reconciler
	filter     *filter.Engine
	logger     zerolog.Logger
	now        func() time.Time

	updates chan request
	done    chan struct{}
	seq     atomic.Uint64

	// Owned by the Run goroutine.
	state   State
	markers []*marker.RenderedMarker
}

// Config wires a Controller.
type Config struct {
	Source     Source
	Normalizer *normalize.Normalizer
	Reconciler marker.Reconciler
	Filter     *filter.Engine
	Display    marker.DisplayOptions
	Logger     zerolog.Logger
}

// NewController returns a controller. Run must be started before Dispatch.
func NewController(cfg Config) *Controller {
	return &Controller{
		source:     cfg.Source,
		normalizer: cfg.Normalizer,
		reconciler: cfg.Reconciler,
		filter:     cfg.Filter,
		logger:     cfg.Logger,
		now:        time.Now,
		updates:    make(chan request),
		done:       make(chan struct{}),
		state:      NewState(cfg.Display),
	}
}

// Run processes transitions until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.updates:
			if req.action != nil {
				c.apply(req.action)
			}
			req.reply <- c.view()
		}
	}
}

func (c *Controller) apply(a Action) {
	next, reconcile := Reduce(c.state, a)
	c.state = next
	if !reconcile {
		c.logger.Debug().Str("action", a.actionName()).Msg("transition without reconcile")
		return
	}
	c.markers = c.reconciler.Reconcile(c.markers, marker.Input{
		WorkOrders:  c.state.WorkOrders,
		Technicians: c.state.Technicians,
		Criteria:    c.state.Criteria,
		Display:     c.state.Display,
	})
	c.logger.Debug().Str("action", a.actionName()).Int("markers", len(c.markers)).Msg("reconciled")
}

// Dispatch applies a and returns the resulting view.
func (c *Controller) Dispatch(ctx context.Context, a Action) (View, error) {
	req := request{action: a, reply: make(chan View, 1)}
	select {
	case c.updates <- req:
	case <-c.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-req.reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// View returns the current view without changing anything.
func (c *Controller) View(ctx context.Context) (View, error) {
	return c.Dispatch(ctx, nil)
}

// Refresh fetches a new snapshot outside the update loop and feeds the result
// back as a sequenced action. A failed fetch clears the map.
func (c *Controller) Refresh(ctx context.Context) (View, error) {
	seq := c.seq.Add(1)
	if _, err := c.Dispatch(ctx, RefreshStarted{Seq: seq}); err != nil {
		return View{}, err
	}

	snap, err := c.source.Fetch(ctx)
	if err != nil {
		c.logger.Error().Err(err).Uint64("seq", seq).Msg("refresh failed")
		return c.Dispatch(ctx, RefreshFailed{Seq: seq, Err: fmt.Errorf("failed to fetch data: %w", err)})
	}

	wos, techs := c.normalizer.Normalize(snap.WorkOrders, snap.Technicians)
	return c.Dispatch(ctx, RefreshSucceeded{Seq: seq, WorkOrders: wos, Technicians: techs, At: c.now()})
}
