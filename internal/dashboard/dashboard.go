// Package dashboard holds the server-side view of both site lists and pushes
// row transitions to connected browsers.
package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/reconcile"
)

// Source provides the authoritative lists.
type Source interface {
	Lists(ctx context.Context) (*entity.Lists, error)
}

// Options configures a Dashboard. Zero values pick the defaults.
type Options struct {
	RefreshInterval time.Duration
	RemoveDelay     time.Duration
	SettleDelay     time.Duration
	Clock           reconcile.Clock
	Buffer          int
}

// Snapshot is the displayed state of both lists.
type Snapshot struct {
	Detected []reconcile.Row `json:"detected"`
	Blocked  []reconcile.Row `json:"blocked"`
}

const (
	defaultRefreshInterval = 2 * time.Second
	defaultBuffer          = 64
)

// Dashboard refreshes the reconciled lists after every workflow notice and on
// a polling interval, so changes made by an external detector show up too.
type Dashboard struct {
	source   Source
	logger   *zap.Logger
	interval time.Duration

	detected *reconcile.List
	blocked  *reconcile.List
	hub      *Hub

	refresh chan struct{}

	mu      sync.Mutex
	lastErr string
}

// New creates a dashboard. Call Run to start polling.
func New(source Source, logger *zap.Logger, opts Options) *Dashboard {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	d := &Dashboard{
		source:   source,
		logger:   logger,
		interval: opts.RefreshInterval,
		hub:      NewHub(opts.Buffer),
		refresh:  make(chan struct{}, 1),
	}
	d.detected = reconcile.NewList(reconcile.Options{
		Name:        string(entity.DocumentDetected),
		Placeholder: reconcile.DetectedPlaceholder,
		RemoveDelay: opts.RemoveDelay,
		SettleDelay: opts.SettleDelay,
		Clock:       opts.Clock,
		OnEvent:     d.publishEvent,
	})
	d.blocked = reconcile.NewList(reconcile.Options{
		Name:        string(entity.DocumentBlocked),
		RemoveDelay: opts.RemoveDelay,
		SettleDelay: opts.SettleDelay,
		Clock:       opts.Clock,
		OnEvent:     d.publishEvent,
	})
	return d
}

// Notify implements usecase.Notifier: the notice is forwarded to clients and
// a refresh is requested.
func (d *Dashboard) Notify(n entity.Notice) {
	d.hub.Publish(Message{Type: MessageNotice, Notice: &n})
	select {
	case d.refresh <- struct{}{}:
	default:
	}
}

// Refresh reads both lists and reconciles the displayed rows against them.
func (d *Dashboard) Refresh(ctx context.Context) error {
	lists, err := d.source.Lists(ctx)
	if err != nil {
		d.reportRefreshError(err)
		return err
	}
	d.reportRefreshError(nil)

	dp := d.detected.Apply(lists.Detected)
	bp := d.blocked.Apply(lists.Blocked)
	if !dp.Empty() || !bp.Empty() {
		d.logger.Debug("Dashboard reconciled",
			zap.Int("detected_added", len(dp.Added)), zap.Int("detected_removed", len(dp.Removed)),
			zap.Int("blocked_added", len(bp.Added)), zap.Int("blocked_removed", len(bp.Removed)))
	}
	return nil
}

// reportRefreshError logs and publishes a failing refresh once, not on every poll.
func (d *Dashboard) reportRefreshError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	d.mu.Lock()
	changed := msg != d.lastErr
	d.lastErr = msg
	d.mu.Unlock()
	if !changed {
		return
	}

	if err == nil {
		d.logger.Info("Dashboard refresh recovered")
		return
	}
	d.logger.Error("Dashboard refresh failed", zap.Error(err))
	d.hub.Publish(Message{Type: MessageNotice, Notice: &entity.Notice{
		Op:      "refresh",
		Message: "Failed to load site lists",
		Err:     msg,
	}})
}

// Run refreshes immediately, then on every tick and notice until ctx is done.
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer d.detected.Stop()
	defer d.blocked.Stop()

	_ = d.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.refresh:
		}
		_ = d.Refresh(ctx)
	}
}

// Snapshot returns the rows of both lists as currently displayed.
func (d *Dashboard) Snapshot() Snapshot {
	return Snapshot{Detected: d.detected.Rows(), Blocked: d.blocked.Rows()}
}

// Subscribe registers a client. The first message is always the current snapshot.
func (d *Dashboard) Subscribe() (<-chan Message, func()) {
	return d.hub.Subscribe(func() Message {
		snap := d.Snapshot()
		return Message{Type: MessageSnapshot, Snapshot: &snap}
	})
}

func (d *Dashboard) publishEvent(ev reconcile.Event) {
	d.hub.Publish(Message{Type: MessageRow, Event: &ev})
}
