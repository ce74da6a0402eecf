package pages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/robfig/cron/v3"
)

// WatchingRegion is the region the live view shows its audience counter in.
const WatchingRegion = "live-watching"

// LiveModule is a feed module that reloads on a schedule and keeps a
// "N watching" counter over the live cards.
type LiveModule struct {
	*FeedModule
	interval time.Duration

	mu      sync.Mutex
	sched   *cron.Cron
	cancel  context.CancelFunc
	counter *dom.Region
}

// NewLiveModule creates the live module. An interval of zero disables the
// periodic refresh.
func NewLiveModule(name string, interval time.Duration, deps Deps) *LiveModule {
	return &LiveModule{FeedModule: NewFeedModule(name, deps), interval: interval}
}

// Setup runs the feed setup, renders the counter and starts the refresh
// schedule.
func (m *LiveModule) Setup(ctx context.Context, page Page) error {
	err := m.FeedModule.Setup(ctx, page)

	m.mu.Lock()
	m.counter = page.Doc.Region(WatchingRegion)
	m.mu.Unlock()
	m.updateCounter()

	if m.interval <= 0 {
		return err
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{m.log}
	sched := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, cronErr := sched.AddFunc(spec, func() { m.tick(refreshCtx) }); cronErr != nil {
		cancel()
		return cronErr
	}
	sched.Start()

	m.mu.Lock()
	m.sched = sched
	m.cancel = cancel
	m.mu.Unlock()

	m.log.Debug("live refresh scheduled", "interval", m.interval)
	return err
}

func (m *LiveModule) tick(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
		m.log.Warn("live refresh failed", "error", err)
	}
	m.updateCounter()
}

// Refresh reloads the feed and the counter.
func (m *LiveModule) Refresh(ctx context.Context) error {
	err := m.FeedModule.Refresh(ctx)
	m.updateCounter()
	return err
}

// Watching sums the audience of the loaded live cards.
func (m *LiveModule) Watching() int {
	total := 0
	for _, c := range m.deps.Store.Items(m.name) {
		if c.Kind == card.KindLive {
			total += c.Viewers
		}
	}
	return total
}

func (m *LiveModule) updateCounter() {
	m.mu.Lock()
	counter := m.counter
	m.mu.Unlock()
	if counter == nil {
		return
	}
	counter.Set(dom.Text(m.deps.Catalog.N(i18n.MsgWatching, m.Watching())))
}

// Teardown stops the schedule, waits for a running refresh, then tears
// down the feed.
func (m *LiveModule) Teardown() error {
	m.mu.Lock()
	sched, cancel := m.sched, m.cancel
	m.sched, m.cancel, m.counter = nil, nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sched != nil {
		<-sched.Stop().Done()
	}
	return m.FeedModule.Teardown()
}

// cronLogger routes scheduler output to the module logger.
type cronLogger struct {
	l *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
