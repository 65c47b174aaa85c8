package autosort

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Spiderbuttons/autosort/container"
	"github.com/Spiderbuttons/autosort/ext"
	"github.com/Spiderbuttons/autosort/gate"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/label"
	"github.com/Spiderbuttons/autosort/middleware"
	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/router"
	"github.com/Spiderbuttons/autosort/schedule"
	"github.com/Spiderbuttons/autosort/site"
	"github.com/Spiderbuttons/autosort/store"
)

// Option configures a Sorter.
type Option func(*Sorter) error

// registration binds a site to the input container its sorts drain.
type registration struct {
	site  site.Site
	input container.Input
}

// Sorter is the central coordinator. It owns the per-site gate, the
// middleware chain, the extension registry, and the router; Sort runs
// one full invocation through all of them.
//
// Create one with New() and functional options, register sites with
// RegisterSite, then call TriggerSort (or Sort for an unregistered
// one-off).
type Sorter struct {
	config     Config
	logger     *slog.Logger
	store      store.Store
	gates      *gate.Manager
	extensions *ext.Registry
	router     *router.Router
	chain      middleware.Middleware

	mu    sync.RWMutex
	sites map[string]registration

	// extra middleware appended inside the default chain.
	extraMW []middleware.Middleware
}

// New creates a new Sorter with the given options.
func New(opts ...Option) (*Sorter, error) {
	s := &Sorter{
		config: DefaultConfig(),
		logger: slog.Default(),
		sites:  make(map[string]registration),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.gates == nil {
		s.gates = gate.NewManager()
	}
	s.gates.Configure(gate.WithDefaultMaxConcurrent(s.config.DefaultMaxConcurrent))

	if s.extensions == nil {
		s.extensions = ext.NewRegistry(s.logger)
	}

	s.router = router.New(
		router.WithLogger(s.logger),
		router.WithEmitter(s.extensions),
	)

	// Logging outermost, then recovery, then any user middleware, with
	// the deadline applied innermost so it bounds only the routing pass.
	mws := []middleware.Middleware{
		middleware.Logging(s.logger),
		middleware.Recover(s.logger),
	}
	mws = append(mws, s.extraMW...)
	mws = append(mws, middleware.Timeout(s.logger))
	s.chain = middleware.Chain(mws...)

	return s, nil
}

// ── Options ─────────────────────────────────────────

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sorter) error {
		s.logger = l
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Sorter) error {
		s.config = cfg
		return nil
	}
}

// WithSortTimeout bounds each routing pass. Zero disables the deadline.
func WithSortTimeout(d time.Duration) Option {
	return func(s *Sorter) error {
		s.config.SortTimeout = d
		return nil
	}
}

// WithStore sets the persistence backend. Without a store, reports are
// returned to callers but not retained.
func WithStore(st store.Store) Option {
	return func(s *Sorter) error {
		s.store = st
		return nil
	}
}

// WithGates sets explicit per-site gate configurations (concurrency
// caps, rate limits). Unconfigured sites get the default cap.
func WithGates(configs ...gate.Config) Option {
	return func(s *Sorter) error {
		s.gates = gate.NewManager(configs...)
		return nil
	}
}

// WithExtensions registers lifecycle extensions.
func WithExtensions(exts ...ext.Extension) Option {
	return func(s *Sorter) error {
		if s.extensions == nil {
			s.extensions = ext.NewRegistry(s.logger)
		}
		for _, e := range exts {
			s.extensions.Register(e)
		}
		return nil
	}
}

// WithMiddleware inserts middleware between the built-in recovery and
// the routing deadline, in the given order.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Sorter) error {
		s.extraMW = append(s.extraMW, mws...)
		return nil
	}
}

// ── Accessors ───────────────────────────────────────

// Logger returns the sorter's logger.
func (s *Sorter) Logger() *slog.Logger { return s.logger }

// Store returns the sorter's store, or nil if none is configured.
func (s *Sorter) Store() store.Store { return s.store }

// Config returns a copy of the sorter's configuration.
func (s *Sorter) Config() Config { return s.config }

// Extensions returns the extension registry for late registration.
func (s *Sorter) Extensions() *ext.Registry { return s.extensions }

// Gates returns the per-site gate manager.
func (s *Sorter) Gates() *gate.Manager { return s.gates }

// ── Site registration ───────────────────────────────

// RegisterSite binds a site to the input container its sorts drain.
// Registering an existing site ID replaces the binding.
func (s *Sorter) RegisterSite(st site.Site, input container.Input) error {
	if st == nil {
		return ErrNilSite
	}
	if input == nil {
		return ErrNilInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[st.ID()] = registration{site: st, input: input}
	return nil
}

// UnregisterSite removes a site binding.
func (s *Sorter) UnregisterSite(siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sites, siteID)
}

// Sites returns the IDs of all registered sites.
func (s *Sorter) Sites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sites))
	for siteID := range s.sites {
		out = append(out, siteID)
	}
	return out
}

// ── Sorting ─────────────────────────────────────────

// TriggerSort runs a sort of a registered site. It satisfies the wire
// protocol's trigger contract.
func (s *Sorter) TriggerSort(ctx context.Context, siteID string) (*report.Report, error) {
	s.mu.RLock()
	reg, ok := s.sites[siteID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, siteID)
	}
	return s.Sort(ctx, reg.site, reg.input)
}

// Sort runs one full sort invocation: acquire the site gate, enumerate
// and index the site's containers, route the input container's contents
// through the middleware chain, and record the outcome.
//
// A site is sorted by at most one invocation at a time (unless its gate
// is configured looser); a denied gate returns ErrSortInProgress without
// blocking.
func (s *Sorter) Sort(ctx context.Context, st site.Site, input container.Input) (*report.Report, error) {
	if st == nil {
		return nil, ErrNilSite
	}
	if input == nil {
		return nil, ErrNilInput
	}

	siteID := st.ID()
	if !s.gates.Acquire(siteID) {
		return nil, fmt.Errorf("%w: %s", ErrSortInProgress, siteID)
	}
	defer s.gates.Release(siteID)

	sortID := id.NewSortID()
	ctx = WithSortID(ctx, sortID)
	startedAt := time.Now().UTC()

	s.extensions.EmitSortStarted(ctx, sortID, siteID)

	bindings, err := st.Enumerate(ctx)
	if err != nil {
		wrapped := fmt.Errorf("autosort: enumerate site %s: %w", siteID, err)
		s.extensions.EmitSortFailed(ctx, sortID, siteID, wrapped)
		return nil, wrapped
	}
	idx := label.BuildIndex(bindings)

	op := &middleware.Operation{
		SortID:     sortID,
		Site:       siteID,
		Containers: idx.Size(),
		Timeout:    s.config.SortTimeout,
	}

	var res *router.Result
	err = s.chain(ctx, op, func(ctx context.Context) error {
		res = s.router.Route(ctx, sortID, input, idx)
		return nil
	})
	if err != nil {
		s.extensions.EmitSortFailed(ctx, sortID, siteID, err)
		return nil, err
	}

	rep := report.New(sortID, siteID, res, startedAt, time.Now().UTC())

	if s.store != nil {
		if saveErr := s.store.SaveReport(ctx, rep); saveErr != nil {
			// The sort itself succeeded; a lost report is a persistence
			// problem, not a routing one.
			s.logger.Error("save report error",
				slog.String("report_id", rep.ID.String()),
				slog.String("error", saveErr.Error()),
			)
		}
	}

	s.extensions.EmitSortCompleted(ctx, rep, rep.Elapsed())
	return rep, nil
}

// SortAll sorts the named sites concurrently (all registered sites if
// none are named). Each site is still serialized by its own gate. The
// returned map holds the report of every sort that ran; the error is the
// first failure, if any.
func (s *Sorter) SortAll(ctx context.Context, siteIDs ...string) (map[string]*report.Report, error) {
	if len(siteIDs) == 0 {
		siteIDs = s.Sites()
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]*report.Report, len(siteIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, siteID := range siteIDs {
		g.Go(func() error {
			rep, err := s.TriggerSort(gctx, siteID)
			if err != nil {
				return err
			}
			mu.Lock()
			reports[siteID] = rep
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return reports, err
}

// ScheduleTrigger adapts the Sorter to the scheduler's trigger contract.
func (s *Sorter) ScheduleTrigger() schedule.TriggerFunc {
	return func(ctx context.Context, siteID string) (id.SortID, error) {
		rep, err := s.TriggerSort(ctx, siteID)
		if err != nil {
			return id.Nil, err
		}
		return rep.SortID, nil
	}
}

// Stop gracefully shuts down the sorter: extensions are notified, then
// the store is closed.
func (s *Sorter) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	s.extensions.EmitShutdown(ctx)

	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
