package gate

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-site behaviour such as rate limiting and concurrency.
type Config struct {
	// Site is the site identifier (must match site.Site.ID()).
	Site string

	// MaxConcurrent limits how many sorts may run on this site at once.
	// Zero means the manager default applies.
	MaxConcurrent int

	// RateLimit is the maximum sustained sorts per second that may start
	// on this site. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// siteState tracks runtime state for a single site.
type siteState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Manager serializes sort invocations per site. Two sorts racing over the
// same containers would see each other's partial state, so the default is
// one sort per site at a time; sites can be configured looser or with
// rate limits on top. Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	sites map[string]*siteState

	// defaultMax applies to sites without a Config. 1 keeps the
	// one-sort-per-site guarantee; 0 means unlimited.
	defaultMax int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDefaultMaxConcurrent sets the concurrency cap for unconfigured
// sites. Zero removes the cap.
func WithDefaultMaxConcurrent(n int) ManagerOption {
	return func(m *Manager) { m.defaultMax = n }
}

// NewManager creates a Manager with the given site configurations.
// Unconfigured sites get the default cap of one concurrent sort.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		sites:      make(map[string]*siteState, len(configs)),
		defaultMax: 1,
	}
	for _, cfg := range configs {
		m.sites[cfg.Site] = newSiteState(cfg)
	}
	return m
}

// Configure applies manager options after construction.
func (m *Manager) Configure(opts ...ManagerOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(m)
	}
}

func newSiteState(cfg Config) *siteState {
	ss := &siteState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ss.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ss
}

// Acquire checks rate limits and concurrency for the given site. If a
// sort is allowed to proceed it increments the active counter and returns
// true. The caller MUST call Release when the sort completes. Acquire
// never blocks: a denied sort is the caller's to retry or drop.
func (m *Manager) Acquire(site string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss := m.sites[site]
	if ss == nil {
		if m.defaultMax > 0 {
			ss = newSiteState(Config{Site: site, MaxConcurrent: m.defaultMax})
			m.sites[site] = ss
		} else {
			return true
		}
	}

	if ss.limiter != nil && !ss.limiter.Allow() {
		return false
	}

	maxActive := ss.config.MaxConcurrent
	if maxActive == 0 {
		maxActive = m.defaultMax
	}
	if maxActive > 0 && ss.active >= maxActive {
		return false
	}

	ss.active++
	return true
}

// Release decrements the active sort count for the site.
func (m *Manager) Release(site string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ss := m.sites[site]; ss != nil && ss.active > 0 {
		ss.active--
	}
}

// SetConfig dynamically updates (or creates) a site configuration.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.sites[cfg.Site]
	ss := newSiteState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		ss.active = existing.active
	}
	m.sites[cfg.Site] = ss
}

// ActiveCount returns the current number of active sorts for a site.
func (m *Manager) ActiveCount(site string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ss := m.sites[site]; ss != nil {
		return ss.active
	}
	return 0
}
