package service

import (
	"strings"
	"sync"
	"time"

	pkgerrors "algojudge/pkg/errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMaxRunTestCases = 10
	defaultMaxInputBytes   = 10000
	defaultMaxTotalBytes   = 100000
	defaultRunRateLimit    = 30
	defaultRunRateWindow   = 60 * time.Second
	defaultMaxTrackedIPs   = 10000
)

// RunGuardConfig bounds RUN requests.
type RunGuardConfig struct {
	MaxTestCases  int           `yaml:"maxTestCases"`
	MaxInputBytes int           `yaml:"maxInputBytes"`
	MaxTotalBytes int           `yaml:"maxTotalBytes"`
	RateLimit     int           `yaml:"rateLimit"`
	RateWindow    time.Duration `yaml:"rateWindow"`
	// MaxTrackedIPs caps the limiter state; the least recently seen client
	// is forgotten first.
	MaxTrackedIPs int `yaml:"maxTrackedIps"`
}

func (c *RunGuardConfig) ApplyDefaults() {
	if c.MaxTestCases <= 0 {
		c.MaxTestCases = defaultMaxRunTestCases
	}
	if c.MaxInputBytes <= 0 {
		c.MaxInputBytes = defaultMaxInputBytes
	}
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = defaultMaxTotalBytes
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRunRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = defaultRunRateWindow
	}
	if c.MaxTrackedIPs <= 0 {
		c.MaxTrackedIPs = defaultMaxTrackedIPs
	}
}

type rateWindow struct {
	start time.Time
	count int
}

// RunGuard rate limits RUN requests per client IP and bounds their payload.
type RunGuard struct {
	cfg RunGuardConfig
	now func() time.Time

	mu      sync.Mutex
	windows *lru.Cache[string, *rateWindow]
}

func NewRunGuard(cfg RunGuardConfig) (*RunGuard, error) {
	cfg.ApplyDefaults()
	windows, err := lru.New[string, *rateWindow](cfg.MaxTrackedIPs)
	if err != nil {
		return nil, err
	}
	return &RunGuard{cfg: cfg, now: time.Now, windows: windows}, nil
}

// Check validates a RUN request from clientIP. The request counts against
// the client's window only when it is accepted.
func (g *RunGuard) Check(clientIP string, inputs []*string) error {
	ip := normalizeIP(clientIP)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if ip != "" && g.limited(ip, now) {
		return pkgerrors.New(pkgerrors.RunLimitExceeded).WithDetail("limit", g.cfg.RateLimit)
	}
	if err := g.validate(inputs); err != nil {
		return err
	}
	if ip != "" {
		g.record(ip, now)
	}
	return nil
}

func (g *RunGuard) validate(inputs []*string) error {
	if len(inputs) == 0 {
		return pkgerrors.New(pkgerrors.ValidationFailed).WithMessage("At least one testcase is required")
	}
	if len(inputs) > g.cfg.MaxTestCases {
		return pkgerrors.Newf(pkgerrors.ValidationFailed, "Maximum %d testcases per RUN. Got: %d", g.cfg.MaxTestCases, len(inputs))
	}
	total := 0
	for i, in := range inputs {
		if in == nil {
			return pkgerrors.Newf(pkgerrors.ValidationFailed, "Testcase %d has null input", i)
		}
		size := len(*in)
		if size > g.cfg.MaxInputBytes {
			return pkgerrors.Newf(pkgerrors.RunInputTooLarge, "Testcase %d input too large. Max: %d bytes, got: %d", i, g.cfg.MaxInputBytes, size)
		}
		total += size
	}
	if total > g.cfg.MaxTotalBytes {
		return pkgerrors.Newf(pkgerrors.RunInputTooLarge, "Total payload too large. Max: %d bytes, got: %d", g.cfg.MaxTotalBytes, total)
	}
	return nil
}

func (g *RunGuard) limited(ip string, now time.Time) bool {
	w, ok := g.windows.Peek(ip)
	if !ok || g.expired(w, now) {
		return false
	}
	return w.count >= g.cfg.RateLimit
}

func (g *RunGuard) record(ip string, now time.Time) {
	w, ok := g.windows.Get(ip)
	if !ok || g.expired(w, now) {
		g.windows.Add(ip, &rateWindow{start: now, count: 1})
		return
	}
	w.count++
}

func (g *RunGuard) expired(w *rateWindow, now time.Time) bool {
	return now.Sub(w.start) >= g.cfg.RateWindow
}

// CleanupExpired forgets clients whose window has ended and returns how many
// were removed.
func (g *RunGuard) CleanupExpired() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	removed := 0
	for _, ip := range g.windows.Keys() {
		if w, ok := g.windows.Peek(ip); ok && g.expired(w, now) {
			g.windows.Remove(ip)
			removed++
		}
	}
	return removed
}

// Tracked returns the number of clients with live limiter state.
func (g *RunGuard) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windows.Len()
}

func normalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if strings.EqualFold(ip, "unknown") {
		return ""
	}
	return ip
}
