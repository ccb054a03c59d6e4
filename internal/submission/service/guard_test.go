package service

import (
	"strings"
	"testing"
	"time"

	pkgerrors "algojudge/pkg/errors"
)

func strs(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

func newTestGuard(t *testing.T, cfg RunGuardConfig) (*RunGuard, *time.Time) {
	t.Helper()
	g, err := NewRunGuard(cfg)
	if err != nil {
		t.Fatalf("NewRunGuard failed: %v", err)
	}
	now := fixedNow
	g.now = func() time.Time { return now }
	return g, &now
}

func TestRunGuardValidation(t *testing.T) {
	g, _ := newTestGuard(t, RunGuardConfig{MaxTestCases: 2, MaxInputBytes: 5, MaxTotalBytes: 8})
	tests := []struct {
		name   string
		inputs []*string
		code   pkgerrors.ErrorCode
		msg    string
	}{
		{"ok", strs("1", "2"), pkgerrors.Success, ""},
		{"empty", nil, pkgerrors.ValidationFailed, "At least one testcase is required"},
		{"too many", strs("1", "2", "3"), pkgerrors.ValidationFailed, "Maximum 2 testcases per RUN. Got: 3"},
		{"null input", []*string{nil}, pkgerrors.ValidationFailed, "Testcase 0 has null input"},
		{"input too large", strs("1", "123456"), pkgerrors.RunInputTooLarge, "Testcase 1 input too large. Max: 5 bytes, got: 6"},
		{"total too large", strs("12345", "12345"), pkgerrors.RunInputTooLarge, "Total payload too large. Max: 8 bytes, got: 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check("", tt.inputs)
			if tt.code == pkgerrors.Success {
				if err != nil {
					t.Fatalf("Check failed: %v", err)
				}
				return
			}
			if !pkgerrors.Is(err, tt.code) {
				t.Fatalf("Check error = %v, want code %d", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("Check error = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestRunGuardRateLimit(t *testing.T) {
	g, now := newTestGuard(t, RunGuardConfig{RateLimit: 2, RateWindow: time.Minute})
	in := strs("1")

	for i := 0; i < 2; i++ {
		if err := g.Check("10.0.0.1", in); err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
	}
	if err := g.Check("10.0.0.1", in); !pkgerrors.Is(err, pkgerrors.RunLimitExceeded) {
		t.Fatalf("third request = %v, want RunLimitExceeded", err)
	}
	if err := g.Check("10.0.0.2", in); err != nil {
		t.Fatalf("other client limited: %v", err)
	}

	*now = now.Add(time.Minute)
	if err := g.Check("10.0.0.1", in); err != nil {
		t.Fatalf("request after window rejected: %v", err)
	}
}

func TestRunGuardRejectedRequestsDoNotCount(t *testing.T) {
	g, _ := newTestGuard(t, RunGuardConfig{RateLimit: 1})
	if err := g.Check("10.0.0.1", nil); err == nil {
		t.Fatalf("expected validation failure")
	}
	if err := g.Check("10.0.0.1", strs("1")); err != nil {
		t.Fatalf("rejected request was counted: %v", err)
	}
}

func TestRunGuardUnknownClientNotLimited(t *testing.T) {
	g, _ := newTestGuard(t, RunGuardConfig{RateLimit: 1})
	for _, ip := range []string{"", "unknown", "UNKNOWN", "unknown"} {
		if err := g.Check(ip, strs("1")); err != nil {
			t.Fatalf("Check(%q) = %v", ip, err)
		}
	}
	if g.Tracked() != 0 {
		t.Fatalf("Tracked() = %d, want 0", g.Tracked())
	}
}

func TestRunGuardCleanupExpired(t *testing.T) {
	g, now := newTestGuard(t, RunGuardConfig{RateWindow: time.Minute})
	_ = g.Check("10.0.0.1", strs("1"))
	*now = now.Add(30 * time.Second)
	_ = g.Check("10.0.0.2", strs("1"))

	*now = now.Add(45 * time.Second)
	if removed := g.CleanupExpired(); removed != 1 {
		t.Fatalf("CleanupExpired() = %d, want 1", removed)
	}
	if g.Tracked() != 1 {
		t.Fatalf("Tracked() = %d, want 1", g.Tracked())
	}
}

func TestRunGuardBoundsTrackedClients(t *testing.T) {
	g, _ := newTestGuard(t, RunGuardConfig{MaxTrackedIPs: 2})
	for _, ip := range []string{"a", "b", "c"} {
		if err := g.Check(ip, strs("1")); err != nil {
			t.Fatalf("Check(%q) = %v", ip, err)
		}
	}
	if g.Tracked() != 2 {
		t.Fatalf("Tracked() = %d, want 2", g.Tracked())
	}
}
