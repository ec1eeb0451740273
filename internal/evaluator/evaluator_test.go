package evaluator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeSessions struct {
	unlocked map[string]bool
	snoozed  map[string]bool
}

func (f *fakeSessions) IsUnlocked(_ context.Context, domain, profileID string) bool {
	return f.unlocked[domain+"|"+profileID]
}

func (f *fakeSessions) IsSnoozed(_ context.Context, domain, profileID string) bool {
	return f.snoozed[domain+"|"+profileID]
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		url     string
		pattern string
		want    bool
	}{
		{"https://mail.example.com/a", "*.example.com", true},
		{"https://example.com", "*.example.com", true},
		{"https://notexample.com", "*.example.com", false},
		{"https://example.com", "example.com", true},
		{"https://evil.com", "example.com", false},
		{"https://sub.mail.example.com", "*.example.com", true},
		{"https://EXAMPLE.com/path?q=1", "example.com", true},
		{"example.com", "example.com", true}, // scheme-less
		{"http://[::1]:8080/", "example.com", false},
		{"", "example.com", false},
		{"%%%not a url", "example.com", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MatchesPattern(tc.url, tc.pattern),
			"MatchesPattern(%q, %q)", tc.url, tc.pattern)
	}
}

func lockRule(pattern, profileID string) models.Rule {
	return models.Rule{
		ID:         "rule-" + pattern,
		URLPattern: pattern,
		Action:     models.ActionLock,
		Enabled:    true,
		ProfileIDs: []string{profileID},
		Lock:       &models.LockOptions{Mode: models.LockModeTimed, TimedDurationMinutes: 10},
	}
}

func TestFindMatchingRule_FirstMatchWins(t *testing.T) {
	r1 := lockRule("example.com", "p1")
	r2 := models.Rule{
		ID: "r2", URLPattern: "example.com", Action: models.ActionBlock,
		Enabled: true, ProfileIDs: []string{"p1"},
	}

	got := FindMatchingRule("https://example.com", []models.Rule{r1, r2})
	assert.Equal(t, r1.ID, got.ID)
}

func TestFindMatchingRule_SkipsDisabled(t *testing.T) {
	r := lockRule("example.com", "p1")
	r.Enabled = false

	assert.Nil(t, FindMatchingRule("https://example.com", []models.Rule{r}))
}

func TestFindMatchingRule_ApplyToAllSubdomains(t *testing.T) {
	r := lockRule("example.com", "p1")
	r.ApplyToAllSubdomains = true

	got := FindMatchingRule("https://mail.example.com", []models.Rule{r})
	assert.NotNil(t, got)
}

func TestEvaluate_NoMatchAllows(t *testing.T) {
	e := New(nil, testLogger())

	d := e.Evaluate(context.Background(), "https://other.com", []models.Rule{lockRule("example.com", "p1")}, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)
}

func TestEvaluate_IgnoresOtherProfilesRules(t *testing.T) {
	e := New(nil, testLogger())

	d := e.Evaluate(context.Background(), "https://example.com", []models.Rule{lockRule("example.com", "p2")}, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)
}

func TestEvaluate_Block(t *testing.T) {
	e := New(nil, testLogger())
	r := models.Rule{
		ID: "r1", URLPattern: "example.com", Action: models.ActionBlock,
		Enabled: true, ProfileIDs: []string{"p1"},
	}

	d := e.Evaluate(context.Background(), "https://example.com/x", []models.Rule{r}, "p1")
	assert.Equal(t, VerdictBlock, d.Verdict)
	assert.Equal(t, "example.com", d.Domain)
}

func TestEvaluate_Redirect(t *testing.T) {
	e := New(nil, testLogger())
	r := models.Rule{
		ID: "r1", URLPattern: "example.com", Action: models.ActionRedirect,
		Enabled: true, ProfileIDs: []string{"p1"},
		Redirect: &models.RedirectOptions{TargetURL: "https://safe.example.org"},
	}

	d := e.Evaluate(context.Background(), "https://example.com", []models.Rule{r}, "p1")
	assert.Equal(t, VerdictRedirect, d.Verdict)
	assert.Equal(t, "https://safe.example.org", d.RedirectTarget)
}

func TestEvaluate_RedirectWithoutTargetAllows(t *testing.T) {
	e := New(nil, testLogger())
	r := models.Rule{
		ID: "r1", URLPattern: "example.com", Action: models.ActionRedirect,
		Enabled: true, ProfileIDs: []string{"p1"},
	}

	d := e.Evaluate(context.Background(), "https://example.com", []models.Rule{r}, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)
}

func TestEvaluate_UnknownActionFailsOpen(t *testing.T) {
	e := New(nil, testLogger())
	r := models.Rule{
		ID: "r1", URLPattern: "example.com", Action: "mystery",
		Enabled: true, ProfileIDs: []string{"p1"},
	}

	d := e.Evaluate(context.Background(), "https://example.com", []models.Rule{r}, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)
}

func TestEvaluate_LockFailsClosed(t *testing.T) {
	// No session checker wired at all: lock still demands an unlock.
	e := New(nil, testLogger())

	d := e.Evaluate(context.Background(), "https://example.com", []models.Rule{lockRule("example.com", "p1")}, "p1")
	assert.Equal(t, VerdictRequireUnlock, d.Verdict)
	assert.Equal(t, "example.com", d.Domain)
	assert.NotNil(t, d.Rule)
}

func TestEvaluate_LockHonorsUnlockAndSnooze(t *testing.T) {
	sessions := &fakeSessions{
		unlocked: map[string]bool{"example.com|p1": true},
		snoozed:  map[string]bool{"news.com|p1": true},
	}
	e := New(sessions, testLogger())
	rules := []models.Rule{lockRule("example.com", "p1"), lockRule("news.com", "p1")}

	d := e.Evaluate(context.Background(), "https://example.com", rules, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)

	d = e.Evaluate(context.Background(), "https://news.com", rules, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)

	sessions.unlocked = map[string]bool{}
	d = e.Evaluate(context.Background(), "https://example.com", rules, "p1")
	assert.Equal(t, VerdictRequireUnlock, d.Verdict)
}

func TestEvaluate_MalformedURLAllows(t *testing.T) {
	e := New(nil, testLogger())

	d := e.Evaluate(context.Background(), "%%%not a url", []models.Rule{lockRule("example.com", "p1")}, "p1")
	assert.Equal(t, VerdictAllow, d.Verdict)
}
