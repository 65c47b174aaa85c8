package swp

import (
	"context"
	"errors"
	"testing"
)

func TestIdentityHasScope(t *testing.T) {
	t.Parallel()

	id := &Identity{Subject: "ops", Scopes: []string{ScopeSortWrite, ScopeReportRead}}

	if !id.HasScope(ScopeSortWrite) {
		t.Error("expected sort:write scope")
	}
	if !id.HasScope(ScopeReportRead) {
		t.Error("expected report:read scope")
	}
	if id.HasScope(ScopeScheduleWrite) {
		t.Error("should not have schedule:write scope")
	}

	wildcard := &Identity{Subject: "admin", Scopes: []string{"*"}}
	if !wildcard.HasScope(ScopeAdmin) {
		t.Error("wildcard should grant every scope")
	}
}

func TestAPIKeyAuthenticator(t *testing.T) {
	t.Parallel()

	auth := NewAPIKeyAuthenticator(
		APIKeyEntry{
			Token:    "sk_valid",
			Identity: Identity{Subject: "service-a", Scopes: []string{ScopeSortWrite}},
		},
	)

	id, err := auth.Authenticate(context.Background(), "sk_valid")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Subject != "service-a" {
		t.Errorf("Subject = %q, want %q", id.Subject, "service-a")
	}

	if _, err := auth.Authenticate(context.Background(), "sk_bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNoopAuthenticator(t *testing.T) {
	t.Parallel()

	auth := &NoopAuthenticator{}
	id, err := auth.Authenticate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !id.HasScope(ScopeAdmin) {
		t.Error("noop identity should have every scope")
	}
}

func TestCompositeAuthenticator(t *testing.T) {
	t.Parallel()

	keyed := NewAPIKeyAuthenticator(
		APIKeyEntry{Token: "sk_a", Identity: Identity{Subject: "a"}},
	)
	auth := NewCompositeAuthenticator(keyed, NewAPIKeyAuthenticator(
		APIKeyEntry{Token: "sk_b", Identity: Identity{Subject: "b"}},
	))

	// First authenticator wins.
	id, err := auth.Authenticate(context.Background(), "sk_a")
	if err != nil {
		t.Fatalf("Authenticate sk_a: %v", err)
	}
	if id.Subject != "a" {
		t.Errorf("Subject = %q, want %q", id.Subject, "a")
	}

	// Falls through to the second.
	id, err = auth.Authenticate(context.Background(), "sk_b")
	if err != nil {
		t.Fatalf("Authenticate sk_b: %v", err)
	}
	if id.Subject != "b" {
		t.Errorf("Subject = %q, want %q", id.Subject, "b")
	}

	// None match.
	if _, err := auth.Authenticate(context.Background(), "sk_c"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRequiredScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   string
	}{
		{MethodAuth, ""},
		{MethodSortTrigger, ScopeSortWrite},
		{MethodReportGet, ScopeReportRead},
		{MethodReportList, ScopeReportRead},
		{MethodReportTrim, ScopeAdmin},
		{MethodSchedulePut, ScopeScheduleWrite},
		{MethodScheduleDelete, ScopeScheduleWrite},
		{MethodScheduleList, ScopeScheduleRead},
		{MethodSubscribe, ScopeSubscribe},
		{MethodUnsubscribe, ScopeSubscribe},
		{MethodStats, ScopeStatsRead},
		{"unknown.method", ScopeAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := RequiredScope(tt.method); got != tt.want {
				t.Errorf("RequiredScope(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}
