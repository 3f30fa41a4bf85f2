package gate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ran-group/shiftdesk/internal/auth"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
)

type fakeSource struct {
	profile *profiles.Profile
	err     error
}

func (f fakeSource) GetByUserID(context.Context, uuid.UUID) (*profiles.Profile, error) {
	return f.profile, f.err
}

var testTokens = auth.NewTokenManager("test-secret", "shiftdesk-test", time.Hour)

func protectedRequest(t *testing.T, source ProfileSource, withToken bool, opts ...Option) *httptest.ResponseRecorder {
	t.Helper()
	g := New(testTokens, source, slog.New(slog.DiscardHandler))

	var reached bool
	h := g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), opts...)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if withToken {
		token, err := testTokens.Generate(uuid.New())
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && !reached {
		t.Fatal("200 without reaching the handler")
	}
	if rec.Code != http.StatusOK && reached {
		t.Fatal("handler reached despite denial")
	}
	return rec
}

func approved(role profiles.Role) *profiles.Profile {
	return &profiles.Profile{UserID: uuid.New(), FullName: "Test", Role: role, Status: profiles.StatusApproved}
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestGateNoSession(t *testing.T) {
	rec := protectedRequest(t, fakeSource{profile: approved(profiles.RoleStaff)}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestGateGarbageToken(t *testing.T) {
	g := New(testTokens, fakeSource{profile: approved(profiles.RoleStaff)}, slog.New(slog.DiscardHandler))
	h := g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestGateStaffCannotReachManagerView(t *testing.T) {
	rec := protectedRequest(t, fakeSource{profile: approved(profiles.RoleStaff)}, true,
		MinRole(profiles.RoleManager))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "role_insufficient" {
		t.Fatalf("want role_insufficient, got %q", code)
	}
}

func TestGateManagerAndAboveReachManagerView(t *testing.T) {
	for _, role := range []profiles.Role{profiles.RoleManager, profiles.RoleCentral, profiles.RoleAdmin} {
		rec := protectedRequest(t, fakeSource{profile: approved(role)}, true,
			MinRole(profiles.RoleManager))
		if rec.Code != http.StatusOK {
			t.Fatalf("role %s: want 200, got %d", role, rec.Code)
		}
	}
}

func TestGateRejectedAlwaysBlocked(t *testing.T) {
	p := approved(profiles.RoleManager)
	p.Status = profiles.StatusRejected
	p.RejectedReason = "duplicate registration"

	// even pending-allowed views explain the rejection instead of rendering
	for _, opts := range [][]Option{nil, {AllowPending()}} {
		rec := protectedRequest(t, fakeSource{profile: p}, true, opts...)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
		if code := errCode(t, rec); code != "status_rejected" {
			t.Fatalf("want status_rejected, got %q", code)
		}
	}
}

func TestGatePendingBlockedUnlessAllowed(t *testing.T) {
	p := approved(profiles.RoleStaff)
	p.Status = profiles.StatusPending

	rec := protectedRequest(t, fakeSource{profile: p}, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "status_pending" {
		t.Fatalf("want status_pending, got %q", code)
	}

	rec = protectedRequest(t, fakeSource{profile: p}, true, AllowPending())
	if rec.Code != http.StatusOK {
		t.Fatalf("pending-allowed view: want 200, got %d", rec.Code)
	}
}

func TestGateFailsClosedOnStoreError(t *testing.T) {
	rec := protectedRequest(t, fakeSource{err: errors.New("connection refused")}, true, AllowPending())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "status_pending" {
		t.Fatalf("want status_pending, got %q", code)
	}
}

func TestGatePutsIdentityInContext(t *testing.T) {
	p := approved(profiles.RoleManager)
	g := New(testTokens, fakeSource{profile: p}, slog.New(slog.DiscardHandler))

	h := g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.Profile.Role != profiles.RoleManager {
			t.Error("identity missing from context")
		}
	}))
	token, _ := testTokens.Generate(uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
}
