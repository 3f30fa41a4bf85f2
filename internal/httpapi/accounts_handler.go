package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/gate"
	"github.com/ran-group/shiftdesk/internal/httpapi/respond"
)

// ProfileStore is what account management needs from persistence;
// *profiles.Repo satisfies it.
type ProfileStore interface {
	List(ctx context.Context) ([]profiles.Profile, error)
	ListByStatus(ctx context.Context, status profiles.Status) ([]profiles.Profile, error)
	Approve(ctx context.Context, userID uuid.UUID, approverName string, at time.Time) (*profiles.Profile, error)
	Reject(ctx context.Context, userID uuid.UUID, reason string) (*profiles.Profile, error)
}

// AccountsHandler exposes the review queue and the approve/reject actions.
// The routes sit behind a manager+ gate, and the actions re-check the
// caller's role themselves: a mutation must not rely on who rendered the
// button.
type AccountsHandler struct {
	profiles ProfileStore
}

func NewAccountsHandler(store ProfileStore) *AccountsHandler {
	return &AccountsHandler{profiles: store}
}

func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET only")
		return
	}
	var (
		list []profiles.Profile
		err  error
	)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		list, err = h.profiles.ListByStatus(r.Context(), profiles.Status(status))
	} else {
		list, err = h.profiles.List(r.Context())
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal_error", "failed to list accounts")
		return
	}
	views := make([]profileView, 0, len(list))
	for i := range list {
		views = append(views, viewOf(&list[i]))
	}
	respond.JSON(w, http.StatusOK, "", views)
}

type approveRequest struct {
	UserID string `json:"user_id"`
}

type rejectRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func (h *AccountsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireReviewer(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_request", "user_id must be a UUID")
		return
	}
	p, err := h.profiles.Approve(r.Context(), target, caller.Profile.FullName, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, profiles.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "not_found", "no such account")
		case errors.Is(err, profiles.ErrRejected):
			respond.Error(w, http.StatusConflict, "status_rejected", "rejected accounts are not reactivated; a fresh registration is required")
		default:
			respond.Error(w, http.StatusInternalServerError, "internal_error", "approve failed")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "account approved", viewOf(p))
}

func (h *AccountsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		respond.Error(w, http.StatusBadRequest, "reason_required", "a rejection reason is required")
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_request", "user_id must be a UUID")
		return
	}
	p, err := h.profiles.Reject(r.Context(), target, strings.TrimSpace(req.Reason))
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "not_found", "no such account")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "internal_error", "reject failed")
		return
	}
	respond.JSON(w, http.StatusOK, "account rejected", viewOf(p))
}

// requireReviewer re-validates at the mutation layer that the caller is an
// approved manager or higher.
func requireReviewer(w http.ResponseWriter, r *http.Request) (gate.Identity, bool) {
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
		return gate.Identity{}, false
	}
	id, ok := gate.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return gate.Identity{}, false
	}
	if id.Profile.Status != profiles.StatusApproved || !id.Profile.Role.AtLeast(profiles.RoleManager) {
		respond.Error(w, http.StatusForbidden, "role_insufficient", "manager role required")
		return gate.Identity{}, false
	}
	return id, true
}
