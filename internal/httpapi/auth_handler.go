package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ran-group/shiftdesk/internal/auth"
	"github.com/ran-group/shiftdesk/internal/domain/identity"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/gate"
	"github.com/ran-group/shiftdesk/internal/httpapi/respond"
)

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Branch   string `json:"branch"`
	Role     string `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileView struct {
	UserID         string `json:"user_id"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone,omitempty"`
	Branch         string `json:"branch,omitempty"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	ApprovedBy     string `json:"approved_by,omitempty"`
	ApprovedAt     string `json:"approved_at,omitempty"`
	RejectedReason string `json:"rejected_reason,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func viewOf(p *profiles.Profile) profileView {
	v := profileView{
		UserID:         p.UserID.String(),
		FullName:       p.FullName,
		Phone:          p.Phone,
		Branch:         p.Branch,
		Role:           string(p.Role),
		Status:         string(p.Status),
		ApprovedBy:     p.ApprovedBy,
		RejectedReason: p.RejectedReason,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.ApprovedAt != nil {
		v.ApprovedAt = p.ApprovedAt.Format(time.RFC3339)
	}
	return v
}

func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
		return
	}
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	p, err := h.svc.SignUp(r.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Branch:   req.Branch,
		Role:     profiles.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "already_exists", "email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			respond.Error(w, http.StatusBadRequest, "weak_password", err.Error())
		default:
			respond.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		}
		return
	}
	respond.JSON(w, http.StatusCreated, "account created, pending review", viewOf(p))
}

func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
		return
	}
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	token, p, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "internal_error", "sign in failed")
		return
	}
	respond.JSON(w, http.StatusOK, "signed in", map[string]any{
		"token":   token,
		"profile": viewOf(p),
	})
}

// HandleMe returns the caller's own profile. It sits behind the gate with
// AllowPending: this endpoint is how pending and rejected users learn their
// status.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := gate.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}
	respond.JSON(w, http.StatusOK, "", viewOf(id.Profile))
}
