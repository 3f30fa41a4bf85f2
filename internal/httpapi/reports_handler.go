package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ran-group/shiftdesk/internal/delivery"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/domain/reports"
	"github.com/ran-group/shiftdesk/internal/gate"
	"github.com/ran-group/shiftdesk/internal/httpapi/respond"
	"github.com/ran-group/shiftdesk/internal/infra/metrics"
)

const maxUploadBytes = 20 << 20

// ReportQueue is the outbox surface submission needs; *delivery.Outbox
// satisfies it.
type ReportQueue interface {
	Enqueue(ctx context.Context, key uuid.UUID, branch string, chatID int64, body string, photos []delivery.Photo) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*delivery.Message, error)
}

// ReportsHandler assembles submitted shift forms and enqueues them for chat
// delivery. Submission is accept-then-deliver: the handler never talks to
// Telegram directly.
type ReportsHandler struct {
	outbox      ReportQueue
	branchChats map[string]int64
}

func NewReportsHandler(outbox ReportQueue, branchChats map[string]int64) *ReportsHandler {
	return &ReportsHandler{outbox: outbox, branchChats: branchChats}
}

type staffRowDTO struct {
	Name string `json:"name"`
	Role string `json:"role"`
	In   string `json:"in"`
	Out  string `json:"out"`
	Note string `json:"note"`
}

type inventoryRowDTO struct {
	Item    string  `json:"item"`
	Unit    string  `json:"unit"`
	Opening float64 `json:"opening"`
	Closing float64 `json:"closing"`
	Note    string  `json:"note"`
}

type incidentRowDTO struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail"`
	At      string `json:"at"`
}

type reportRequest struct {
	Branch      string `json:"branch"`
	ShiftPeriod string `json:"shift_period"`
	Responsible string `json:"responsible"`

	PosCash    int64  `json:"pos_cash"`
	PosCard    int64  `json:"pos_card"`
	PosEwallet int64  `json:"pos_ewallet"`
	PosTotal   *int64 `json:"pos_total"`
	PosGuests  int64  `json:"pos_guests"`
	PosAOV     *int64 `json:"pos_aov"`

	CashCounted     int64 `json:"cash_counted"`
	CashTheoretical int64 `json:"cash_theoretical"`

	Inventory []inventoryRowDTO `json:"inventory"`
	Staff     []staffRowDTO     `json:"staff"`
	Incidents []incidentRowDTO  `json:"incidents"`

	MarketingFollowers int64  `json:"marketing_followers"`
	MarketingReviews   int64  `json:"marketing_reviews"`
	MarketingPromos    string `json:"marketing_promos"`

	Notes string `json:"notes"`
}

func (req reportRequest) toReport(kind reports.Kind, submittedAt time.Time) reports.Report {
	r := reports.Report{
		Kind:        kind,
		Branch:      strings.TrimSpace(req.Branch),
		ShiftPeriod: req.ShiftPeriod,
		Responsible: strings.TrimSpace(req.Responsible),
		SubmittedAt: submittedAt,
		Revenue: reports.Revenue{
			Cash:          req.PosCash,
			Card:          req.PosCard,
			EWallet:       req.PosEwallet,
			Total:         req.PosTotal,
			Guests:        req.PosGuests,
			AvgOrderValue: req.PosAOV,
		},
		Cash: reports.CashCount{
			Counted:     req.CashCounted,
			Theoretical: req.CashTheoretical,
		},
		Marketing: reports.Marketing{
			NewFollowers: req.MarketingFollowers,
			Reviews:      req.MarketingReviews,
			Promos:       req.MarketingPromos,
		},
		Notes: req.Notes,
	}
	for _, row := range req.Staff {
		r.Staff = append(r.Staff, reports.StaffRow(row))
	}
	for _, row := range req.Inventory {
		r.Inventory = append(r.Inventory, reports.InventoryRow(row))
	}
	for _, row := range req.Incidents {
		r.Incidents = append(r.Incidents, reports.IncidentRow(row))
	}
	return r
}

func (h *ReportsHandler) HandleStartShift(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, reports.KindStartShift)
}

func (h *ReportsHandler) HandleEndShift(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, reports.KindEndShift)
}

func (h *ReportsHandler) handleSubmit(w http.ResponseWriter, r *http.Request, kind reports.Kind) {
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
		return
	}

	req, photos, err := decodeSubmission(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	report := req.toReport(kind, time.Now())
	if report.Responsible == "" {
		if id, ok := gate.FromContext(r.Context()); ok {
			report.Responsible = id.Profile.FullName
		}
	}
	if err := report.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	chatID, ok := h.branchChats[report.Branch]
	if !ok {
		respond.Error(w, http.StatusBadRequest, "unknown_branch", "no delivery chat configured for branch "+report.Branch)
		return
	}

	key := idempotencyKey(r)
	id, err := h.outbox.Enqueue(r.Context(), key, report.Branch, chatID, reports.Format(report), photos)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal_error", "failed to queue report")
		return
	}

	metrics.ReportsSubmitted.WithLabelValues(report.Branch, string(kind)).Inc()
	respond.JSON(w, http.StatusAccepted, "report queued for delivery", map[string]string{
		"id":              id.String(),
		"idempotency_key": key.String(),
	})
}

// HandleStatus reports the delivery state of a queued submission so the
// client can tell the user whether a manual re-submit is needed.
func (h *ReportsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET only")
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
		return
	}
	caller, ok := gate.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "no_session", "sign in required")
		return
	}
	m, err := h.outbox.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, delivery.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "not_found", "no such report")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "internal_error", "status lookup failed")
		return
	}
	// Branch accounts only see their own branch's queue; a cross-branch id
	// looks like a missing one so ids stay unguessable.
	if !caller.Profile.Role.AtLeast(profiles.RoleCentral) && m.Branch != caller.Profile.Branch {
		respond.Error(w, http.StatusNotFound, "not_found", "no such report")
		return
	}
	respond.JSON(w, http.StatusOK, "", map[string]any{
		"id":         m.ID.String(),
		"status":     string(m.Status),
		"attempts":   m.Attempts,
		"last_error": m.LastError,
	})
}

// decodeSubmission accepts either a plain JSON body or a multipart form with
// a "report" JSON field plus "photos" file parts.
func decodeSubmission(r *http.Request) (reportRequest, []delivery.Photo, error) {
	var req reportRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, errors.New("invalid JSON payload")
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, nil, errors.New("invalid multipart payload")
	}
	raw := r.FormValue("report")
	if raw == "" {
		return req, nil, errors.New("multipart form must carry a report field")
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return req, nil, errors.New("invalid report JSON")
	}

	var photos []delivery.Photo
	if r.MultipartForm != nil {
		for _, hdr := range r.MultipartForm.File["photos"] {
			f, err := hdr.Open()
			if err != nil {
				return req, nil, errors.New("unreadable photo attachment")
			}
			data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
			_ = f.Close()
			if err != nil {
				return req, nil, errors.New("unreadable photo attachment")
			}
			photos = append(photos, delivery.Photo{Caption: hdr.Filename, Data: data})
		}
	}
	return req, photos, nil
}

func idempotencyKey(r *http.Request) uuid.UUID {
	if raw := strings.TrimSpace(r.Header.Get("Idempotency-Key")); raw != "" {
		if key, err := uuid.Parse(raw); err == nil {
			return key
		}
	}
	return uuid.New()
}
