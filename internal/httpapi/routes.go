package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ran-group/shiftdesk/internal/domain/profiles"
	"github.com/ran-group/shiftdesk/internal/gate"
)

type Deps struct {
	Auth     *AuthHandler
	Accounts *AccountsHandler
	Reports  *ReportsHandler
	Gate     *gate.Gate
	Log      *slog.Logger
	Metrics  bool
}

// Routes builds the full navigation surface. Gating mirrors the page map:
// sign-in/up are public, /me allows pending accounts, report forms need an
// approved account, account management needs manager or higher.
func Routes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if d.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/api/auth/signup", d.Auth.HandleSignUp)
	mux.HandleFunc("/api/auth/signin", d.Auth.HandleSignIn)
	mux.Handle("/api/auth/me",
		d.Gate.Protect(http.HandlerFunc(d.Auth.HandleMe), gate.AllowPending()))

	mux.Handle("/api/accounts",
		d.Gate.Protect(http.HandlerFunc(d.Accounts.HandleList), gate.MinRole(profiles.RoleManager)))
	mux.Handle("/api/accounts/approve",
		d.Gate.Protect(http.HandlerFunc(d.Accounts.HandleApprove), gate.MinRole(profiles.RoleManager)))
	mux.Handle("/api/accounts/reject",
		d.Gate.Protect(http.HandlerFunc(d.Accounts.HandleReject), gate.MinRole(profiles.RoleManager)))

	mux.Handle("/api/reports/start",
		d.Gate.Protect(http.HandlerFunc(d.Reports.HandleStartShift)))
	mux.Handle("/api/reports/end",
		d.Gate.Protect(http.HandlerFunc(d.Reports.HandleEndShift)))
	mux.Handle("/api/reports/status",
		d.Gate.Protect(http.HandlerFunc(d.Reports.HandleStatus)))

	return CORS(Logging(d.Log, mux))
}
