package reports

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindStartShift Kind = "start"
	KindEndShift   Kind = "end"
)

// Revenue holds the POS money fields. Total and AvgOrderValue are optional:
// left nil they are derived at assembly time, an explicit value is kept as-is.
type Revenue struct {
	Cash    int64
	Card    int64
	EWallet int64
	Total   *int64
	Guests  int64
	// average order value, derived as Total/Guests when nil
	AvgOrderValue *int64
}

// CashCount is the drawer reconciliation pair; variance is always derived.
type CashCount struct {
	Counted     int64
	Theoretical int64
}

type StaffRow struct {
	Name string
	Role string
	In   string
	Out  string
	Note string
}

type InventoryRow struct {
	Item    string
	Unit    string
	Opening float64
	Closing float64
	Note    string
}

type IncidentRow struct {
	Summary string
	Detail  string
	At      string
}

type Marketing struct {
	NewFollowers int64
	Reviews      int64
	Promos       string
}

// Report is the transient shift document. It is never persisted as such:
// it is resolved, formatted and handed to the delivery outbox.
type Report struct {
	Kind        Kind
	Branch      string
	ShiftPeriod string
	Responsible string
	SubmittedAt time.Time

	Revenue   Revenue
	Cash      CashCount
	Inventory []InventoryRow
	Staff     []StaffRow
	Marketing Marketing
	Incidents []IncidentRow
	Notes     string
}

func (r Report) Validate() error {
	if r.Kind != KindStartShift && r.Kind != KindEndShift {
		return fmt.Errorf("reports: unknown kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Branch) == "" {
		return fmt.Errorf("reports: branch is required")
	}
	if strings.TrimSpace(r.Responsible) == "" {
		return fmt.Errorf("reports: responsible person is required")
	}
	return nil
}
