package reports

import "strings"

// Resolve returns the explicit value when one was entered and the computed
// fallback otherwise. Derivations never override what the employee typed.
func Resolve(explicit *int64, fallback func() int64) int64 {
	if explicit != nil {
		return *explicit
	}
	return fallback()
}

// Totals are the derived numbers for a report. Deriving twice from the same
// inputs yields the same result; there is no hidden state.
type Totals struct {
	Revenue       int64
	AvgOrderValue int64
	CashVariance  int64
}

func (r Report) ResolveTotals() Totals {
	total := Resolve(r.Revenue.Total, func() int64 {
		return r.Revenue.Cash + r.Revenue.Card + r.Revenue.EWallet
	})
	aov := Resolve(r.Revenue.AvgOrderValue, func() int64 {
		if r.Revenue.Guests == 0 {
			return 0
		}
		return total / r.Revenue.Guests
	})
	return Totals{
		Revenue:       total,
		AvgOrderValue: aov,
		CashVariance:  r.Cash.Counted - r.Cash.Theoretical,
	}
}

// Normalize drops repeating-group rows whose primary field is blank. A row
// with only secondary columns filled is treated as noise from the form.
func (r Report) Normalize() Report {
	out := r
	out.Staff = nil
	for _, row := range r.Staff {
		if strings.TrimSpace(row.Name) != "" {
			out.Staff = append(out.Staff, row)
		}
	}
	out.Inventory = nil
	for _, row := range r.Inventory {
		if strings.TrimSpace(row.Item) != "" {
			out.Inventory = append(out.Inventory, row)
		}
	}
	out.Incidents = nil
	for _, row := range r.Incidents {
		if strings.TrimSpace(row.Summary) != "" {
			out.Incidents = append(out.Incidents, row)
		}
	}
	return out
}
