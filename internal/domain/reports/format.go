package reports

import (
	"fmt"
	"html"
	"strings"
)

// Format renders the report as a single Telegram-HTML text block. Section
// order is fixed: general info, revenue, cash reconciliation, inventory,
// staff, marketing, incidents, notes. Empty sections are skipped, the order
// of the rest never changes.
func Format(r Report) string {
	r = r.Normalize()
	t := r.ResolveTotals()

	var b strings.Builder

	title := "SHIFT START REPORT"
	if r.Kind == KindEndShift {
		title = "SHIFT END REPORT"
	}
	fmt.Fprintf(&b, "<b>%s — %s</b>\n", title, esc(r.Branch))
	fmt.Fprintf(&b, "Shift: %s\n", esc(r.ShiftPeriod))
	fmt.Fprintf(&b, "Responsible: %s\n", esc(r.Responsible))
	fmt.Fprintf(&b, "Submitted: %s\n", r.SubmittedAt.Format("02.01.2006 15:04"))

	b.WriteString("\n<b>Revenue</b>\n")
	fmt.Fprintf(&b, "Cash: %s\n", amount(r.Revenue.Cash))
	fmt.Fprintf(&b, "Card: %s\n", amount(r.Revenue.Card))
	fmt.Fprintf(&b, "E-wallet: %s\n", amount(r.Revenue.EWallet))
	fmt.Fprintf(&b, "Total: %s\n", amount(t.Revenue))
	fmt.Fprintf(&b, "Guests: %d, avg order: %s\n", r.Revenue.Guests, amount(t.AvgOrderValue))

	b.WriteString("\n<b>Cash reconciliation</b>\n")
	fmt.Fprintf(&b, "Counted: %s, theoretical: %s\n", amount(r.Cash.Counted), amount(r.Cash.Theoretical))
	fmt.Fprintf(&b, "Variance: %s\n", amount(t.CashVariance))

	if len(r.Inventory) > 0 {
		b.WriteString("\n<b>Inventory</b>\n")
		for _, row := range r.Inventory {
			fmt.Fprintf(&b, "• %s: %s → %s %s", esc(row.Item),
				qty(row.Opening), qty(row.Closing), esc(row.Unit))
			if row.Note != "" {
				fmt.Fprintf(&b, " (%s)", esc(row.Note))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Staff) > 0 {
		b.WriteString("\n<b>Staff</b>\n")
		for _, row := range r.Staff {
			fmt.Fprintf(&b, "• %s — %s", esc(row.Name), esc(row.Role))
			if row.In != "" || row.Out != "" {
				fmt.Fprintf(&b, " (%s–%s)", esc(row.In), esc(row.Out))
			}
			if row.Note != "" {
				fmt.Fprintf(&b, ", %s", esc(row.Note))
			}
			b.WriteString("\n")
		}
	}

	if r.Marketing.NewFollowers != 0 || r.Marketing.Reviews != 0 || r.Marketing.Promos != "" {
		b.WriteString("\n<b>Marketing</b>\n")
		fmt.Fprintf(&b, "New followers: %d, reviews: %d\n", r.Marketing.NewFollowers, r.Marketing.Reviews)
		if r.Marketing.Promos != "" {
			fmt.Fprintf(&b, "Promos: %s\n", esc(r.Marketing.Promos))
		}
	}

	if len(r.Incidents) > 0 {
		b.WriteString("\n<b>Incidents</b>\n")
		for _, row := range r.Incidents {
			fmt.Fprintf(&b, "• %s", esc(row.Summary))
			if row.At != "" {
				fmt.Fprintf(&b, " [%s]", esc(row.At))
			}
			if row.Detail != "" {
				fmt.Fprintf(&b, ": %s", esc(row.Detail))
			}
			b.WriteString("\n")
		}
	}

	if strings.TrimSpace(r.Notes) != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>\n", esc(r.Notes))
	}

	return strings.TrimRight(b.String(), "\n")
}

func esc(s string) string { return html.EscapeString(s) }

// amount groups thousands with dots, the way the chain writes VND.
func amount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ".")
	if neg {
		out = "-" + out
	}
	return out
}

func qty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
