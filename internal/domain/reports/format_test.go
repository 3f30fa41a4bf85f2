package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Kind:        KindEndShift,
		Branch:      "NV01",
		ShiftPeriod: "evening",
		Responsible: "Nguyen Thi Linh",
		SubmittedAt: time.Date(2026, 8, 30, 22, 15, 0, 0, time.UTC),
		Revenue:     Revenue{Cash: 300000, Card: 200000, Guests: 10},
		Cash:        CashCount{Counted: 495000, Theoretical: 500000},
		Inventory:   []InventoryRow{{Item: "Milk", Unit: "l", Opening: 12, Closing: 4.5}},
		Staff:       []StaffRow{{Name: "Minh", Role: "barista", In: "14:00", Out: "22:00"}},
		Marketing:   Marketing{NewFollowers: 12, Reviews: 2},
		Incidents:   []IncidentRow{{Summary: "POS froze", At: "19:40", Detail: "rebooted"}},
		Notes:       "rainy evening, slow foot traffic",
	}
}

func TestFormatSectionOrder(t *testing.T) {
	text := Format(sampleReport())

	sections := []string{
		"SHIFT END REPORT",
		"<b>Revenue</b>",
		"<b>Cash reconciliation</b>",
		"<b>Inventory</b>",
		"<b>Staff</b>",
		"<b>Marketing</b>",
		"<b>Incidents</b>",
		"rainy evening",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(text, s)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}
}

func TestFormatDerivedNumbers(t *testing.T) {
	text := Format(sampleReport())
	assert.Contains(t, text, "Total: 500.000")
	assert.Contains(t, text, "avg order: 50.000")
	assert.Contains(t, text, "Variance: -5.000")
}

func TestFormatSkipsEmptySections(t *testing.T) {
	r := Report{
		Kind:        KindStartShift,
		Branch:      "TD02",
		ShiftPeriod: "morning",
		Responsible: "Huong",
		SubmittedAt: time.Now(),
	}
	text := Format(r)
	assert.NotContains(t, text, "<b>Inventory</b>")
	assert.NotContains(t, text, "<b>Staff</b>")
	assert.NotContains(t, text, "<b>Incidents</b>")
	assert.NotContains(t, text, "<b>Marketing</b>")
	// the money sections always render, even when all zeros
	assert.Contains(t, text, "<b>Revenue</b>")
	assert.Contains(t, text, "<b>Cash reconciliation</b>")
}

func TestFormatEscapesUserInput(t *testing.T) {
	r := sampleReport()
	r.Notes = "milk <expired> & replaced"
	text := Format(r)
	assert.Contains(t, text, "milk &lt;expired&gt; &amp; replaced")
}

func TestAmountGrouping(t *testing.T) {
	assert.Equal(t, "0", amount(0))
	assert.Equal(t, "950", amount(950))
	assert.Equal(t, "50.000", amount(50000))
	assert.Equal(t, "1.250.000", amount(1250000))
	assert.Equal(t, "-5.000", amount(-5000))
}
