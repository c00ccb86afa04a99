package facade

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cadmcp/internal/browser"
)

func TestFormatReportSkipsHiddenAndNumbersVisible(t *testing.T) {
	got := FormatReport(browser.Interactive{
		Buttons: []browser.Button{
			{Text: "hidden", Visible: false},
			{Text: "  Line\n  Tool ", Visible: true},
			{Text: "", Visible: true, ID: "icon"},
		},
	})

	assert.Equal(t, "Buttons:\n1. Line Tool\n2. [No Text] (id: icon)\n\nLinks:\n(none)", got)
}

func TestFormatReportEmpty(t *testing.T) {
	assert.Equal(t, "Buttons:\n(none)\n\nLinks:\n(none)", FormatReport(browser.Interactive{}))
}
