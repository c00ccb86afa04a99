package facade

import (
	"fmt"
	"strings"

	"cadmcp/internal/browser"
)

const noText = "[No Text]"

// FormatReport renders the visible subset of found as a numbered list per
// element kind.
func FormatReport(found browser.Interactive) string {
	var b strings.Builder

	if found.URL != "" {
		fmt.Fprintf(&b, "Page: %s\n\n", found.URL)
	}

	b.WriteString("Buttons:\n")
	n := 0
	for _, btn := range found.Buttons {
		if !btn.Visible {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s", n, label(btn.Text))
		if btn.ID != "" {
			fmt.Fprintf(&b, " (id: %s)", btn.ID)
		}
		if btn.Disabled {
			b.WriteString(" [disabled]")
		}
		b.WriteByte('\n')
	}
	if n == 0 {
		b.WriteString("(none)\n")
	}

	b.WriteString("\nLinks:\n")
	n = 0
	for _, link := range found.Links {
		if !link.Visible {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s", n, label(link.Text))
		if link.Href != "" {
			fmt.Fprintf(&b, " -> %s", link.Href)
		}
		b.WriteByte('\n')
	}
	if n == 0 {
		b.WriteString("(none)\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func label(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return noText
	}
	return text
}
