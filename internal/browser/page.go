package browser

import (
	"context"
	"fmt"
)

// Button is one <button> element as seen by the inspect script.
type Button struct {
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
	ID       string `json:"id"`
	Classes  string `json:"classes"`
}

// Link is one <a> element as seen by the inspect script.
type Link struct {
	Text    string `json:"text"`
	Href    string `json:"href"`
	Visible bool   `json:"visible"`
	ID      string `json:"id"`
	Classes string `json:"classes"`
}

type Interactive struct {
	Buttons []Button `json:"buttons"`
	Links   []Link   `json:"links"`
	URL     string   `json:"url"`
}

type HighlightCounts struct {
	Buttons   int `json:"buttonCount"`
	Links     int `json:"linkCount"`
	Clickable int `json:"clickableCount"`
}

func (h HighlightCounts) Total() int {
	return h.Buttons + h.Links + h.Clickable
}

// InspectScript returns the page's buttons and links. Fakes match on it.
const InspectScript = `() => {
	const buttons = Array.from(document.querySelectorAll('button')).map(b => ({
		text: (b.innerText || '').trim(),
		visible: b.offsetParent !== null,
		disabled: !!b.disabled,
		id: b.id || '',
		classes: typeof b.className === 'string' ? b.className : ''
	}));
	const links = Array.from(document.querySelectorAll('a')).map(a => ({
		text: (a.innerText || '').trim(),
		href: a.href || '',
		visible: a.offsetParent !== null,
		id: a.id || '',
		classes: typeof a.className === 'string' ? a.className : ''
	}));
	return { buttons, links };
}`

// HighlightScript marks visible interactive elements and returns counts.
const HighlightScript = `() => {
	const existing = document.getElementById('mcp-highlight-style');
	if (existing) {
		existing.remove();
	}
	const style = document.createElement('style');
	style.id = 'mcp-highlight-style';
	style.innerHTML = ` + "`" + `
		@keyframes mcpPulse {
			0% { box-shadow: 0 0 0 0px rgba(66, 133, 244, 0.7); }
			50% { box-shadow: 0 0 0 5px rgba(66, 133, 244, 0.5); }
			100% { box-shadow: 0 0 0 0px rgba(66, 133, 244, 0.7); }
		}
		.mcp-highlight-button {
			position: relative;
			border: 2px solid #4285F4 !important;
			animation: mcpPulse 1.5s infinite !important;
			z-index: 9999 !important;
		}
		.mcp-highlight-link {
			position: relative;
			border: 2px solid #0F9D58 !important;
			animation: mcpPulse 1.5s infinite !important;
			z-index: 9999 !important;
		}
		.mcp-element-label {
			position: absolute;
			top: -10px;
			left: 0;
			background: #333;
			color: white;
			padding: 2px 6px;
			border-radius: 3px;
			font-size: 12px;
			white-space: nowrap;
			z-index: 10000;
		}
	` + "`" + `;
	document.head.appendChild(style);

	const mark = (el, cls, prefix) => {
		el.classList.add(cls);
		const label = document.createElement('div');
		label.className = 'mcp-element-label';
		label.textContent = prefix + ': ' + ((el.innerText || '').trim() || '[No Text]');
		el.style.position = 'relative';
		el.appendChild(label);
	};
	const visible = el => el.offsetParent !== null;

	let buttonCount = 0, linkCount = 0, clickableCount = 0;
	document.querySelectorAll('button').forEach(el => {
		if (visible(el)) { mark(el, 'mcp-highlight-button', 'Button'); buttonCount++; }
	});
	document.querySelectorAll('a').forEach(el => {
		if (visible(el)) { mark(el, 'mcp-highlight-link', 'Link'); linkCount++; }
	});
	document.querySelectorAll('[role="button"], [onclick], input[type="button"], input[type="submit"]').forEach(el => {
		if (visible(el) && !el.matches('button, a')) { mark(el, 'mcp-highlight-button', 'Clickable'); clickableCount++; }
	});
	return { buttonCount, linkCount, clickableCount };
}`

// QueryInteractive collects the page's buttons and links together with
// the current page URL.
func QueryInteractive(ctx context.Context, c Client) (Interactive, error) {
	var out Interactive
	if err := c.Evaluate(ctx, InspectScript, &out); err != nil {
		return Interactive{}, fmt.Errorf("evaluate inspect script: %w", err)
	}
	url, err := c.URL(ctx)
	if err != nil {
		return Interactive{}, fmt.Errorf("read page url: %w", err)
	}
	out.URL = url
	return out, nil
}

// Highlight marks every visible interactive element on the page and
// returns how many of each kind were marked.
func Highlight(ctx context.Context, c Client) (HighlightCounts, error) {
	var out HighlightCounts
	if err := c.Evaluate(ctx, HighlightScript, &out); err != nil {
		return HighlightCounts{}, fmt.Errorf("evaluate highlight script: %w", err)
	}
	return out, nil
}
