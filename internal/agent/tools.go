package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"cadmcp/internal/browser"
)

const visibleWait = 3 * time.Second

// tool is one browser action the model may call.
type tool struct {
	name        string
	description string
	parameters  map[string]any
	call        func(ctx context.Context, c browser.Client, args json.RawMessage) (string, error)
}

func (t tool) openAI() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.name,
			Description: t.description,
			Parameters:  t.parameters,
		},
	}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func browserTools() []tool {
	return []tool{
		{
			name:        "navigate",
			description: "Open the given URL in the browser and wait for the page to load.",
			parameters:  objectSchema([]string{"url"}, map[string]any{"url": stringProp("Absolute URL to open")}),
			call: func(ctx context.Context, c browser.Client, args json.RawMessage) (string, error) {
				var in struct {
					URL string `json:"url"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid input format: %w", err)
				}
				url := strings.TrimSpace(in.URL)
				if url == "" {
					return "", fmt.Errorf("url is required")
				}
				if err := c.Navigate(ctx, url); err != nil {
					return "", err
				}
				return "Navigated to " + url, nil
			},
		},
		{
			name:        "click",
			description: "Click the first visible element matching a CSS selector.",
			parameters:  objectSchema([]string{"selector"}, map[string]any{"selector": stringProp(`CSS selector, e.g. "button#submit"`)}),
			call: func(ctx context.Context, c browser.Client, args json.RawMessage) (string, error) {
				var in struct {
					Selector string `json:"selector"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid input format: %w", err)
				}
				sel := strings.TrimSpace(in.Selector)
				if sel == "" {
					return "", fmt.Errorf("selector is required")
				}
				ok, err := c.IsVisible(ctx, sel, visibleWait)
				if err != nil {
					return "", err
				}
				if !ok {
					return "", fmt.Errorf("element not found: %s", sel)
				}
				if err := c.Click(ctx, sel); err != nil {
					return "", err
				}
				return "Clicked " + sel, nil
			},
		},
		{
			name:        "list_elements",
			description: "List the visible buttons and links on the current page.",
			parameters:  objectSchema(nil, map[string]any{}),
			call: func(ctx context.Context, c browser.Client, _ json.RawMessage) (string, error) {
				found, err := browser.QueryInteractive(ctx, c)
				if err != nil {
					return "", err
				}
				visible := browser.Interactive{URL: found.URL}
				for _, b := range found.Buttons {
					if b.Visible {
						visible.Buttons = append(visible.Buttons, b)
					}
				}
				for _, l := range found.Links {
					if l.Visible {
						visible.Links = append(visible.Links, l)
					}
				}
				raw, err := json.Marshal(visible)
				if err != nil {
					return "", err
				}
				return string(raw), nil
			},
		},
		{
			name:        "evaluate",
			description: "Run a JavaScript function expression in the page, e.g. \"() => document.title\", and return its JSON result.",
			parameters:  objectSchema([]string{"script"}, map[string]any{"script": stringProp("JavaScript function expression")}),
			call: func(ctx context.Context, c browser.Client, args json.RawMessage) (string, error) {
				var in struct {
					Script string `json:"script"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid input format: %w", err)
				}
				if strings.TrimSpace(in.Script) == "" {
					return "", fmt.Errorf("script is required")
				}
				var out any
				if err := c.Evaluate(ctx, in.Script, &out); err != nil {
					return "", err
				}
				raw, err := json.Marshal(out)
				if err != nil {
					return "", err
				}
				return string(raw), nil
			},
		},
		{
			name:        "current_url",
			description: "Return the URL of the current page.",
			parameters:  objectSchema(nil, map[string]any{}),
			call: func(ctx context.Context, c browser.Client, _ json.RawMessage) (string, error) {
				return c.URL(ctx)
			},
		},
	}
}
