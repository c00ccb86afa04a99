package tools_test

import (
	"context"
	"errors"
	"testing"

	"cadmcp/internal/tools"
)

func TestRegisterAndCall(t *testing.T) {
	d := tools.NewDispatcher()

	d.RegisterHandler("navigate", func(ctx context.Context, args map[string]any) (tools.Result, error) {
		url, _ := tools.StringArg(args, "url")
		return tools.Result{Text: "ok " + url}, nil
	})

	res, err := d.Call(context.Background(), "navigate", map[string]any{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if res.Text != "ok https://example.com" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestCallUnknownTool(t *testing.T) {
	d := tools.NewDispatcher()
	_, err := d.Call(context.Background(), "unknown", nil)
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegisteredIsSorted(t *testing.T) {
	d := tools.NewDispatcher()
	noop := func(ctx context.Context, args map[string]any) (tools.Result, error) { return tools.Result{}, nil }
	d.RegisterHandler("shutdown", noop)
	d.RegisterHandler("analyze_dom", noop)

	got := d.Registered()
	if len(got) != 2 || got[0] != "analyze_dom" || got[1] != "shutdown" {
		t.Fatalf("unexpected registered names: %v", got)
	}
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"url": "x", "n": 3.0}
	if v, ok := tools.StringArg(args, "url"); !ok || v != "x" {
		t.Fatalf("expected url=x, got %q %v", v, ok)
	}
	if _, ok := tools.StringArg(args, "n"); ok {
		t.Fatalf("number should not read as string")
	}
	if _, ok := tools.StringArg(nil, "url"); ok {
		t.Fatalf("nil args should not yield a value")
	}
}
