package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadmcp/internal/agent"
	"cadmcp/internal/browser"
	"cadmcp/internal/browser/browsertest"
	"cadmcp/internal/drawing"
	"cadmcp/internal/facade"
	"cadmcp/internal/taskreg"
	"cadmcp/internal/tools"
)

type stubRunner struct {
	result  string
	release chan struct{}
}

func (r *stubRunner) Run(ctx context.Context, task string, onStep agent.StepFunc) (string, error) {
	onStep(ctx)
	if r.release != nil {
		<-r.release
	}
	return r.result, nil
}

type fixture struct {
	srv      *Server
	registry *taskreg.Registry
	fake     *browsertest.Client
	runner   *stubRunner
	stopped  *atomic.Bool
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	fake := browsertest.New(map[string]string{
		"https://www.rayon.design/": `<html><body><button id="new">New Model</button></body></html>`,
	})
	session := browser.NewSession(fake.Factory(nil), browser.DefaultOptions(), nil)
	reg := taskreg.New(nil)
	runner := &stubRunner{result: "Found tool X", release: make(chan struct{})}
	ids := 0
	svc := drawing.New(reg, runner, nil, drawing.WithIDs(func() string {
		ids++
		return fmt.Sprintf("task-%d", ids)
	}))
	stopped := &atomic.Bool{}

	srv := New(Params{
		Facade:   facade.New(session, nil),
		Drawing:  svc,
		Registry: reg,
		Shutdown: func() { stopped.Store(true) },
	})
	return fixture{srv: srv, registry: reg, fake: fake, runner: runner, stopped: stopped}
}

type rpcResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Contents []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		ResourceTemplates []struct {
			URITemplate string `json:"uriTemplate"`
		} `json:"resourceTemplates"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f fixture) rpc(t *testing.T, method string, params any) rpcResponse {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := f.srv.MCP().HandleMessage(context.Background(), raw)
	out, err := json.Marshal(reply)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error, "unexpected rpc error: %s", out)
	return resp
}

func (f fixture) call(t *testing.T, name string, args map[string]any) string {
	t.Helper()
	resp := f.rpc(t, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "text", resp.Result.Content[0].Type)
	return resp.Result.Content[0].Text
}

func TestToolsAreListed(t *testing.T) {
	f := newFixture(t)

	resp := f.rpc(t, "tools/list", map[string]any{})

	var names []string
	for _, tl := range resp.Result.Tools {
		names = append(names, tl.Name)
	}
	for _, def := range tools.List() {
		assert.Contains(t, names, def.Name)
	}
}

func TestResourceTemplatesAreListed(t *testing.T) {
	f := newFixture(t)

	resp := f.rpc(t, "resources/templates/list", map[string]any{})

	var got []string
	for _, tmpl := range resp.Result.ResourceTemplates {
		got = append(got, tmpl.URITemplate)
	}
	assert.ElementsMatch(t, []string{
		"resource://search_results/{request_id}",
		"resource://drawing_results/{request_id}",
	}, got)
}

func TestClickBeforeNavigateIsText(t *testing.T) {
	f := newFixture(t)

	got := f.call(t, "click_button", map[string]any{"selector": "#new"})
	assert.Equal(t, "Browser not initialized. Please navigate to a page first.", got)
}

func TestNavigateThenClick(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Successfully navigated to https://www.rayon.design/",
		f.call(t, "navigate", map[string]any{"url": "https://www.rayon.design/"}))
	assert.Equal(t, "Successfully clicked button with selector '#new'",
		f.call(t, "click_button", map[string]any{"selector": "#new"}))
	assert.Contains(t, f.call(t, "analyze_dom", nil), "1. New Model (id: new)")
	assert.Equal(t, "Highlighted 1 interactive elements (1 buttons, 0 links, 0 other clickable)",
		f.call(t, "highlight_elements", nil))
}

func TestSearchAndPollThroughResource(t *testing.T) {
	f := newFixture(t)

	ack := f.call(t, "find_drawing_methods", map[string]any{"shape_name": "square"})
	assert.Contains(t, ack, "resource://search_results/task-1")

	read := func() string {
		resp := f.rpc(t, "resources/read", map[string]any{"uri": "resource://search_results/task-1"})
		require.Len(t, resp.Result.Contents, 1)
		assert.Equal(t, "text/plain", resp.Result.Contents[0].MIMEType)
		return resp.Result.Contents[0].Text
	}
	assert.Contains(t, read(), "in progress")

	close(f.runner.release)
	done, ok := f.registry.Done("task-1")
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}

	assert.Equal(t, "Found tool X", read())
	assert.Equal(t, "Found tool X", f.call(t, "get_task_result", map[string]any{"request_id": "task-1"}))
	assert.Contains(t, f.call(t, "list_tasks", nil), "task-1 [completed]")
}

func TestUnknownResultResource(t *testing.T) {
	f := newFixture(t)

	resp := f.rpc(t, "resources/read", map[string]any{"uri": "resource://drawing_results/missing"})
	require.Len(t, resp.Result.Contents, 1)
	assert.Equal(t, "No search results found for request ID: missing", resp.Result.Contents[0].Text)
}

func TestListTasksEmpty(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "No tasks", f.call(t, "list_tasks", nil))
}

func TestGetTaskResultRequiresID(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Error: request_id is required", f.call(t, "get_task_result", nil))
}

func TestShutdownTool(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "shutting down", f.call(t, "shutdown", nil))
	assert.True(t, f.stopped.Load())
}

func TestHandlerErrorsBecomeText(t *testing.T) {
	f := newFixture(t)
	f.srv.dispatcher.RegisterHandler(tools.ListTasks, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		return tools.Result{}, fmt.Errorf("registry offline")
	})

	assert.Equal(t, "Error: registry offline", f.call(t, "list_tasks", nil))
}

func TestToMCPTool(t *testing.T) {
	def := tools.Definition{
		Name:        "demo",
		Description: "demo tool",
		Parameters: []tools.Parameter{
			{Name: "s", Type: tools.ParamString, Required: true},
			{Name: "n", Type: tools.ParamNumber},
			{Name: "b", Type: tools.ParamBoolean},
			{Name: "mode", Type: tools.ParamString, Enum: []string{"a", "b"}},
		},
	}

	tool := toMCPTool(def)
	assert.Equal(t, "demo", tool.Name)
	assert.Equal(t, "demo tool", tool.Description)
	assert.Equal(t, []string{"s"}, tool.InputSchema.Required)
	assert.Len(t, tool.InputSchema.Properties, 4)
	assert.Equal(t, "number", tool.InputSchema.Properties["n"].(map[string]any)["type"])
	assert.Equal(t, []string{"a", "b"}, tool.InputSchema.Properties["mode"].(map[string]any)["enum"])
}

func TestLongRunningToolsCarryBackgroundHint(t *testing.T) {
	tool := toMCPTool(tools.Definition{Name: "slow", Description: "Slow work.", LongRunning: true})
	assert.Equal(t, "Slow work."+backgroundHint, tool.Description)

	for _, name := range []string{tools.FindDrawingMethods, tools.DrawShape} {
		def, ok := tools.Lookup(name)
		require.True(t, ok)
		assert.Contains(t, toMCPTool(def).Description, "resource URI")
	}
	def, _ := tools.Lookup(tools.Navigate)
	assert.NotContains(t, toMCPTool(def).Description, "resource URI")
}

func TestEveryCatalogueToolHasHandler(t *testing.T) {
	f := newFixture(t)

	var want []string
	for _, def := range tools.List() {
		want = append(want, def.Name)
	}
	assert.ElementsMatch(t, want, f.srv.dispatcher.Registered())
}

func TestNonStringArgumentReadsAsEmpty(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Error: url is required", f.call(t, "navigate", map[string]any{"url": 42}))
}
