package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cadmcp/internal/facade"
	"cadmcp/internal/tools"
)

const listTimeFormat = time.RFC3339

func text(s string) (tools.Result, error) {
	return tools.Result{Text: s}, nil
}

// arg reads a string argument; anything else reads as empty.
func arg(args map[string]any, key string) string {
	v, _ := tools.StringArg(args, key)
	return v
}

func outcome(o facade.Outcome) (tools.Result, error) {
	return tools.Result{Text: o.Message}, nil
}

func (s *Server) registerHandlers() {
	s.dispatcher.RegisterHandler(tools.Navigate, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		return outcome(s.facade.Navigate(ctx, arg(args, "url")))
	})

	s.dispatcher.RegisterHandler(tools.ClickButton, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		return outcome(s.facade.Click(ctx, arg(args, "selector")))
	})

	s.dispatcher.RegisterHandler(tools.AnalyzeDOM, func(ctx context.Context, _ map[string]any) (tools.Result, error) {
		return outcome(s.facade.Inspect(ctx))
	})

	s.dispatcher.RegisterHandler(tools.HighlightElements, func(ctx context.Context, _ map[string]any) (tools.Result, error) {
		return outcome(s.facade.Highlight(ctx))
	})

	s.dispatcher.RegisterHandler(tools.FindDrawingMethods, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		return text(s.drawing.FindDrawingMethods(ctx, arg(args, "shape_name"), s.sink(ctx)))
	})

	s.dispatcher.RegisterHandler(tools.DrawShape, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		return text(s.drawing.DrawShape(ctx, arg(args, "shape_name"), s.sink(ctx)))
	})

	s.dispatcher.RegisterHandler(tools.GetTaskResult, func(ctx context.Context, args map[string]any) (tools.Result, error) {
		id := strings.TrimSpace(arg(args, "request_id"))
		if id == "" {
			return text("Error: request_id is required")
		}
		return text(s.drawing.Result(id))
	})

	s.dispatcher.RegisterHandler(tools.ListTasks, func(ctx context.Context, _ map[string]any) (tools.Result, error) {
		return text(s.listTasks())
	})

	s.dispatcher.RegisterHandler(tools.Shutdown, func(ctx context.Context, _ map[string]any) (tools.Result, error) {
		if s.shutdown == nil {
			return text("Error: shutdown is not available")
		}
		s.logger.Info("Shutdown requested by client")
		s.shutdown()
		return text("shutting down")
	})
}

func (s *Server) listTasks() string {
	recs := s.registry.List()
	if len(recs) == 0 {
		return "No tasks"
	}

	var b strings.Builder
	for i, rec := range recs {
		fmt.Fprintf(&b, "%d. %s [%s] started %s", i+1, rec.ID, rec.State, rec.CreatedAt.Format(listTimeFormat))
		if rec.Terminal() {
			fmt.Fprintf(&b, ", finished %s", rec.FinishedAt.Format(listTimeFormat))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
