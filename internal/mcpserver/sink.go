package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"cadmcp/internal/drawing"
)

const (
	methodMessage  = "notifications/message"
	methodProgress = "notifications/progress"
)

type progressKey struct{}

func withProgressToken(ctx context.Context, req mcp.CallToolRequest) context.Context {
	if req.Params.Meta == nil || req.Params.Meta.ProgressToken == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, req.Params.Meta.ProgressToken)
}

// clientSink sends notices to the client session that made the request.
// The session travels in ctx, so background work must keep the request
// context's values.
type clientSink struct {
	s     *Server
	token mcp.ProgressToken
}

var _ drawing.Sink = (*clientSink)(nil)

func (s *Server) sink(ctx context.Context) drawing.Sink {
	token, _ := ctx.Value(progressKey{}).(mcp.ProgressToken)
	return &clientSink{s: s, token: token}
}

func (c *clientSink) Info(ctx context.Context, msg string) {
	c.s.logger.Info(msg)
	c.send(ctx, methodMessage, map[string]any{
		"level":  mcp.LoggingLevelInfo,
		"logger": Name,
		"data":   msg,
	})
}

func (c *clientSink) Error(ctx context.Context, msg string) {
	c.s.logger.Error(msg)
	c.send(ctx, methodMessage, map[string]any{
		"level":  mcp.LoggingLevelError,
		"logger": Name,
		"data":   msg,
	})
}

func (c *clientSink) Progress(ctx context.Context, step int) {
	if c.token == nil {
		return
	}
	c.send(ctx, methodProgress, map[string]any{
		"progressToken": c.token,
		"progress":      step,
	})
}

func (c *clientSink) send(ctx context.Context, method string, params map[string]any) {
	if err := c.s.mcp.SendNotificationToClient(ctx, method, params); err != nil {
		c.s.logger.Debug("Notification not delivered", zap.String("method", method), zap.Error(err))
	}
}
