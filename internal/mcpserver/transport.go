package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServeStdio reads requests from in and writes responses to out until ctx
// ends or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	s.logger.Info("Serving MCP over stdio")
	return stdio.Listen(ctx, in, out)
}

// NewSSE builds an SSE transport for the server. The caller owns Start
// and Shutdown.
func (s *Server) NewSSE(baseURL string) *server.SSEServer {
	return server.NewSSEServer(s.mcp, server.WithBaseURL(baseURL))
}
