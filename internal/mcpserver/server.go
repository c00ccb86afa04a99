// Package mcpserver exposes the tool catalogue, the task result resources
// and client notifications over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"cadmcp/internal/drawing"
	"cadmcp/internal/facade"
	"cadmcp/internal/taskreg"
	"cadmcp/internal/tools"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	Name    = "cad_mcp"
	Version = "0.1.0"

	backgroundHint = " Runs in the background: the reply names a resource URI to read the result from."

	serverName   = "MCPServer"
	serverTracer = "mcpserver"
)

// ShutdownFunc asks the process to stop. It must not block.
type ShutdownFunc func()

type Params struct {
	fx.In

	Facade   *facade.Facade
	Drawing  *drawing.Service
	Registry *taskreg.Registry
	Logger   *zap.Logger
	Shutdown ShutdownFunc `optional:"true"`
}

type Server struct {
	mcp        *server.MCPServer
	dispatcher *tools.Dispatcher

	facade   *facade.Facade
	drawing  *drawing.Service
	registry *taskreg.Registry
	shutdown ShutdownFunc

	logger *zap.Logger
	tracer trace.Tracer
}

func New(p Params) *Server {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: server.NewMCPServer(Name, Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithLogging(),
		),
		dispatcher: tools.NewDispatcher(),
		facade:     p.Facade,
		drawing:    p.Drawing,
		registry:   p.Registry,
		shutdown:   p.Shutdown,
		logger:     logger.With(zap.String(logg.Layer, serverName)),
		tracer:     otel.Tracer(serverTracer),
	}

	s.registerHandlers()
	for _, name := range s.dispatcher.Registered() {
		def, ok := tools.Lookup(name)
		if !ok {
			s.logger.Warn("Handler has no tool definition", zap.String(logg.Tool, name))
			continue
		}
		s.mcp.AddTool(toMCPTool(def), s.handle(name))
	}
	s.registerResources()

	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// toMCPTool converts a catalogue definition into its protocol form.
func toMCPTool(def tools.Definition) mcp.Tool {
	desc := def.Description
	if def.LongRunning {
		desc += backgroundHint
	}
	opts := []mcp.ToolOption{mcp.WithDescription(desc)}
	for _, p := range def.Parameters {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		if len(p.Enum) > 0 {
			popts = append(popts, mcp.Enum(p.Enum...))
		}
		switch p.Type {
		case tools.ParamNumber:
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		case tools.ParamBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return mcp.NewTool(def.Name, opts...)
}

// handle adapts the dispatcher to mcp-go. Every outcome, including
// dispatch errors, becomes a text result.
func (s *Server) handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		const op = "CallTool"
		logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tool, name))

		var err error
		ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String(logg.Tool, name))
		defer func() {
			step.End(err)
		}()

		start := time.Now()
		logger.Debug("Tool called", zap.Any("args", req.Params.Arguments))

		ctx = withProgressToken(ctx, req)

		var res tools.Result
		res, err = s.dispatcher.Call(ctx, name, req.Params.Arguments)
		if err != nil {
			logger.Warn("Tool failed", zap.Error(err))
			if errors.Is(err, tools.ErrUnknownTool) {
				return mcp.NewToolResultText("Error: unknown tool " + name), nil
			}
			return mcp.NewToolResultText("Error: " + err.Error()), nil
		}

		logger.Info("Tool done", zap.Duration("took", time.Since(start)), zap.Int("result_len", len(res.Text)))
		return mcp.NewToolResultText(res.Text), nil
	}
}
