// Package drawing hosts the two long-running rayon.design tasks. Both hand
// the work to the browser agent in the background and answer at once with
// the resource URI to poll.
package drawing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cadmcp/internal/agent"
	"cadmcp/internal/taskreg"
	"cadmcp/pkg/logg"
)

const (
	serviceName = "DrawingService"

	SearchResultsURI  = "resource://search_results/"
	DrawingResultsURI = "resource://drawing_results/"

	MsgShapeRequired = "Error: shape_name is required"
)

// Sink receives out-of-band notices for one request. Calls come from the
// background task after the originating tool call has returned.
type Sink interface {
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
	Progress(ctx context.Context, step int)
}

// Runner executes a natural-language browser task to completion.
type Runner interface {
	Run(ctx context.Context, task string, onStep agent.StepFunc) (string, error)
}

type Service struct {
	registry *taskreg.Registry
	runner   Runner
	newID    func() string
	logger   *zap.Logger
}

type Option func(*Service)

// WithIDs replaces the uuid request id generator.
func WithIDs(next func() string) Option {
	return func(s *Service) { s.newID = next }
}

func New(registry *taskreg.Registry, runner Runner, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		registry: registry,
		runner:   runner,
		newID:    uuid.NewString,
		logger:   logger.With(zap.String(logg.Layer, serviceName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindDrawingMethods starts a background search for how to draw shape and
// returns the acknowledgement naming the result URI.
func (s *Service) FindDrawingMethods(ctx context.Context, shape string, sink Sink) string {
	shape = strings.TrimSpace(shape)
	if shape == "" {
		return MsgShapeRequired
	}
	sink = orNop(sink)
	id := s.newID()
	task := searchTask(shape)

	err := s.registry.Start(ctx, taskreg.Task{
		ID:   id,
		Note: fmt.Sprintf("Search for '%s' drawing methods in progress. Check back in 30 seconds", shape),
		Run: func(ctx context.Context) (string, error) {
			steps := taskreg.NewSteps(func(ctx context.Context, n int) {
				sink.Info(ctx, fmt.Sprintf("Step %d completed", n))
				sink.Progress(ctx, n)
			})
			return s.runner.Run(ctx, task, func(ctx context.Context) { steps.Next(ctx) })
		},
		OnError: func(ctx context.Context, err error) {
			sink.Error(ctx, fmt.Sprintf("Error searching for '%s' drawing methods: %v", shape, err))
		},
	})
	if err != nil {
		s.logger.Warn("Could not start search", zap.String(logg.Shape, shape), zap.Error(err))
		return fmt.Sprintf("Error searching for '%s' drawing methods: %v", shape, err)
	}

	s.logger.Info("Search started", zap.String(logg.Shape, shape), zap.String(logg.TaskID, id))
	return fmt.Sprintf("Search for '%s' drawing methods started. Please wait for 2 minutes, then you can retrieve results using the resource URI: %s%s. Use a terminal sleep statement to wait for 2 minutes.",
		shape, SearchResultsURI, id)
}

// DrawShape starts drawing shape in the background and returns the
// acknowledgement naming the result URI.
func (s *Service) DrawShape(ctx context.Context, shape string, sink Sink) string {
	shape = strings.TrimSpace(shape)
	if shape == "" {
		return MsgShapeRequired
	}
	sink = orNop(sink)
	id := s.newID()
	task := drawTask(shape)

	err := s.registry.Start(ctx, taskreg.Task{
		ID:   id,
		Note: fmt.Sprintf("Drawing of '%s' in progress. Check back in 30 seconds", shape),
		Run: func(ctx context.Context) (string, error) {
			steps := taskreg.NewSteps(func(ctx context.Context, n int) {
				sink.Info(ctx, fmt.Sprintf("Drawing step %d completed", n))
				sink.Progress(ctx, n)
			})
			result, err := s.runner.Run(ctx, task, func(ctx context.Context) { steps.Next(ctx) })
			if err != nil {
				return "", err
			}
			sink.Info(ctx, fmt.Sprintf("Drawing of '%s' has been completed successfully!", shape))
			return result, nil
		},
		OnError: func(ctx context.Context, err error) {
			sink.Error(ctx, fmt.Sprintf("Error drawing '%s': %v", shape, err))
		},
	})
	if err != nil {
		s.logger.Warn("Could not start drawing", zap.String(logg.Shape, shape), zap.Error(err))
		return fmt.Sprintf("Error drawing '%s': %v", shape, err)
	}

	s.logger.Info("Drawing started", zap.String(logg.Shape, shape), zap.String(logg.TaskID, id))
	return fmt.Sprintf("Drawing of '%s' started. Your drawing is being processed. Poll %s%s for the outcome.",
		shape, DrawingResultsURI, id)
}

// Result returns the poll text for id.
func (s *Service) Result(id string) string {
	return s.registry.Poll(strings.TrimSpace(id))
}

type nopSink struct{}

func (nopSink) Info(context.Context, string)  {}
func (nopSink) Error(context.Context, string) {}
func (nopSink) Progress(context.Context, int) {}

func orNop(s Sink) Sink {
	if s == nil {
		return nopSink{}
	}
	return s
}
