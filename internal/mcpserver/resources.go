package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"cadmcp/internal/drawing"
	"cadmcp/pkg/logg"
)

const mimeText = "text/plain"

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(drawing.SearchResultsURI+"{request_id}", "search_results",
			mcp.WithTemplateDescription("Get the search results for a given request ID."),
			mcp.WithTemplateMIMEType(mimeText),
		),
		s.readResult(drawing.SearchResultsURI),
	)
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(drawing.DrawingResultsURI+"{request_id}", "drawing_results",
			mcp.WithTemplateDescription("Get the outcome of a drawing request."),
			mcp.WithTemplateMIMEType(mimeText),
		),
		s.readResult(drawing.DrawingResultsURI),
	)
}

// readResult serves the poll text for the request id at the end of the
// URI. Unknown ids get the not-found text, not an error.
func (s *Server) readResult(prefix string) func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := req.Params.URI
		id := strings.TrimPrefix(uri, prefix)

		s.logger.Debug("Resource read", zap.String(logg.Operation, "ReadResource"), zap.String(logg.TaskID, id))

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: mimeText,
				Text:     s.drawing.Result(id),
			},
		}, nil
	}
}
