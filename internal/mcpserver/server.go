// Package mcpserver exposes the NLWeb service as MCP tools.
//
// Every handler is a thin adapter: decode the typed input, call the service,
// and encode the result as JSON text content. Service errors become MCP tool
// error results carrying the AppError code and category, so clients can tell
// caller mistakes from unavailability.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/reynard/nlweb/internal/config"
	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/internal/logging"
	"github.com/reynard/nlweb/internal/service"
)

// Server binds a Service to an MCP server.
type Server struct {
	svc    *service.Service
	server *mcp.Server
	logger zerolog.Logger
}

// New creates an MCP server exposing svc.
func New(svc *service.Service, info config.ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		svc: svc,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    info.Name,
			Version: info.Version,
		}, nil),
		logger: logging.Component(logger, "mcp"),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// errorBody is the JSON payload of a tool error result.
type errorBody struct {
	Code     string `json:"code,omitempty"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// jsonResult encodes v as the text content of a successful result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func newErrorBody(err error) errorBody {
	return errorBody{
		Code:     apperrors.GetCode(err),
		Category: apperrors.GetCategory(err).String(),
		Message:  err.Error(),
	}
}

// errorResult converts err into a tool error result. System failures are
// logged at error level, caller mistakes at debug.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	body := newErrorBody(err)
	level := zerolog.DebugLevel
	if apperrors.IsCategory(err, apperrors.CategorySystem) {
		level = zerolog.ErrorLevel
	}
	s.logger.WithLevel(level).Str("tool", tool).Str("code", body.Code).Msg(body.Message)

	data, _ := json.Marshal(body)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
