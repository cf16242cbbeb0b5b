package mcpserver

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reynard/nlweb/internal/config"
	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/internal/registry"
	"github.com/reynard/nlweb/pkg/protocol"
)

// Tool names.
const (
	ToolSuggest             = "suggest_tools"
	ToolList                = "list_tools"
	ToolEnable              = "enable_tool"
	ToolDisable             = "disable_tool"
	ToolUnregister          = "unregister_tool"
	ToolClearCache          = "clear_cache"
	ToolPerformanceStats    = "performance_stats"
	ToolHealth              = "health"
	ToolVerification        = "verification"
	ToolRollback            = "rollback"
	ToolUpdateConfiguration = "update_configuration"
	ToolRegister            = "register_tool"
	ToolGet                 = "get_tool"
	ToolSuggestBatch        = "suggest_batch"
	ToolRecordUsage         = "record_usage"
	ToolInfo                = "info"
)

// maxBatchSize bounds suggest_batch.
const maxBatchSize = 20

type suggestInput struct {
	Query            string            `json:"query" jsonschema:"natural-language description of what the user wants to do"`
	Context          *protocol.Context `json:"context,omitempty" jsonschema:"current path, selected items and git status of the caller"`
	MaxSuggestions   int               `json:"max_suggestions,omitempty" jsonschema:"maximum number of suggestions, 1-20 (default 5)"`
	MinScore         float64           `json:"min_score,omitempty" jsonschema:"minimum relevance score, 0-100"`
	IncludeReasoning *bool             `json:"include_reasoning,omitempty" jsonschema:"include a reasoning string per suggestion (default true)"`
}

func (in suggestInput) request() protocol.SuggestionRequest {
	return protocol.SuggestionRequest{
		Query:            in.Query,
		Context:          in.Context,
		MaxSuggestions:   in.MaxSuggestions,
		MinScore:         in.MinScore,
		IncludeReasoning: in.IncludeReasoning,
	}
}

type batchInput struct {
	Requests []suggestInput `json:"requests" jsonschema:"suggestion requests, answered in order"`
}

type paramInput struct {
	Name        string `json:"name" jsonschema:"parameter name"`
	Type        string `json:"type,omitempty" jsonschema:"string, number, boolean, object or array (default string)"`
	Description string `json:"description,omitempty" jsonschema:"what the parameter means"`
	Required    bool   `json:"required,omitempty" jsonschema:"whether the tool needs this parameter"`
	Default     any    `json:"default,omitempty" jsonschema:"value used when the caller gives none"`
}

type registerInput struct {
	Name        string       `json:"name" jsonschema:"unique tool name"`
	Description string       `json:"description" jsonschema:"what the tool does"`
	Category    string       `json:"category" jsonschema:"tool category, e.g. git or file"`
	Path        string       `json:"path" jsonschema:"endpoint path the tool is invoked at"`
	Method      string       `json:"method,omitempty" jsonschema:"GET, POST, PUT or DELETE (default GET)"`
	Tags        []string     `json:"tags,omitempty" jsonschema:"keywords matched against queries"`
	Examples    []string     `json:"examples,omitempty" jsonschema:"example queries the tool answers"`
	Parameters  []paramInput `json:"parameters,omitempty" jsonschema:"tool parameters"`
	Enabled     *bool        `json:"enabled,omitempty" jsonschema:"whether the tool can be suggested (default true)"`
	Priority    *int         `json:"priority,omitempty" jsonschema:"0-100, higher is preferred (default 50)"`
	Timeout     *int         `json:"timeout,omitempty" jsonschema:"invocation timeout in milliseconds (default 30000)"`
}

func (in registerInput) tool() protocol.Tool {
	method := strings.ToUpper(in.Method)
	if method == "" {
		method = protocol.DefaultMethod
	}
	b := protocol.NewTool(in.Name, in.Description, in.Category).
		Endpoint(method, in.Path).
		Tags(in.Tags...).
		Examples(in.Examples...)
	for _, p := range in.Parameters {
		typ := p.Type
		if typ == "" {
			typ = protocol.TypeString
		}
		if p.Default != nil {
			b.AddParamWithDefault(p.Name, typ, p.Description, p.Default)
		} else {
			b.AddParam(p.Name, typ, p.Description, p.Required)
		}
	}
	if in.Priority != nil {
		b.Priority(*in.Priority)
	}
	if in.Timeout != nil {
		b.Timeout(*in.Timeout)
	}
	if in.Enabled != nil && !*in.Enabled {
		b.Disabled()
	}
	return b.Build()
}

type usageInput struct {
	Name            string  `json:"name" jsonschema:"tool name"`
	Success         bool    `json:"success" jsonschema:"whether the execution succeeded"`
	ExecutionTimeMs float64 `json:"execution_time_ms,omitempty" jsonschema:"how long the execution took in milliseconds"`
}

type listInput struct {
	Query    string   `json:"query,omitempty" jsonschema:"keyword search over names, descriptions, examples and tags"`
	Category string   `json:"category,omitempty" jsonschema:"only tools in this category"`
	Tags     []string `json:"tags,omitempty" jsonschema:"only tools carrying any of these tags"`
}

type nameInput struct {
	Name string `json:"name" jsonschema:"tool name"`
}

type emptyInput struct{}

type rollbackInput struct {
	Enable bool   `json:"enable" jsonschema:"true to disable suggestions, false to restore them"`
	Reason string `json:"reason,omitempty" jsonschema:"why rollback is being toggled"`
}

type updateInput struct {
	Changes map[string]any `json:"changes" jsonschema:"configuration keys to change, e.g. cache_ttl_s or rollback_enabled"`
}

type toolList struct {
	Tools []protocol.Tool `json:"tools"`
	Count int             `json:"count"`
}

type statusResult struct {
	Success bool   `json:"success"`
	Tool    string `json:"tool,omitempty"`
}

type statsResult struct {
	Performance protocol.PerformanceStats `json:"performance"`
	Cache       protocol.CacheStats       `json:"cache"`
	Registry    registry.Stats            `json:"registry"`
}

type toolDetail struct {
	Tool  protocol.Tool      `json:"tool"`
	Usage protocol.ToolUsage `json:"usage"`
}

type batchItem struct {
	Response *protocol.SuggestionResponse `json:"response,omitempty"`
	Error    *errorBody                   `json:"error,omitempty"`
}

type batchResult struct {
	Results []batchItem `json:"results"`
	Count   int         `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSuggest,
		Description: "Suggest the registered tools that best match a natural-language query, with extracted parameters and hints",
	}, s.suggest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSuggestBatch,
		Description: "Suggest tools for several queries at once; each result carries a response or an error",
	}, s.suggestBatch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolRegister,
		Description: "Register a tool, or replace the registered tool with the same name",
	}, s.register)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGet,
		Description: "Show one registered tool with its usage statistics",
	}, s.get)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolRecordUsage,
		Description: "Record that a suggested tool was executed, for usage statistics",
	}, s.recordUsage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolInfo,
		Description: "Service identity, state, request counters, registry summary and pattern groups",
	}, s.info)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolList,
		Description: "List registered tools by category or tags, or search them by keyword",
	}, s.list)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolEnable,
		Description: "Enable a registered tool so it can be suggested",
	}, s.toggle(ToolEnable, s.svc.EnableTool))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolDisable,
		Description: "Disable a registered tool so it is no longer suggested",
	}, s.toggle(ToolDisable, s.svc.DisableTool))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolUnregister,
		Description: "Remove a tool from the registry",
	}, s.toggle(ToolUnregister, s.svc.UnregisterTool))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolClearCache,
		Description: "Drop every cached suggestion response",
	}, s.clearCache)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolPerformanceStats,
		Description: "Request counters, cache hit rate and latency percentiles",
	}, s.performanceStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolHealth,
		Description: "Service health: healthy, degraded, unhealthy or disabled",
	}, s.health)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolVerification,
		Description: "Rollout verification checklist with an overall pass, warn or fail",
	}, s.verification)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolRollback,
		Description: "Turn emergency rollback on or off",
	}, s.rollback)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolUpdateConfiguration,
		Description: "Change configuration at runtime. Known keys: " + strings.Join(config.Keys(), ", "),
	}, s.updateConfiguration)
}

func (s *Server) suggest(ctx context.Context, _ *mcp.CallToolRequest, in suggestInput) (*mcp.CallToolResult, any, error) {
	resp, err := s.svc.Suggest(ctx, in.request())
	if err != nil {
		return s.errorResult(ToolSuggest, err)
	}
	return jsonResult(resp)
}

func (s *Server) suggestBatch(ctx context.Context, _ *mcp.CallToolRequest, in batchInput) (*mcp.CallToolResult, any, error) {
	switch n := len(in.Requests); {
	case n == 0:
		return s.errorResult(ToolSuggestBatch, apperrors.User(apperrors.CodeInvalidRequest, "requests must not be empty"))
	case n > maxBatchSize:
		return s.errorResult(ToolSuggestBatch, apperrors.Userf(apperrors.CodeInvalidRequest, "at most %d requests per batch, got %d", maxBatchSize, n))
	}

	reqs := make([]protocol.SuggestionRequest, len(in.Requests))
	for i, r := range in.Requests {
		reqs[i] = r.request()
	}

	out := batchResult{Results: make([]batchItem, len(reqs)), Count: len(reqs)}
	for i, r := range s.svc.SuggestBatch(ctx, reqs) {
		if r.Err != nil {
			body := newErrorBody(r.Err)
			out.Results[i].Error = &body
			continue
		}
		resp := r.Response
		out.Results[i].Response = &resp
	}
	return jsonResult(out)
}

func (s *Server) register(_ context.Context, _ *mcp.CallToolRequest, in registerInput) (*mcp.CallToolResult, any, error) {
	tool := in.tool()
	if res := registry.Validate(tool); !res.Valid {
		return s.errorResult(ToolRegister, apperrors.User(apperrors.CodeInvalidTool, res.Error()).WithContext("name", tool.Name))
	}
	if !s.svc.RegisterTool(tool) {
		return s.errorResult(ToolRegister, apperrors.User(apperrors.CodeInvalidTool, "tool rejected by registry").WithContext("name", tool.Name))
	}
	s.logger.Info().Str("tool", ToolRegister).Str("name", tool.Name).Msg("registry updated")
	return jsonResult(statusResult{Success: true, Tool: tool.Name})
}

func (s *Server) get(_ context.Context, _ *mcp.CallToolRequest, in nameInput) (*mcp.CallToolResult, any, error) {
	tool, err := s.svc.Tool(in.Name)
	if err != nil {
		return s.errorResult(ToolGet, err)
	}
	usage, _ := s.svc.Usage(in.Name)
	return jsonResult(toolDetail{Tool: tool, Usage: usage})
}

func (s *Server) recordUsage(_ context.Context, _ *mcp.CallToolRequest, in usageInput) (*mcp.CallToolResult, any, error) {
	if in.ExecutionTimeMs < 0 {
		return s.errorResult(ToolRecordUsage, apperrors.User(apperrors.CodeInvalidRequest, "execution_time_ms must not be negative"))
	}
	elapsed := time.Duration(in.ExecutionTimeMs * float64(time.Millisecond))
	if !s.svc.RecordUsage(in.Name, in.Success, elapsed) {
		return s.errorResult(ToolRecordUsage, apperrors.NotFound(apperrors.CodeToolNotFound, in.Name))
	}
	usage, _ := s.svc.Usage(in.Name)
	return jsonResult(usage)
}

func (s *Server) info(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.svc.Info())
}

func (s *Server) list(_ context.Context, _ *mcp.CallToolRequest, in listInput) (*mcp.CallToolResult, any, error) {
	var tools []protocol.Tool
	if in.Query != "" {
		tools = s.svc.SearchTools(in.Query, in.Category, in.Tags)
	} else {
		tools = s.svc.ListTools(in.Category, in.Tags)
	}
	if tools == nil {
		tools = []protocol.Tool{}
	}
	return jsonResult(toolList{Tools: tools, Count: len(tools)})
}

// toggle adapts a name-keyed registry operation. A false result means the
// tool does not exist.
func (s *Server) toggle(tool string, op func(string) bool) mcp.ToolHandlerFor[nameInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, in nameInput) (*mcp.CallToolResult, any, error) {
		if in.Name == "" {
			return s.errorResult(tool, apperrors.User(apperrors.CodeInvalidRequest, "name is required"))
		}
		if !op(in.Name) {
			return s.errorResult(tool, apperrors.NotFound(apperrors.CodeToolNotFound, in.Name))
		}
		s.logger.Info().Str("tool", tool).Str("name", in.Name).Msg("registry updated")
		return jsonResult(statusResult{Success: true, Tool: in.Name})
	}
}

func (s *Server) clearCache(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(statusResult{Success: s.svc.ClearCache()})
}

func (s *Server) performanceStats(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(statsResult{
		Performance: s.svc.PerformanceStats(),
		Cache:       s.svc.CacheStats(),
		Registry:    s.svc.RegistryStats(),
	})
}

func (s *Server) health(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.svc.Health())
}

func (s *Server) verification(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.svc.Verification())
}

func (s *Server) rollback(_ context.Context, _ *mcp.CallToolRequest, in rollbackInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.svc.SetRollback(protocol.RollbackRequest{Enable: in.Enable, Reason: in.Reason}))
}

func (s *Server) updateConfiguration(_ context.Context, _ *mcp.CallToolRequest, in updateInput) (*mcp.CallToolResult, any, error) {
	u, err := config.ParseUpdate(in.Changes)
	if err != nil {
		return s.errorResult(ToolUpdateConfiguration, err)
	}
	if err := s.svc.UpdateConfiguration(u); err != nil {
		return s.errorResult(ToolUpdateConfiguration, err)
	}
	return jsonResult(s.svc.Config())
}
