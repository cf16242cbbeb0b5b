package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reynard/nlweb/internal/config"
	"github.com/reynard/nlweb/internal/service"
	"github.com/reynard/nlweb/pkg/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// connect starts the server on an in-memory transport and returns a client
// session. Both sides are closed when the test ends.
func connect(t *testing.T) (*mcp.ClientSession, *service.Service) {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	svc := service.New(cfg, zerolog.Nop())
	require.NoError(t, svc.Initialize(ctx))

	srv := New(svc, cfg.Server, zerolog.Nop())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs, svc
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func TestListsAllTools(t *testing.T) {
	cs, _ := connect(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolSuggest, ToolList, ToolEnable, ToolDisable, ToolUnregister, ToolClearCache,
		ToolPerformanceStats, ToolHealth, ToolVerification, ToolRollback, ToolUpdateConfiguration,
		ToolRegister, ToolGet, ToolSuggestBatch, ToolRecordUsage, ToolInfo,
	}, names)
}

func TestSuggestTools(t *testing.T) {
	cs, _ := connect(t)

	res := call(t, cs, ToolSuggest, map[string]any{
		"query":           "show git status",
		"max_suggestions": 2,
		"context": map[string]any{
			"current_path": "/repo",
			"git_status":   map[string]any{"isRepository": true, "branch": "main"},
		},
	})
	require.False(t, res.IsError)

	var resp protocol.SuggestionResponse
	decode(t, res, &resp)
	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "git_status", resp.Suggestions[0].Tool.Name)
	assert.Equal(t, "show git status", resp.Query)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "/repo", resp.Suggestions[0].ParameterHints["path"].SuggestedValue)
}

func TestSuggestTools_InvalidRequest(t *testing.T) {
	cs, _ := connect(t)

	res := call(t, cs, ToolSuggest, map[string]any{"query": "q", "max_suggestions": 50})
	require.True(t, res.IsError)

	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "INVALID_REQUEST", body.Code)
	assert.Equal(t, "user", body.Category)
}

func TestToggleTools(t *testing.T) {
	cs, svc := connect(t)

	res := call(t, cs, ToolDisable, map[string]any{"name": "git_log"})
	require.False(t, res.IsError)
	assert.Len(t, svc.ListTools("", nil), 4)

	res = call(t, cs, ToolEnable, map[string]any{"name": "git_log"})
	require.False(t, res.IsError)

	res = call(t, cs, ToolUnregister, map[string]any{"name": "missing"})
	require.True(t, res.IsError)
	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "TOOL_NOT_FOUND", body.Code)
	assert.Equal(t, "not_found", body.Category)

	res = call(t, cs, ToolUnregister, map[string]any{"name": "git_log"})
	require.False(t, res.IsError)
	assert.Len(t, svc.ListTools("", nil), 4)
}

func TestListTools(t *testing.T) {
	cs, _ := connect(t)

	var list toolList
	decode(t, call(t, cs, ToolList, map[string]any{"category": "file"}), &list)
	assert.Equal(t, 2, list.Count)

	decode(t, call(t, cs, ToolList, map[string]any{"query": "caption"}), &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "generate_captions", list.Tools[0].Name)

	decode(t, call(t, cs, ToolList, map[string]any{"category": "nothing"}), &list)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Tools)
}

func TestStatsHealthAndCache(t *testing.T) {
	cs, svc := connect(t)
	call(t, cs, ToolSuggest, map[string]any{"query": "list files"})
	require.Equal(t, 1, svc.CacheStats().Size)

	var stats statsResult
	decode(t, call(t, cs, ToolPerformanceStats, nil), &stats)
	assert.Equal(t, int64(1), stats.Performance.TotalRequests)
	assert.Equal(t, 1, stats.Cache.Size)
	assert.Equal(t, 5, stats.Registry.TotalTools)

	var status statusResult
	decode(t, call(t, cs, ToolClearCache, nil), &status)
	assert.True(t, status.Success)
	assert.Zero(t, svc.CacheStats().Size)

	var health protocol.HealthStatus
	decode(t, call(t, cs, ToolHealth, nil), &health)
	assert.Equal(t, protocol.HealthHealthy, health.Status)
}

func TestRollbackAndVerification(t *testing.T) {
	cs, _ := connect(t)

	var ack protocol.RollbackResponse
	decode(t, call(t, cs, ToolRollback, map[string]any{"enable": true, "reason": "incident"}), &ack)
	assert.True(t, ack.RollbackEnabled)

	var v protocol.VerificationResponse
	decode(t, call(t, cs, ToolVerification, nil), &v)
	assert.True(t, v.ServiceAvailable)
	assert.NotEqual(t, protocol.CheckPass, v.OverallStatus)

	var health protocol.HealthStatus
	decode(t, call(t, cs, ToolHealth, nil), &health)
	assert.Equal(t, protocol.HealthDegraded, health.Status)
}

func TestUpdateConfiguration(t *testing.T) {
	cs, svc := connect(t)

	var cfg config.NLWebConfig
	res := call(t, cs, ToolUpdateConfiguration, map[string]any{
		"changes": map[string]any{"cache_ttl_s": 60, "canary_enabled": true},
	})
	require.False(t, res.IsError)
	decode(t, res, &cfg)
	assert.Equal(t, 60.0, cfg.CacheTTLSeconds)
	assert.True(t, cfg.CanaryEnabled)
	assert.Equal(t, 60.0, svc.CacheStats().TTLSeconds)

	res = call(t, cs, ToolUpdateConfiguration, map[string]any{
		"changes": map[string]any{"colour": "blue"},
	})
	require.True(t, res.IsError)
	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "UNKNOWN_CONFIG_KEY", body.Code)
}

func TestSuggestBatch(t *testing.T) {
	cs, svc := connect(t)

	res := call(t, cs, ToolSuggestBatch, map[string]any{
		"requests": []map[string]any{
			{"query": "show git status"},
			{"query": ""},
			{"query": "list files", "max_suggestions": 1},
		},
	})
	require.False(t, res.IsError)

	var out batchResult
	decode(t, res, &out)
	require.Equal(t, 3, out.Count)
	require.Len(t, out.Results, 3)

	require.NotNil(t, out.Results[0].Response)
	assert.Equal(t, "git_status", out.Results[0].Response.Suggestions[0].Tool.Name)

	assert.Nil(t, out.Results[1].Response)
	require.NotNil(t, out.Results[1].Error)
	assert.Equal(t, "INVALID_REQUEST", out.Results[1].Error.Code)

	require.NotNil(t, out.Results[2].Response)
	require.Len(t, out.Results[2].Response.Suggestions, 1)
	assert.Equal(t, "list_files", out.Results[2].Response.Suggestions[0].Tool.Name)

	ps := svc.PerformanceStats()
	assert.Equal(t, int64(2), ps.SuccessfulRequests)
	assert.Equal(t, int64(1), ps.FailedRequests)
}

func TestSuggestBatch_Limits(t *testing.T) {
	cs, _ := connect(t)

	res := call(t, cs, ToolSuggestBatch, map[string]any{"requests": []map[string]any{}})
	require.True(t, res.IsError)

	requests := make([]map[string]any, maxBatchSize+1)
	for i := range requests {
		requests[i] = map[string]any{"query": "list files"}
	}
	res = call(t, cs, ToolSuggestBatch, map[string]any{"requests": requests})
	require.True(t, res.IsError)
	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "INVALID_REQUEST", body.Code)
}

func TestRegisterGetAndRecordUsage(t *testing.T) {
	cs, svc := connect(t)

	res := call(t, cs, ToolRegister, map[string]any{
		"name":        "docker_ps",
		"description": "List running containers",
		"category":    "docker",
		"path":        "/api/docker/ps",
		"tags":        []string{"docker", "container"},
		"examples":    []string{"list containers"},
		"priority":    70,
		"parameters": []map[string]any{
			{"name": "all", "type": "boolean", "default": false},
			{"name": "filter"},
		},
	})
	require.False(t, res.IsError)
	var status statusResult
	decode(t, res, &status)
	assert.Equal(t, statusResult{Success: true, Tool: "docker_ps"}, status)
	assert.Len(t, svc.ListTools("docker", nil), 1)

	var detail toolDetail
	decode(t, call(t, cs, ToolGet, map[string]any{"name": "docker_ps"}), &detail)
	assert.Equal(t, "GET", detail.Tool.Method)
	assert.Equal(t, 70, detail.Tool.Priority)
	assert.True(t, detail.Tool.Enabled)
	require.Len(t, detail.Tool.Parameters, 2)
	assert.Equal(t, protocol.TypeString, detail.Tool.Parameters[1].Type)
	assert.Zero(t, detail.Usage.UsageCount)

	var usage protocol.ToolUsage
	decode(t, call(t, cs, ToolRecordUsage, map[string]any{"name": "docker_ps", "success": true, "execution_time_ms": 40}), &usage)
	assert.Equal(t, int64(1), usage.UsageCount)
	assert.Equal(t, int64(1), usage.SuccessCount)

	res = call(t, cs, ToolRecordUsage, map[string]any{"name": "missing", "success": false})
	require.True(t, res.IsError)
	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "TOOL_NOT_FOUND", body.Code)

	res = call(t, cs, ToolGet, map[string]any{"name": "missing"})
	require.True(t, res.IsError)
}

func TestRegisterTool_Invalid(t *testing.T) {
	cs, svc := connect(t)

	res := call(t, cs, ToolRegister, map[string]any{
		"name":        "broken",
		"description": "Out of range priority",
		"category":    "misc",
		"path":        "/api/broken",
		"priority":    150,
	})
	require.True(t, res.IsError)

	var body errorBody
	decode(t, res, &body)
	assert.Equal(t, "INVALID_TOOL", body.Code)
	assert.Equal(t, "user", body.Category)
	assert.Contains(t, body.Message, "priority")
	_, err := svc.Tool("broken")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	cs, _ := connect(t)

	var info service.Info
	decode(t, call(t, cs, ToolInfo, nil), &info)
	assert.Equal(t, "nlweb", info.Name)
	assert.True(t, info.Initialized)
	assert.Equal(t, 5, info.Tools)
	assert.Equal(t, 5, info.Registry.TotalTools)
	assert.Equal(t, []string{"git", "file", "caption", "search"}, info.PatternGroups)
}
