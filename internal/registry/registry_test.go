package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reynard/nlweb/pkg/protocol"
)

func newTestRegistry() *ToolRegistry {
	return New(zerolog.Nop())
}

func gitStatus() protocol.Tool {
	return protocol.NewTool("git_status", "Show the status of the git repository", "git").
		Endpoint("GET", "/api/git/status").
		Tags("git", "status").
		Examples("show git status").
		Priority(80).
		Build()
}

func listFiles() protocol.Tool {
	return protocol.NewTool("list_files", "List files in a directory", "file").
		Endpoint("GET", "/api/files/list").
		Tags("file", "list", "directory").
		Examples("list files", "what files are here").
		AddParam("path", protocol.TypeString, "Directory path", false).
		Priority(90).
		Build()
}

func names(tools []protocol.Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}

func TestRegister(t *testing.T) {
	r := newTestRegistry()

	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))

	got, ok := r.Get("git_status")
	require.True(t, ok)
	assert.Equal(t, 80, got.Priority)
	assert.Equal(t, []string{"git_status", "list_files"}, names(r.GetAll()))
	assert.Equal(t, []string{"file", "git"}, r.Categories())
	assert.Equal(t, []string{"directory", "file", "git", "list", "status"}, r.Tags())
}

func TestRegister_Invalid(t *testing.T) {
	r := newTestRegistry()

	bad := gitStatus()
	bad.Priority = 101
	assert.False(t, r.Register(bad))

	bad = gitStatus()
	bad.Method = "PATCH"
	assert.False(t, r.Register(bad))

	assert.Zero(t, r.Len())
	assert.Empty(t, r.Categories())
}

func TestRegister_ReplaceCleansOldBuckets(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))

	moved := gitStatus()
	moved.Category = "vcs"
	moved.Tags = []string{"vcs"}
	moved.Description = "replacement"
	require.True(t, r.Register(moved))

	assert.Equal(t, 2, r.Len(), "same name never stored twice")
	assert.Empty(t, r.GetByCategory("git"))
	assert.Empty(t, r.GetByTag("status"))
	assert.NotContains(t, r.Categories(), "git")
	assert.NotContains(t, r.Tags(), "git")
	assert.Equal(t, []string{"git_status"}, names(r.GetByCategory("vcs")))
	assert.Equal(t, []string{"git_status", "list_files"}, names(r.GetAll()), "replacement keeps position")

	got, _ := r.Get("git_status")
	assert.Equal(t, "replacement", got.Description)
}

func TestRegister_ReplaceSameCategory(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(gitStatus()))

	assert.Len(t, r.GetByCategory("git"), 1)
	assert.Len(t, r.GetByTag("git"), 1)
}

func TestRegister_DuplicateTagsIndexedOnce(t *testing.T) {
	r := newTestRegistry()
	tool := gitStatus()
	tool.Tags = []string{"git", "git"}
	require.True(t, r.Register(tool))

	assert.Len(t, r.GetByTag("git"), 1)
	require.True(t, r.Unregister("git_status"))
	assert.Empty(t, r.Tags())
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))

	assert.True(t, r.Unregister("git_status"))
	assert.False(t, r.Unregister("git_status"))

	_, ok := r.Get("git_status")
	assert.False(t, ok)
	assert.Empty(t, r.GetByCategory("git"))
	assert.Empty(t, r.GetByTag("status"))
	assert.Equal(t, []string{"file"}, r.Categories())
	assert.Equal(t, []string{"directory", "file", "list"}, r.Tags())
	assert.Equal(t, []string{"list_files"}, names(r.GetEnabled()))
}

func TestEnableDisable(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))

	assert.True(t, r.Disable("git_status"))
	assert.Equal(t, []string{"list_files"}, names(r.GetEnabled()))
	got, _ := r.Get("git_status")
	assert.False(t, got.Enabled)

	assert.True(t, r.Enable("git_status"))
	assert.Equal(t, []string{"git_status", "list_files"}, names(r.GetEnabled()))

	assert.False(t, r.Enable("missing"))
	assert.False(t, r.Disable("missing"))
}

func TestRegister_DisabledTool(t *testing.T) {
	r := newTestRegistry()
	tool := gitStatus()
	tool.Enabled = false
	require.True(t, r.Register(tool))

	assert.Empty(t, r.GetEnabled())
	assert.Len(t, r.GetAll(), 1)
	assert.Len(t, r.GetByCategory("git"), 1)
}

func TestDefensiveCopies(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))

	all := r.GetAll()
	all[0].Name = "mutated"
	all[0].Tags[0] = "mutated"

	byTag := r.GetByTag("git")
	byTag[0].Examples[0] = "mutated"

	got, _ := r.Get("git_status")
	assert.Equal(t, "git", got.Tags[0])
	assert.Equal(t, "show git status", got.Examples[0])
	assert.Equal(t, []string{"git_status"}, names(r.GetAll()))
}

func TestRecordUsage(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Disable("git_status"))

	assert.True(t, r.RecordUsage("git_status", true, 10*time.Millisecond))
	assert.True(t, r.RecordUsage("git_status", false, 20*time.Millisecond))
	assert.True(t, r.RecordUsage("git_status", true, 30*time.Millisecond))
	assert.False(t, r.RecordUsage("missing", true, time.Millisecond))

	u, ok := r.Usage("git_status")
	require.True(t, ok)
	assert.Equal(t, int64(3), u.UsageCount)
	assert.Equal(t, int64(2), u.SuccessCount)
	assert.Equal(t, int64(1), u.FailureCount)
	assert.InDelta(t, 20.0, u.AvgExecutionMs, 1e-9)
	assert.False(t, u.LastUsed.IsZero())

	require.True(t, r.Unregister("git_status"))
	_, ok = r.Usage("git_status")
	assert.False(t, ok)
}

func TestUsage_NeverUsed(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))

	u, ok := r.Usage("git_status")
	require.True(t, ok)
	assert.Zero(t, u.UsageCount)
}

func TestStats(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))
	require.True(t, r.Disable("list_files"))

	s := r.Stats()
	assert.Equal(t, 2, s.TotalTools)
	assert.Equal(t, 1, s.EnabledTools)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 5, s.Tags)
	assert.Equal(t, map[string]int{"git": 1, "file": 1}, s.ToolsByCategory)
}

func TestSearch(t *testing.T) {
	r := newTestRegistry()
	require.True(t, r.Register(gitStatus()))
	require.True(t, r.Register(listFiles()))
	require.True(t, r.Register(protocol.NewTool("read_file", "Read the contents of a file", "file").
		Endpoint("GET", "/api/files/read").
		Tags("file", "read").
		Build()))

	tests := []struct {
		name     string
		query    string
		category string
		tags     []string
		want     []string
	}{
		{"ranked by score", "file", "", nil, []string{"list_files", "read_file"}},
		{"description only", "repository", "", nil, []string{"git_status"}},
		{"example only", "here", "", nil, []string{"list_files"}},
		{"case insensitive", "GIT", "", nil, []string{"git_status"}},
		{"category filter", "file", "git", nil, []string{}},
		{"tag filter", "", "", []string{"read", "status"}, []string{"git_status", "read_file"}},
		{"empty query returns all", "", "", nil, []string{"git_status", "list_files", "read_file"}},
		{"no match", "zzz", "", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(r.Search(tt.query, tt.category, tt.tags)))
		})
	}
}

func TestConcurrentMutation(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tool := gitStatus()
				tool.Name = fmt.Sprintf("tool_%d", i%10)
				tool.Category = fmt.Sprintf("cat_%d", w%3)
				r.Register(tool)
				r.GetByCategory(tool.Category)
				r.Search("git", "", nil)
				if i%7 == 0 {
					r.Unregister(tool.Name)
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, c := range r.Categories() {
		n := len(r.GetByCategory(c))
		assert.Positive(t, n, "no empty buckets")
		total += n
	}
	assert.Equal(t, r.Len(), total, "every tool sits in exactly one category bucket")
}
