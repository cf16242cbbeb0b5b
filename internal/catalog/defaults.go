// Package catalog supplies the built-in tool set and loads additional tools
// from YAML catalog files.
package catalog

import "github.com/reynard/nlweb/pkg/protocol"

// DefaultTools returns the tools registered when the service starts.
func DefaultTools() []protocol.Tool {
	return []protocol.Tool{
		// === GIT TOOLS (2) ===
		protocol.NewTool("git_status", "Show the status of the git repository", "git").
			Endpoint("GET", "/api/git/status").
			Tags("git", "status", "repository", "version control").
			Examples("show git status", "what's the git status", "check repository status").
			AddParam("path", protocol.TypeString, "Repository path", false).
			Priority(80).
			Build(),

		protocol.NewTool("git_log", "Show git commit history", "git").
			Endpoint("GET", "/api/git/log").
			Tags("git", "log", "history", "commits").
			Examples("show git log", "git history", "recent commits").
			AddParam("path", protocol.TypeString, "Repository path", false).
			AddParamWithDefault("limit", protocol.TypeNumber, "Number of commits to show", 10).
			AddParam("branch", protocol.TypeString, "Branch to read history from", false).
			Priority(70).
			Build(),

		// === FILE TOOLS (2) ===
		protocol.NewTool("list_files", "List files in a directory", "file").
			Endpoint("GET", "/api/files/list").
			Tags("file", "list", "directory", "folder").
			Examples("list files", "show directory contents", "what files are here").
			AddParam("path", protocol.TypeString, "Directory path", false).
			AddParamWithDefault("recursive", protocol.TypeBoolean, "List subdirectories too", false).
			Priority(90).
			Build(),

		protocol.NewTool("read_file", "Read the contents of a file", "file").
			Endpoint("GET", "/api/files/read").
			Tags("file", "read", "content", "view").
			Examples("read file", "show file contents", "view file").
			AddParam("file", protocol.TypeString, "File to read", true).
			Priority(85).
			Build(),

		// === CAPTION TOOLS (1) ===
		protocol.NewTool("generate_captions", "Generate captions for images", "caption").
			Endpoint("POST", "/api/caption/generate").
			Tags("caption", "image", "describe", "generate").
			Examples("generate captions", "describe images", "caption these pictures").
			AddParam("images", protocol.TypeArray, "Image paths to caption", true).
			AddParamWithDefault("model", protocol.TypeString, "Captioning model", "default").
			Priority(75).
			Build(),
	}
}
