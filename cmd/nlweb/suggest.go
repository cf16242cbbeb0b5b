package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reynard/nlweb/pkg/protocol"
)

type suggestFlags struct {
	maxSuggestions int
	minScore       float64
	currentPath    string
	selected       []string
	gitRepo        bool
	gitBranch      string
	noReasoning    bool
}

func (a *app) newSuggestCmd() *cobra.Command {
	var f suggestFlags

	cmd := &cobra.Command{
		Use:   "suggest <query...>",
		Short: "Suggest tools for a natural-language query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := a.start(cmd.Context())
			if err != nil {
				return err
			}

			req := f.request(strings.Join(args, " "))
			resp, err := svc.Suggest(cmd.Context(), req)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			renderSuggestions(a.stdout, resp)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&f.maxSuggestions, "max", "n", protocol.DefaultMaxSuggestions, "maximum number of suggestions (1-20)")
	flags.Float64Var(&f.minScore, "min-score", 0, "minimum score (0-100)")
	flags.StringVar(&f.currentPath, "path", "", "current path of the caller")
	flags.StringSliceVar(&f.selected, "item", nil, "selected item (repeatable)")
	flags.BoolVar(&f.gitRepo, "git", false, "caller is inside a git repository")
	flags.StringVar(&f.gitBranch, "branch", "", "current git branch")
	flags.BoolVar(&f.noReasoning, "no-reasoning", false, "omit reasoning strings")
	return cmd
}

// request builds a suggestion request. Context is attached only when a
// context flag was given.
func (f suggestFlags) request(query string) protocol.SuggestionRequest {
	req := protocol.SuggestionRequest{
		Query:          query,
		MaxSuggestions: f.maxSuggestions,
		MinScore:       f.minScore,
	}
	if f.noReasoning {
		include := false
		req.IncludeReasoning = &include
	}

	if f.currentPath == "" && len(f.selected) == 0 && !f.gitRepo && f.gitBranch == "" {
		return req
	}
	req.Context = &protocol.Context{
		CurrentPath:   f.currentPath,
		SelectedItems: f.selected,
	}
	if f.gitRepo || f.gitBranch != "" {
		req.Context.GitStatus = map[string]any{"isRepository": f.gitRepo}
		if f.gitBranch != "" {
			req.Context.GitStatus["branch"] = f.gitBranch
		}
	}
	return req
}
