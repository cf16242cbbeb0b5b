package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reynard/nlweb/internal/catalog"
	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/pkg/protocol"
)

func (a *app) newToolsCmd() *cobra.Command {
	var (
		category string
		tags     []string
		search   string
		export   string
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List, search or export registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, _, err := a.start(cmd.Context())
			if err != nil {
				return err
			}

			var tools []protocol.Tool
			if search != "" {
				tools = svc.SearchTools(search, category, tags)
			} else {
				tools = svc.ListTools(category, tags)
			}

			if export != "" {
				data, err := catalog.Marshal(tools)
				if err != nil {
					return apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to encode tool catalog", apperrors.CategorySystem)
				}
				if err := os.WriteFile(export, data, 0o644); err != nil {
					return apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to write tool catalog", apperrors.CategorySystem).
						WithContext("path", export)
				}
				fmt.Fprintf(a.stdout, "exported %d tools to %s\n", len(tools), export)
				return nil
			}

			if a.jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tools)
			}
			renderTools(a.stdout, tools)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&category, "category", "c", "", "only tools in this category")
	flags.StringSliceVarP(&tags, "tag", "t", nil, "only tools carrying this tag (repeatable)")
	flags.StringVarP(&search, "search", "s", "", "keyword search")
	flags.StringVar(&export, "export", "", "write the listed tools as a YAML catalog")
	return cmd
}
