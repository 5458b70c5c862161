package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"modelyaml/internal/common/fsutil"
	"modelyaml/internal/registry"
	"modelyaml/internal/validate"
	"modelyaml/pkg/types"
)

type fileDocs struct {
	path string
	docs []any
}

func newValidateCmd(s *settings) *cobra.Command {
	var standalone bool
	cmd := &cobra.Command{
		Use:   "validate <file...>",
		Short: "Check definition files for structural problems",
		Long: "Checks each definition against the schema and the structural rules. " +
			"References are resolved against the other given files and, unless --standalone is set, " +
			"the definitions directory.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []fileDocs
			var defs []types.ModelDefinition
			failed := false
			for _, p := range args {
				b, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				docs, err := registry.DecodeDocuments(filepath.Ext(p), b)
				if err != nil {
					fmt.Fprintf(s.out, "%s: %v\n", p, err)
					failed = true
					continue
				}
				files = append(files, fileDocs{path: p, docs: docs})
				for _, doc := range docs {
					if def, err := registry.FromTree(doc); err == nil {
						defs = append(defs, def)
					}
				}
			}

			cat, err := catalogFor(s, defs, standalone)
			if err != nil {
				fmt.Fprintf(s.out, "catalog: %v\n", err)
				failed = true
			}
			for _, f := range files {
				for i, doc := range f.docs {
					var problems []types.Problem
					if cat != nil {
						problems = validate.Document(doc, cat)
					} else {
						problems = validate.Document(doc, nil)
					}
					name := docName(doc, i)
					if len(problems) == 0 {
						fmt.Fprintf(s.out, "%s: %s: ok\n", f.path, name)
						continue
					}
					failed = true
					for _, p := range problems {
						at := p.Path
						if at == "" {
							at = "(document)"
						}
						fmt.Fprintf(s.out, "%s: %s: %s: %s\n", f.path, name, at, p.Message)
					}
				}
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&standalone, "standalone", false, "Do not load the definitions directory")
	return cmd
}

// catalogFor builds the definitions references are checked against: the
// definitions directory (when present) overlaid with defs.
func catalogFor(s *settings, defs []types.ModelDefinition, standalone bool) (*registry.Snapshot, error) {
	var all []types.ModelDefinition
	if !standalone {
		if dir, err := fsutil.ExpandHome(s.cfg.DefinitionsDir); err == nil && fsutil.IsDir(dir) {
			loaded, err := registry.LoadDir(dir)
			if err != nil {
				return nil, err
			}
			all = append(all, loaded...)
		}
	}
	store, err := registry.NewStore(all...)
	if err != nil {
		return nil, err
	}
	snap, err := store.PutAll(defs)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func docName(doc any, i int) string {
	if m, ok := doc.(map[string]any); ok {
		if id, ok := m["model"].(string); ok && id != "" {
			return id
		}
	}
	return fmt.Sprintf("document %d", i)
}
