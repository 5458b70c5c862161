package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modelyaml/internal/resolver"
	"modelyaml/pkg/types"
)

func newResolveCmd(s *settings) *cobra.Command {
	var (
		formats   []string
		memory    string
		paramSize string
		sets      []string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "resolve <model>",
		Short: "Resolve a model for the given runtime capabilities",
		Example: "  modelyaml resolve qwen/qwen3-8b --format gguf --memory 8GB\n" +
			"  modelyaml resolve qwen/qwen3-8b --set enableThinking=false -o table",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, "json", "yaml", "table"); err != nil {
				return err
			}
			m, err := s.loadManager()
			if err != nil {
				return err
			}
			req := types.ResolveRequest{Model: args[0]}
			flags := cmd.Flags()
			if flags.Changed("format") || flags.Changed("memory") || flags.Changed("param-size") {
				caps := m.DefaultCapabilities()
				if flags.Changed("format") {
					caps.SupportedFormats = formats
				}
				if flags.Changed("memory") {
					n, err := humanize.ParseBytes(memory)
					if err != nil {
						return fmt.Errorf("invalid --memory %q: %w", memory, err)
					}
					caps.AvailableMemoryBytes = int64(n)
				}
				caps.PreferredParamSize = paramSize
				req.Capabilities = &caps
			}
			if req.Overrides, err = parseSets(sets, declaredFieldTypes(m.Store().Snapshot(), args[0])); err != nil {
				return err
			}
			rm, err := m.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeResolved(s.out, rm, output)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&formats, "format", nil, "Supported format, most preferred first (repeatable)")
	f.StringVar(&memory, "memory", "", "Available memory, e.g. 8GB or 6GiB")
	f.StringVar(&paramSize, "param-size", "", "Preferred parameter size or quantization, e.g. 8B or Q4_K_M")
	f.StringArrayVar(&sets, "set", nil, "Custom field override key=value (repeatable)")
	f.StringVarP(&output, "output", "o", "json", "Output format: json|yaml|table")
	return cmd
}

// parseSets turns key=value pairs into overrides. Values for declared string
// fields stay strings; otherwise the literals true and false become booleans.
func parseSets(sets []string, fieldTypes map[string]types.FieldType) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(sets))
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		if fieldTypes[k] != types.FieldString && (v == "true" || v == "false") {
			out[k] = v == "true"
			continue
		}
		out[k] = v
	}
	return out, nil
}

// declaredFieldTypes returns the custom field types the model inherits, or
// nil when its chain does not resolve.
func declaredFieldTypes(defs resolver.Definitions, id string) map[string]types.FieldType {
	path, err := resolver.Chain(defs, id)
	if err != nil {
		return nil
	}
	chain, err := resolver.Lookup(defs, path)
	if err != nil {
		return nil
	}
	out := map[string]types.FieldType{}
	for _, f := range resolver.Merge(chain).CustomFields {
		out[f.Key] = f.Type
	}
	return out
}

func checkOutput(got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("invalid output %q: want %s", got, strings.Join(allowed, "|"))
}
