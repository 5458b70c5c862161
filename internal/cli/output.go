package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"modelyaml/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML renders v through its JSON form so field names match the API.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if header != nil {
		table.SetHeader(header)
	}
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func writeResolved(w io.Writer, rm *types.ResolvedModel, output string) error {
	switch output {
	case "yaml":
		return writeYAML(w, rm)
	case "table":
		return resolvedTable(w, rm)
	default:
		return writeJSON(w, rm)
	}
}

func resolvedTable(w io.Writer, rm *types.ResolvedModel) error {
	table := newTable(w, nil)
	table.Append([]string{"MODEL", rm.Model})
	table.Append([]string{"PATH", strings.Join(rm.Path, " -> ")})
	if rm.Source != nil {
		src := rm.Source
		fits := "fits"
		if !src.FitsMemory {
			fits = "exceeds memory"
		}
		table.Append([]string{"SOURCE", fmt.Sprintf("%s #%d (%s)", src.BaseKey, src.SourceIndex, src.Source.Type)})
		table.Append([]string{"FORMAT", src.Format})
		table.Append([]string{"MEMORY", fmt.Sprintf("%s, %s", humanize.Bytes(uint64(max(src.MinMemoryUsageBytes, 0))), fits)})
	} else {
		table.Append([]string{"SOURCE", "none"})
	}
	for _, f := range rm.CustomFields {
		origin := "default"
		if f.Overridden {
			origin = "override"
		}
		table.Append([]string{"FIELD " + f.Key, fmt.Sprintf("%v (%s)", f.Value, origin)})
	}
	for _, k := range slices.Sorted(maps.Keys(rm.Bindings)) {
		table.Append([]string{"BINDING " + k, fmt.Sprint(rm.Bindings[k])})
	}
	for _, k := range rm.Config.Keys() {
		table.Append([]string{"CONFIG " + k, configString(rm.Config[k])})
	}
	for _, sg := range rm.Suggestions {
		table.Append([]string{"SUGGESTION", sg.Message})
	}
	for _, d := range rm.Diagnostics {
		msg := string(d.Kind) + ": " + d.Message
		if d.Key != "" {
			msg = string(d.Kind) + " [" + d.Key + "]: " + d.Message
		}
		table.Append([]string{"DIAGNOSTIC", msg})
	}
	table.Render()
	return nil
}

func configString(v types.ConfigValue) string {
	if v.IsToggle() {
		state := "off"
		if *v.Checked {
			state = "on"
		}
		return fmt.Sprintf("%v (%s)", v.Value, state)
	}
	return fmt.Sprint(v.Value)
}
