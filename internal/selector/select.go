package selector

import (
	"fmt"
	"slices"
	"strings"

	"modelyaml/pkg/types"
)

// Candidate is one (concrete base, source) pair considered for selection.
type Candidate struct {
	BaseKey     string
	SourceIndex int
	Source      types.Source
	Variant     Variant
	Format      string
	MinMemory   int64
	Params      string
	Fits        bool

	order      int // declaration order across all bases
	formatRank int
	paramMatch bool
}

// Selection converts the candidate into the public result type.
func (c Candidate) Selection() *types.Selection {
	return &types.Selection{
		BaseKey:             c.BaseKey,
		SourceIndex:         c.SourceIndex,
		Source:              types.Source{Tagged: c.Source.Tagged.Clone()},
		Format:              c.Format,
		MinMemoryUsageBytes: c.MinMemory,
		ParamsString:        c.Params,
		FitsMemory:          c.Fits,
	}
}

// Select picks the best source for caps among the concrete bases. meta is the
// merged metadata of the chain; it supplies defaults for sources that do not
// declare a format or memory requirement. A nil selection with a
// NoCompatibleSource diagnostic is returned when nothing is runnable.
func Select(bases []types.ConcreteBase, meta types.MetadataOverrides, caps types.Capabilities) (*types.Selection, []types.Diagnostic) {
	ranked, diags := Rank(bases, meta, caps)
	if len(ranked) == 0 {
		diags = append(diags, types.Diagnostic{
			Kind:    types.DiagNoCompatibleSource,
			Message: noCompatibleMessage(caps),
		})
		return nil, diags
	}
	return ranked[0].Selection(), diags
}

// Rank returns every compatible candidate, best first, along with diagnostics
// for sources that had to be skipped.
func Rank(bases []types.ConcreteBase, meta types.MetadataOverrides, caps types.Capabilities) ([]Candidate, []types.Diagnostic) {
	formatRank := make(map[string]int, len(caps.SupportedFormats))
	for i, f := range caps.SupportedFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, dup := formatRank[f]; !dup {
			formatRank[f] = i
		}
	}
	var metaFormat string
	if ct := meta.CompatibilityTypes.Value(); len(ct) == 1 {
		metaFormat = strings.ToLower(ct[0])
	}
	preferred := strings.ToLower(strings.TrimSpace(caps.PreferredParamSize))

	var diags []types.Diagnostic
	var out []Candidate
	order := 0
	for _, cb := range bases {
		for i, src := range cb.Sources {
			order++
			v, err := Decode(src)
			if err != nil {
				diags = append(diags, types.Diagnostic{
					Kind:    types.DiagInvalidSource,
					Key:     sourceKey(cb.Key, i),
					Message: err.Error(),
				})
				continue
			}
			if _, unknown := v.(UnknownSource); unknown {
				diags = append(diags, types.Diagnostic{
					Kind:    types.DiagUnknownSourceType,
					Key:     sourceKey(cb.Key, i),
					Message: fmt.Sprintf("source type %q is not supported; skipped", src.Type),
				})
				continue
			}
			h := v.SelectionHints()
			format := strings.ToLower(h.Format)
			if format == "" {
				format = inferFormat(v.Identity(), cb.Key)
			}
			if format == "" {
				format = metaFormat
			}
			rank, ok := formatRank[format]
			if !ok {
				continue
			}
			mem := h.MinMemoryUsageBytes
			if mem <= 0 {
				mem = meta.MinMemoryUsageBytes.Value()
			}
			params := h.ParamsString
			if params == "" {
				params = h.Quantization
			}
			c := Candidate{
				BaseKey:     cb.Key,
				SourceIndex: i,
				Source:      src,
				Variant:     v,
				Format:      format,
				MinMemory:   mem,
				Params:      params,
				Fits:        caps.AvailableMemoryBytes <= 0 || mem <= caps.AvailableMemoryBytes,
				order:       order,
				formatRank:  rank,
			}
			if preferred != "" {
				c.paramMatch = strings.EqualFold(h.ParamsString, preferred) ||
					strings.EqualFold(h.Quantization, preferred) ||
					strings.Contains(strings.ToLower(cb.Key), preferred)
			}
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, compare)
	return out, diags
}

// compare orders candidates by format preference, then memory fit, then
// preferred parameter size, then memory (largest fitting, or smallest
// non-fitting), then declaration order.
func compare(a, b Candidate) int {
	if a.formatRank != b.formatRank {
		return a.formatRank - b.formatRank
	}
	if a.Fits != b.Fits {
		if a.Fits {
			return -1
		}
		return 1
	}
	if a.paramMatch != b.paramMatch {
		if a.paramMatch {
			return -1
		}
		return 1
	}
	if a.MinMemory != b.MinMemory {
		less := a.MinMemory < b.MinMemory
		if a.Fits {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	}
	return a.order - b.order
}

func sourceKey(baseKey string, i int) string {
	return fmt.Sprintf("%s#%d", baseKey, i)
}

func noCompatibleMessage(caps types.Capabilities) string {
	if len(caps.SupportedFormats) == 0 {
		return "no supported formats were reported by the runtime"
	}
	return fmt.Sprintf("no source matches supported formats [%s]", strings.Join(caps.SupportedFormats, ", "))
}
