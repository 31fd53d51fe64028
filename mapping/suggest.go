package mapping

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/goliatone/go-integration/catalog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Suggestion proposes a source field for a canonical field.
type Suggestion struct {
	FieldID string
	Source  string
	Score   float64
}

// source system suffixes that carry no meaning for matching
var ignoredSuffixes = []string{"__c", "_code", "code", "desc", "_id", "id"}

// NormalizeFieldName folds a field name to lowercase ASCII letters and digits:
// accents are stripped, separators dropped.
func NormalizeFieldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range ignoredSuffixes {
		if len(lower) > len(suffix) && strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// Similarity is the normalized Levenshtein similarity in [0,1].
func Similarity(a, b string) float64 {
	a, b = NormalizeFieldName(a), NormalizeFieldName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func score(field catalog.CanonicalField, source string) float64 {
	best := 0.0
	for _, target := range []string{field.ID, field.DisplayName} {
		for _, candidate := range []float64{
			Similarity(target, source),
			Similarity(stripSuffix(target), stripSuffix(source)),
		} {
			if candidate > best {
				best = candidate
			}
		}
	}
	return best
}

// Suggest pairs canonical fields with source fields by name similarity. Each
// field and each source is used at most once; higher scores win, ties break
// by schema order then source name.
func Suggest(fields []catalog.CanonicalField, sources []string) []Suggestion {
	type pair struct {
		fieldIdx int
		Suggestion
	}
	var pairs []pair
	for i, f := range fields {
		for _, s := range sources {
			if strings.TrimSpace(s) == "" {
				continue
			}
			pairs = append(pairs, pair{fieldIdx: i, Suggestion: Suggestion{FieldID: f.ID, Source: s, Score: score(f, s)}})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].fieldIdx != pairs[j].fieldIdx {
			return pairs[i].fieldIdx < pairs[j].fieldIdx
		}
		return pairs[i].Source < pairs[j].Source
	})

	usedField := make(map[string]bool)
	usedSource := make(map[string]bool)
	var out []Suggestion
	for _, p := range pairs {
		if p.Score <= 0 || usedField[p.FieldID] || usedSource[p.Source] {
			continue
		}
		usedField[p.FieldID] = true
		usedSource[p.Source] = true
		out = append(out, p.Suggestion)
	}

	order := make(map[string]int, len(fields))
	for i, f := range fields {
		order[f.ID] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		return order[out[i].FieldID] < order[out[j].FieldID]
	})
	return out
}
