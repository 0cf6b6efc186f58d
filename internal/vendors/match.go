package vendors

import (
	"sort"

	"routesheet/internal"
	"routesheet/internal/util"
)

// Matcher canonicalizes OCR'd vendor lines against the registry so
// "ACNE HARDWARE" and "ACME HARDWARE" land on the same vendor for duplicate
// detection.
type Matcher struct {
	index     *Index
	threshold float64
}

func NewMatcher(registry []internal.Vendor, threshold float64) *Matcher {
	return &Matcher{index: BuildIndex(registry), threshold: threshold}
}

type candidate struct {
	id    int
	score float64
}

// Canonicalize returns the registry vendor an extracted name resolves to,
// or false when nothing clears the threshold.
func (m *Matcher) Canonicalize(raw string) (internal.Vendor, bool) {
	norm := util.NormalizeName(raw)
	if norm == "" {
		return internal.Vendor{}, false
	}

	if exact := m.index.ByName[norm]; len(exact) > 0 {
		return exact[0], true
	}

	best := m.rank(norm)
	if len(best) == 0 || best[0].score < m.threshold {
		return internal.Vendor{}, false
	}
	return m.index.VendorsByID[best[0].id], true
}

func (m *Matcher) rank(norm string) []candidate {
	queryTokens := util.Tokenize(norm)
	ids := map[int]struct{}{}
	for _, token := range queryTokens {
		for id := range m.index.TokenToIDs[token] {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		for id := range m.index.VendorsByID {
			ids[id] = struct{}{}
		}
	}

	out := make([]candidate, 0, len(ids))
	for id := range ids {
		out = append(out, candidate{id: id, score: score(norm, m.index.NormalizedByID[id], queryTokens)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}

func score(query, candidate string, queryTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	candidateTokens := util.Tokenize(candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}
