package vendors

import (
	"routesheet/internal"
	"routesheet/internal/util"
)

// Index holds the known-vendor registry in matchable form: a normalized-name
// map for exact hits plus a token inverted index for fuzzy candidates.
type Index struct {
	VendorsByID    map[int]internal.Vendor
	ByName         map[string][]internal.Vendor
	TokenToIDs     map[string]map[int]struct{}
	NormalizedByID map[int]string
}

func BuildIndex(vendors []internal.Vendor) *Index {
	idx := &Index{
		VendorsByID:    map[int]internal.Vendor{},
		ByName:         map[string][]internal.Vendor{},
		TokenToIDs:     map[string]map[int]struct{}{},
		NormalizedByID: map[int]string{},
	}

	for _, v := range vendors {
		idx.VendorsByID[v.ID] = v
		norm := util.NormalizeName(v.Name)
		idx.NormalizedByID[v.ID] = norm
		idx.ByName[norm] = append(idx.ByName[norm], v)

		for _, token := range util.Tokenize(v.Name) {
			if _, ok := idx.TokenToIDs[token]; !ok {
				idx.TokenToIDs[token] = map[int]struct{}{}
			}
			idx.TokenToIDs[token][v.ID] = struct{}{}
		}
	}

	return idx
}
