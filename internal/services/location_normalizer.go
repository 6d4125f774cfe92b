package services

import (
	"strings"

	"woo-sync/internal/models"
)

// usStateCodes is the fixed set of two-letter codes recognized when
// stripping a trailing ", XX" state suffix from a location name.
var usStateCodes = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {},
	"IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {},
	"NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {},
	"OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {},
	"TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {},
	"WI": {}, "WY": {},
}

// locationAliases maps frequently mis-entered store names to their canonical
// form. Applied after suffix stripping, exact match only.
var locationAliases = map[string]string{
	"Easton Town Center Mall":    "Easton Town Center",
	"Polaris Fashion Place Mall": "Polaris Fashion Place",
	"Short North Arts District":  "Short North",
}

// similarityThreshold is the token-overlap ratio at which two location
// names are considered the same place.
const similarityThreshold = 0.8

// NormalizeLocationName canonicalizes a raw location string. It is pure and
// total: whitespace is trimmed and collapsed, a trailing ", XX" US state
// suffix is stripped, and the curated alias table is applied. Input with no
// applicable rule comes back trimmed but otherwise unchanged.
func NormalizeLocationName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")

	if idx := strings.LastIndex(name, ","); idx >= 0 {
		suffix := strings.ToUpper(strings.TrimSpace(name[idx+1:]))
		if _, ok := usStateCodes[suffix]; ok {
			name = strings.TrimSpace(name[:idx])
		}
	}

	if canonical, ok := locationAliases[name]; ok {
		return canonical
	}
	return name
}

// FindSimilarLocation fuzzy-matches target against candidates and returns
// the best-scoring one, or nil when nothing reaches the threshold.
// An exact match on normalized name wins immediately. Otherwise both names
// are tokenized on whitespace and tokens count as overlapping when either
// contains the other; the score is the overlap divided by the larger token
// set.
func FindSimilarLocation(target string, candidates []models.Location) *models.Location {
	normalized := NormalizeLocationName(target)

	for i := range candidates {
		if NormalizeLocationName(candidates[i].Name) == normalized {
			return &candidates[i]
		}
	}

	targetTokens := strings.Fields(strings.ToLower(normalized))
	if len(targetTokens) == 0 {
		return nil
	}

	var best *models.Location
	bestScore := 0.0
	for i := range candidates {
		candidateTokens := strings.Fields(strings.ToLower(NormalizeLocationName(candidates[i].Name)))
		score := tokenOverlapScore(targetTokens, candidateTokens)
		if score >= similarityThreshold && score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best
}

func tokenOverlapScore(target, candidate []string) float64 {
	if len(candidate) == 0 {
		return 0
	}

	overlap := 0
	for _, t := range target {
		for _, c := range candidate {
			if strings.Contains(t, c) || strings.Contains(c, t) {
				overlap++
				break
			}
		}
	}

	larger := len(target)
	if len(candidate) > larger {
		larger = len(candidate)
	}
	return float64(overlap) / float64(larger)
}
