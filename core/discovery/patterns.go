package discovery

import (
	"regexp"
	"strings"
)

// entity matches a capitalized noun phrase, e.g. "Fuel Pump"
const entity = `([A-Z][A-Za-z0-9'-]*(?:\s+[A-Z][A-Za-z0-9'-]*)*)`

// pattern is one linguistic cue for a latent relationship. Specificity
// reflects how unambiguous the cue is: "is part of" almost always means
// a part-whole relation, "is related to" barely narrows anything down.
type pattern struct {
	relationType string
	specificity  float64
	re           *regexp.Regexp
}

var patterns = []pattern{
	{"part_of", 0.9, regexp.MustCompile(entity + `\s+(?:is|are)\s+(?:a\s+)?part\s+of\s+(?:the\s+|a\s+)?` + entity)},
	{"part_of", 0.85, regexp.MustCompile(entity + `\s+belongs?\s+to\s+(?:the\s+|a\s+)?` + entity)},
	{"similar_to", 0.8, regexp.MustCompile(entity + `\s+(?:is|are)\s+similar\s+to\s+(?:the\s+|a\s+)?` + entity)},
	{"similar_to", 0.75, regexp.MustCompile(entity + `\s+resembles?\s+(?:the\s+|a\s+)?` + entity)},
	{"causes", 0.85, regexp.MustCompile(entity + `\s+(?:causes?|leads?\s+to|results?\s+in)\s+(?:the\s+|a\s+)?` + entity)},
	{"related_to", 0.5, regexp.MustCompile(entity + `\s+(?:is|are)\s+(?:related|connected|linked)\s+to\s+(?:the\s+|a\s+)?` + entity)},
	{"parent_of", 0.85, regexp.MustCompile(entity + `\s+(?:is|are)\s+(?:the\s+)?parents?\s+of\s+(?:the\s+|a\s+)?` + entity)},
	{"child_of", 0.85, regexp.MustCompile(entity + `\s+(?:is|are)\s+(?:a\s+|the\s+)?(?:child|children)\s+of\s+(?:the\s+|a\s+)?` + entity)},
	{"collaborates_with", 0.8, regexp.MustCompile(entity + `\s+(?:collaborates?|works?)\s+with\s+(?:the\s+|a\s+)?` + entity)},
	{"depends_on", 0.85, regexp.MustCompile(entity + `\s+(?:depends?|relies|rely)\s+(?:on|upon)\s+(?:the\s+|a\s+)?` + entity)},
	{"influences", 0.75, regexp.MustCompile(entity + `\s+(?:influences?|affects?|impacts?)\s+(?:the\s+|a\s+)?` + entity)},
	{"opposite_of", 0.85, regexp.MustCompile(entity + `\s+(?:is|are)\s+(?:the\s+)?opposite\s+of\s+(?:the\s+|a\s+)?` + entity)},
}

// match is one raw pattern hit inside a reasoning chain
type match struct {
	source       string
	target       string
	relationType string
	specificity  float64
	distance     int
	evidence     string
}

// findMatches runs every pattern over the text and returns all hits with
// their entity pair, evidence span and in-text distance.
func findMatches(text string) []match {
	var matches []match
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			source := strings.TrimSpace(text[loc[2]:loc[3]])
			target := strings.TrimSpace(text[loc[4]:loc[5]])
			if source == "" || target == "" || source == target {
				continue
			}

			matches = append(matches, match{
				source:       source,
				target:       target,
				relationType: p.relationType,
				specificity:  p.specificity,
				distance:     loc[4] - loc[3],
				evidence:     strings.TrimSpace(text[loc[0]:loc[1]]),
			})
		}
	}
	return matches
}

// confidence scores one hit. Specificity of the cue dominates; signal
// strength blends repetition of the pair across the chain with how close
// together the two mentions sit.
func confidence(m match, pairHits int) float64 {
	cue := 0.5 + 0.25*float64(pairHits-1)
	if cue > 1.0 {
		cue = 1.0
	}

	distance := float64(m.distance)
	if distance > 200 {
		distance = 200
	}
	proximity := 1.0 - distance/200

	strength := (cue + proximity) / 2

	score := m.specificity*0.6 + strength*0.4
	if score > 1.0 {
		score = 1.0
	}
	return score
}
