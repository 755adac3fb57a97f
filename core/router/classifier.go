package router

import (
	"strings"

	"github.com/adaptive-rag/metagraph/model"
)

// Keyword cues per query type. Structured and constraint cues are strong
// surface signals; multi-hop cues point at path questions; everything
// without a cue falls back to semantic.
var (
	structuredCues = []string{
		"list", "show me", "show all", "enumerate", "what are the", "give me all",
	}
	multiHopCues = []string{
		"relationship between", "connection between", "connected to", "path from",
		"how does", "relate to", "linked to", "through",
	}
	constraintCues = []string{
		"where", "that have", "with at least", "more than", "less than",
		"only", "filter", "excluding", "before", "after",
	}
)

// classificationOrder breaks score ties: the more specific surface forms
// win over the semantic fallback.
var classificationOrder = []model.QueryType{
	model.QueryTypeStructured,
	model.QueryTypeConstraint,
	model.QueryTypeMultiHop,
	model.QueryTypeSemantic,
}

// Classify assigns a query type from surface cues. A query matching no
// cue is semantic.
func Classify(queryText string) model.QueryType {
	text := strings.ToLower(queryText)

	scores := map[model.QueryType]int{
		model.QueryTypeStructured: countCues(text, structuredCues),
		model.QueryTypeMultiHop:   countCues(text, multiHopCues),
		model.QueryTypeConstraint: countCues(text, constraintCues),
	}

	best := model.QueryTypeSemantic
	bestScore := 0
	for _, queryType := range classificationOrder {
		if scores[queryType] > bestScore {
			best = queryType
			bestScore = scores[queryType]
		}
	}

	return best
}

func countCues(text string, cues []string) int {
	count := 0
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			count++
		}
	}
	return count
}
