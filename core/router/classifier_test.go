package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adaptive-rag/metagraph/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected model.QueryType
	}{
		{"Plain question is semantic", "why does the engine overheat", model.QueryTypeSemantic},
		{"Empty query is semantic", "", model.QueryTypeSemantic},
		{"List query is structured", "list every component in the drivetrain", model.QueryTypeStructured},
		{"Show-me query is structured", "show me all suppliers", model.QueryTypeStructured},
		{"Path question is multi-hop", "what is the relationship between the pump and the radiator", model.QueryTypeMultiHop},
		{"Connection question is multi-hop", "how is the alternator connected to the battery", model.QueryTypeMultiHop},
		{"Filter query is constraint", "components that have more than two failure reports", model.QueryTypeConstraint},
		{"Where clause is constraint", "parts where the supplier is overseas", model.QueryTypeConstraint},
		{"Case is ignored", "LIST every part", model.QueryTypeStructured},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.query))
		})
	}

	t.Run("More cues win over fewer", func(t *testing.T) {
		// One structured cue against two constraint cues
		query := "list parts where the weight is more than five kilograms"
		assert.Equal(t, model.QueryTypeConstraint, Classify(query))
	})

	t.Run("Equal cue counts break toward the more specific type", func(t *testing.T) {
		// One structured cue and one constraint cue
		query := "list parts where applicable"
		assert.Equal(t, model.QueryTypeStructured, Classify(query))
	})
}
