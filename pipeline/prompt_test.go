package pipeline

import (
	"testing"

	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/vectorstore"
	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	agent := &models.Agent{
		PromptTemplate: "Heading: {{heading}}\nText: {{section}}\nPrior: {{context}}\nRefs: {{passages}}",
	}
	section := vectorstore.Section{Heading: "# Scope", Content: "All vendors must comply."}
	passages := []vectorstore.Passage{{DocumentID: "doc-1", ChunkIndex: 3, Excerpt: "vendor policy"}}

	out := RenderPrompt(agent, section, []string{"earlier analysis"}, passages)

	assert.Contains(t, out, "Heading: # Scope")
	assert.Contains(t, out, "Text: All vendors must comply.")
	assert.Contains(t, out, "earlier analysis")
	assert.Contains(t, out, "vendor policy")
	assert.Contains(t, out, "chunk 3")
}

func TestRenderPromptEmptyContextAndPassages(t *testing.T) {
	agent := &models.Agent{PromptTemplate: "{{context}}|{{passages}}"}

	out := RenderPrompt(agent, vectorstore.Section{Content: "x"}, nil, nil)
	assert.Equal(t, "(no prior analysis)|(no reference passages)", out)
}

func TestRenderPromptLeavesUnknownPlaceholders(t *testing.T) {
	agent := &models.Agent{PromptTemplate: "{{section}} {{unknown}}"}

	out := RenderPrompt(agent, vectorstore.Section{Content: "text"}, nil, nil)
	assert.Equal(t, "text {{unknown}}", out)
}

func TestSystemPromptPerRole(t *testing.T) {
	actor := SystemPrompt(&models.Agent{Name: "A", Role: models.AgentRoleActor})
	critic := SystemPrompt(&models.Agent{Name: "B", Role: models.AgentRoleCritic})
	qa := SystemPrompt(&models.Agent{Name: "C", Role: models.AgentRoleQA})

	assert.Contains(t, actor, "draft compliance test items")
	assert.Contains(t, critic, "review draft compliance test items")
	assert.Contains(t, qa, "finalize compliance test plans")
	assert.NotEqual(t, actor, critic)
	assert.NotEqual(t, critic, qa)
}
