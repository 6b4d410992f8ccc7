package pipeline

import (
	"fmt"
	"strings"

	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/vectorstore"
)

// Prompt templates support these placeholders:
//
//	{{section}}   - the section text under analysis
//	{{heading}}   - the section's heading, if any
//	{{context}}   - prior-stage outputs for the same section
//	{{passages}}  - retrieved reference passages
//
// Unknown placeholders pass through untouched.

// RenderPrompt fills an agent's prompt template for one section.
func RenderPrompt(agent *models.Agent, section vectorstore.Section, stageContext []string, passages []vectorstore.Passage) string {
	replacer := strings.NewReplacer(
		"{{section}}", section.Content,
		"{{heading}}", section.Heading,
		"{{context}}", formatContext(stageContext),
		"{{passages}}", formatPassages(passages),
	)
	return replacer.Replace(agent.PromptTemplate)
}

// SystemPrompt builds the role-specific system instruction for an agent.
func SystemPrompt(agent *models.Agent) string {
	var role string
	switch agent.Role {
	case models.AgentRoleActor:
		role = "You draft compliance test items from document sections. Propose concrete, verifiable checks grounded in the text you are given."
	case models.AgentRoleCritic:
		role = "You review draft compliance test items for accuracy and coverage. Point out unsupported claims, missed obligations and redundant checks, then produce a corrected version."
	case models.AgentRoleQA:
		role = "You finalize compliance test plans. Ensure every item is actionable, traceable to the source document and free of duplicates."
	default:
		role = "You analyze legal and compliance documents."
	}

	return fmt.Sprintf(`You are %s, an analysis agent for legal and compliance documents.

%s

Rules:
- Base every statement on the provided document text and reference passages
- Cite the clause or heading you relied on where possible
- Do not invent obligations that are not in the text
- Answer in plain structured text, one item per paragraph under a "## " title line`, agent.Name, role)
}

func formatContext(stageContext []string) string {
	if len(stageContext) == 0 {
		return "(no prior analysis)"
	}
	var sb strings.Builder
	for i, out := range stageContext {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("--- prior output %d ---\n%s", i+1, out))
	}
	return sb.String()
}

func formatPassages(passages []vectorstore.Passage) string {
	if len(passages) == 0 {
		return "(no reference passages)"
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Source: %s chunk %d]\n%s", p.DocumentID, p.ChunkIndex, p.Excerpt))
	}
	return sb.String()
}
