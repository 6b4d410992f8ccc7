package pipeline

import (
	"strings"

	"github.com/lexflow/backend/models"
)

// ParseTestCards extracts structured cards from final-stage text. Cards are
// delimited by "## " title lines; an optional "Category:" line directly under
// the title sets the card category, the rest becomes the body. Text before
// the first title is returned as the plan summary.
func ParseTestCards(text string) (string, []models.TestCard) {
	lines := strings.Split(text, "\n")

	var summary []string
	var cards []models.TestCard
	var current *models.TestCard
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		current.Position = len(cards)
		cards = append(cards, *current)
		current = nil
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			current = &models.TestCard{Title: strings.TrimSpace(trimmed[3:])}
			continue
		}
		if current == nil {
			summary = append(summary, line)
			continue
		}
		if current.Category == "" && len(body) == 0 {
			if cat, ok := strings.CutPrefix(trimmed, "Category:"); ok {
				current.Category = strings.TrimSpace(cat)
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	return strings.TrimSpace(strings.Join(summary, "\n")), cards
}
