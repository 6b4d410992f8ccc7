package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestCards(t *testing.T) {
	text := `Overall the contract is sound with two areas to verify.

## Verify vendor list
Category: obligations
Confirm every vendor in appendix A signed the policy.

## Check renewal notice
The renewal clause requires 30 days notice.
Confirm the calendar reminder exists.`

	summary, cards := ParseTestCards(text)

	assert.Equal(t, "Overall the contract is sound with two areas to verify.", summary)
	require.Len(t, cards, 2)

	assert.Equal(t, "Verify vendor list", cards[0].Title)
	assert.Equal(t, "obligations", cards[0].Category)
	assert.Contains(t, cards[0].Body, "appendix A")
	assert.Equal(t, 0, cards[0].Position)

	assert.Equal(t, "Check renewal notice", cards[1].Title)
	assert.Empty(t, cards[1].Category)
	assert.Contains(t, cards[1].Body, "30 days notice")
	assert.Equal(t, 1, cards[1].Position)
}

func TestParseTestCardsNoCards(t *testing.T) {
	summary, cards := ParseTestCards("Just a paragraph of analysis, no card titles.")
	assert.Equal(t, "Just a paragraph of analysis, no card titles.", summary)
	assert.Empty(t, cards)
}

func TestParseTestCardsNoSummary(t *testing.T) {
	summary, cards := ParseTestCards("## Only card\nBody text")
	assert.Empty(t, summary)
	require.Len(t, cards, 1)
	assert.Equal(t, "Only card", cards[0].Title)
	assert.Equal(t, "Body text", cards[0].Body)
}

func TestParseTestCardsCategoryOnlyDirectlyUnderTitle(t *testing.T) {
	_, cards := ParseTestCards("## Card\nSome body first.\nCategory: late")
	require.Len(t, cards, 1)
	assert.Empty(t, cards[0].Category)
	assert.Contains(t, cards[0].Body, "Category: late")
}
