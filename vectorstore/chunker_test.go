package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSectionsMarkdownHeadings(t *testing.T) {
	content := "# Scope\nAll vendors must comply.\n## Details\nAppendix A lists vendors."

	sections := SplitSections(content)
	require.Len(t, sections, 2)
	assert.Equal(t, "# Scope", sections[0].Heading)
	assert.Equal(t, "All vendors must comply.", sections[0].Content)
	assert.Equal(t, "## Details", sections[1].Heading)
}

func TestSplitSectionsClauseHeadings(t *testing.T) {
	content := "Section 1:\nThe term is one year.\n2. Renewal\nNotice is 30 days."

	sections := SplitSections(content)
	require.Len(t, sections, 2)
	assert.Equal(t, "Section 1:", sections[0].Heading)
	assert.Equal(t, "2. Renewal", sections[1].Heading)
}

func TestSplitSectionsNoHeadings(t *testing.T) {
	sections := SplitSections("Plain text without any headings at all.")
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Heading)
	assert.Equal(t, "Plain text without any headings at all.", sections[0].Content)
}

func TestSplitSectionsEmpty(t *testing.T) {
	assert.Nil(t, SplitSections(""))
	assert.Nil(t, SplitSections("  \n \n"))
}

func TestMergeSmall(t *testing.T) {
	sections := []Section{
		{Heading: "# A", Content: "short"},
		{Heading: "# B", Content: "also short"},
		{Heading: "# C", Content: strings.Repeat("x", 500)},
	}

	merged := MergeSmall(sections, 100)
	require.Len(t, merged, 2)
	assert.Equal(t, "# A", merged[0].Heading)
	assert.Contains(t, merged[0].Content, "short")
	assert.Contains(t, merged[0].Content, "# B")
	assert.Equal(t, "# C", merged[1].Heading)
}

func TestMergeSmallZeroWindowIsNoop(t *testing.T) {
	sections := []Section{{Content: "a"}, {Content: "b"}}
	assert.Equal(t, sections, MergeSmall(sections, 0))
}

func TestFixedWindows(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "line of contract text number some")
	}
	content := strings.Join(lines, "\n")

	sections := FixedWindows(content, 100)
	require.Greater(t, len(sections), 1)
	for _, sec := range sections {
		assert.Empty(t, sec.Heading)
		assert.NotEmpty(t, sec.Content)
		assert.LessOrEqual(t, len(sec.Content), 100)
	}
}

func TestFixedWindowsShortText(t *testing.T) {
	sections := FixedWindows("short", 100)
	require.Len(t, sections, 1)
	assert.Equal(t, "short", sections[0].Content)
}

func TestFixedWindowsEmpty(t *testing.T) {
	assert.Nil(t, FixedWindows("   ", 100))
}
