package pipeline

import (
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/vectorstore"
)

// SectionsFor splits a document version's content into units of pipeline
// work according to the model profile's chunking strategy. An empty document
// yields no sections and the caller treats the run as a no-op failure.
func SectionsFor(content string, profile *models.ModelProfile) []vectorstore.Section {
	strategy := models.ChunkPerSection
	window := 4000
	if profile != nil {
		strategy = profile.ChunkStrategy
		if profile.ChunkWindow > 0 {
			window = profile.ChunkWindow
		}
	}

	switch strategy {
	case models.ChunkFixedWindow:
		return vectorstore.FixedWindows(content, window)
	case models.ChunkMergeSmall:
		return vectorstore.MergeSmall(vectorstore.SplitSections(content), window)
	default:
		return vectorstore.SplitSections(content)
	}
}
