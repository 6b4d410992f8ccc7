package vectorstore

import "strings"

// Section is a contiguous unit of document text. Heading is the line that
// opened the section, when one existed.
type Section struct {
	Heading string
	Content string
}

// SplitSections splits document text on heading-like lines (markdown headings
// or UPPERCASE/numbered clause titles) and blank-line paragraph groups.
// Legal documents in this system are plain text or markdown; anything without
// recognizable headings becomes a single section.
func SplitSections(content string) []Section {
	lines := strings.Split(content, "\n")

	var sections []Section
	var current Section
	var body []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" || current.Heading != "" {
			current.Content = text
			sections = append(sections, current)
		}
		current = Section{}
		body = body[:0]
	}

	for _, line := range lines {
		if isHeading(line) {
			if len(body) > 0 || current.Heading != "" {
				flush()
			}
			current.Heading = strings.TrimSpace(line)
			continue
		}
		body = append(body, line)
	}
	flush()

	if len(sections) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []Section{{Content: trimmed}}
	}
	return sections
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	// Numbered clause titles: "1.", "2.3", "Section 4:"
	if strings.HasPrefix(strings.ToLower(trimmed), "section ") && strings.HasSuffix(trimmed, ":") {
		return true
	}
	dot := strings.IndexAny(trimmed, ". ")
	if dot > 0 && dot <= 4 {
		numeric := true
		for _, r := range trimmed[:dot] {
			if (r < '0' || r > '9') && r != '.' {
				numeric = false
				break
			}
		}
		if numeric && len(trimmed) > dot+1 && trimmed[dot] == '.' {
			return true
		}
	}
	return false
}

// MergeSmall combines adjacent sections until adding the next one would
// exceed window characters. Sections larger than the window stay whole.
func MergeSmall(sections []Section, window int) []Section {
	if window <= 0 || len(sections) == 0 {
		return sections
	}

	var merged []Section
	var acc Section
	accLen := 0

	for _, sec := range sections {
		secLen := len(sec.Heading) + len(sec.Content)
		if accLen > 0 && accLen+secLen > window {
			merged = append(merged, acc)
			acc = Section{}
			accLen = 0
		}
		if acc.Heading == "" {
			acc.Heading = sec.Heading
		}
		if acc.Content != "" {
			acc.Content += "\n\n"
		}
		if sec.Heading != "" && acc.Content != "" {
			acc.Content += sec.Heading + "\n"
		}
		acc.Content += sec.Content
		accLen += secLen
	}
	if accLen > 0 {
		merged = append(merged, acc)
	}
	return merged
}

// FixedWindows splits text into fixed-size character windows, ignoring
// section structure. Splits prefer the last line break inside the window.
func FixedWindows(content string, window int) []Section {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil
	}
	if window <= 0 {
		return []Section{{Content: text}}
	}

	var sections []Section
	for len(text) > 0 {
		if len(text) <= window {
			sections = append(sections, Section{Content: text})
			break
		}
		cut := window
		if idx := strings.LastIndex(text[:window], "\n"); idx > window/2 {
			cut = idx
		}
		sections = append(sections, Section{Content: strings.TrimSpace(text[:cut])})
		text = strings.TrimSpace(text[cut:])
	}
	return sections
}
