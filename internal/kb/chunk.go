package kb

import "strings"

const (
	chunkMaxRunes = 1200
	chunkOverlap  = 200
)

// splitChunks breaks a document into retrieval units. Paragraphs are packed
// together up to chunkMaxRunes; an oversized paragraph is hard-split with
// overlap so no passage exceeds the embedding-friendly size.
func splitChunks(text string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) > chunkMaxRunes {
			flush()
			chunks = append(chunks, splitLong(para)...)
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(para))+2 > chunkMaxRunes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

func splitLong(para string) []string {
	runes := []rune(para)
	var out []string
	step := chunkMaxRunes - chunkOverlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkMaxRunes
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, strings.TrimSpace(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return out
}
