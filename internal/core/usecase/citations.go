package usecase

import (
	"encoding/json"
	"strings"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

// citationsMarker introduces the machine-readable citation block the
// generation contract requires at the end of every answer.
const citationsMarker = "CITATIONS:"

type citationRecord struct {
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type"`
	URL        string `json:"url,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	Page       int    `json:"page,omitempty"`
	Excerpt    string `json:"excerpt"`
}

// parseCitations splits a generated response into the prose answer and its
// structured citation list. Anything that does not parse into the contracted
// structure yields zero citations — the engine treats that as a soft failure
// rather than scraping the prose.
func parseCitations(response string) (answer string, citations []domain.Citation) {
	idx := strings.LastIndex(response, citationsMarker)
	if idx < 0 {
		return strings.TrimSpace(response), nil
	}

	answer = strings.TrimSpace(response[:idx])
	block := strings.TrimSpace(response[idx+len(citationsMarker):])
	block = stripCodeFence(block)

	var records []citationRecord
	if err := json.Unmarshal([]byte(block), &records); err != nil {
		return answer, nil
	}

	citations = make([]domain.Citation, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.SourceID) == "" {
			continue
		}
		citations = append(citations, domain.Citation{
			SourceID:   strings.TrimSpace(rec.SourceID),
			SourceType: domain.SourceType(strings.ToLower(strings.TrimSpace(rec.SourceType))),
			URL:        strings.TrimSpace(rec.URL),
			FileName:   strings.TrimSpace(rec.FileName),
			Page:       rec.Page,
			Excerpt:    rec.Excerpt,
		})
	}
	return answer, citations
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
