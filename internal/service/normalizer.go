package service

import (
	"strings"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// RawElement is the tuple shape the extraction collaborator produces for
// each extracted unit, before normalization.
type RawElement struct {
	PageNumber int
	Kind       string
	Content    string
}

// Normalizer converts raw extracted elements into tagged Elements at the
// extraction boundary so downstream stages never branch on ad hoc shapes.
// Normalization is best-effort and never fails the pipeline: unrecognized
// kinds are coerced to text, out-of-range page numbers are clamped to 1.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize maps raw elements to Elements, preserving extraction order.
// Page furniture (headers, footers, page breaks) is dropped; elements
// with no content are dropped as well.
func (n *Normalizer) Normalize(documentID string, raw []RawElement) []domain.Element {
	elements := make([]domain.Element, 0, len(raw))
	for ordinal, r := range raw {
		kind, keep := normalizeKind(r.Kind)
		if !keep {
			continue
		}
		if strings.TrimSpace(r.Content) == "" {
			continue
		}

		page := r.PageNumber
		if page <= 0 {
			page = 1
		}

		// Ordinals follow the extractor's output positions, so dropped
		// furniture leaves gaps rather than shifting later identities.
		e := domain.NewElement(documentID, page, kind, r.Content)
		e.Ordinal = ordinal
		elements = append(elements, e)
	}
	return elements
}

// normalizeKind maps extractor type names onto the element kinds the
// pipeline understands. The second return is false for page furniture
// that carries no retrievable content.
func normalizeKind(kind string) (domain.ElementKind, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "table":
		return domain.ElementKindTable, true
	case "image", "figure":
		return domain.ElementKindImage, true
	case "header", "footer", "pagebreak", "page-break":
		return "", false
	default:
		// Narrative text, titles, list items, and anything unrecognized
		// are treated as text via their string content.
		return domain.ElementKindText, true
	}
}
