package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veldt-labs/papyrus/internal/domain"
)

func TestNormalizer_Normalize_KindMapping(t *testing.T) {
	n := NewNormalizer()

	raw := []RawElement{
		{PageNumber: 1, Kind: "NarrativeText", Content: "body text"},
		{PageNumber: 1, Kind: "Table", Content: "a | b"},
		{PageNumber: 2, Kind: "Image", Content: "figures/fig1.jpg"},
		{PageNumber: 2, Kind: "Figure", Content: "figures/fig2.jpg"},
		{PageNumber: 2, Kind: "Title", Content: "Heading"},
	}

	elements := n.Normalize("doc-1", raw)

	assert.Len(t, elements, 5)
	assert.Equal(t, domain.ElementKindText, elements[0].Kind)
	assert.Equal(t, domain.ElementKindTable, elements[1].Kind)
	assert.Equal(t, domain.ElementKindImage, elements[2].Kind)
	assert.Equal(t, domain.ElementKindImage, elements[3].Kind)
	assert.Equal(t, domain.ElementKindText, elements[4].Kind)
	for _, e := range elements {
		assert.Equal(t, "doc-1", e.DocumentID)
	}
}

func TestNormalizer_Normalize_DropsPageFurnitureAndEmpty(t *testing.T) {
	n := NewNormalizer()

	raw := []RawElement{
		{PageNumber: 1, Kind: "Header", Content: "Running header"},
		{PageNumber: 1, Kind: "Footer", Content: "Page 1 of 10"},
		{PageNumber: 1, Kind: "PageBreak", Content: "---"},
		{PageNumber: 1, Kind: "NarrativeText", Content: "   "},
		{PageNumber: 1, Kind: "NarrativeText", Content: "kept"},
	}

	elements := n.Normalize("doc-1", raw)

	assert.Len(t, elements, 1)
	assert.Equal(t, "kept", elements[0].RawContent)
}

func TestNormalizer_Normalize_OrdinalsFollowExtractorPositions(t *testing.T) {
	n := NewNormalizer()

	raw := []RawElement{
		{PageNumber: 1, Kind: "NarrativeText", Content: "first"},
		{PageNumber: 1, Kind: "Header", Content: "Running header"},
		{PageNumber: 1, Kind: "NarrativeText", Content: "second"},
	}

	elements := n.Normalize("doc-1", raw)

	assert.Len(t, elements, 2)
	assert.Equal(t, 0, elements[0].Ordinal)
	assert.Equal(t, 2, elements[1].Ordinal)
	assert.Equal(t, "doc-1:e0", elements[0].ID())
	assert.Equal(t, "doc-1:e2", elements[1].ID())
}

func TestNormalizer_Normalize_ClampsPageNumber(t *testing.T) {
	n := NewNormalizer()

	elements := n.Normalize("doc-1", []RawElement{
		{PageNumber: 0, Kind: "NarrativeText", Content: "no page metadata"},
		{PageNumber: -3, Kind: "NarrativeText", Content: "negative page"},
	})

	assert.Len(t, elements, 2)
	assert.Equal(t, 1, elements[0].PageNumber)
	assert.Equal(t, 1, elements[1].PageNumber)
}

func TestNormalizer_Normalize_PreservesOrder(t *testing.T) {
	n := NewNormalizer()

	raw := []RawElement{
		{PageNumber: 1, Kind: "NarrativeText", Content: "first"},
		{PageNumber: 1, Kind: "NarrativeText", Content: "second"},
		{PageNumber: 1, Kind: "NarrativeText", Content: "third"},
	}

	elements := n.Normalize("doc-1", raw)

	assert.Equal(t, []string{"first", "second", "third"}, []string{
		elements[0].RawContent, elements[1].RawContent, elements[2].RawContent,
	})
}

func TestNormalizer_Normalize_NonImageDerivedText(t *testing.T) {
	n := NewNormalizer()

	elements := n.Normalize("doc-1", []RawElement{
		{PageNumber: 1, Kind: "NarrativeText", Content: "plain text"},
		{PageNumber: 1, Kind: "Image", Content: "figures/fig1.jpg"},
	})

	assert.Equal(t, "plain text", elements[0].DerivedText)
	assert.Empty(t, elements[1].DerivedText)
}
