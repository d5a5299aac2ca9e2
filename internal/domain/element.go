package domain

import "fmt"

// ElementKind discriminates the payload of an extracted element
type ElementKind string

const (
	ElementKindText  ElementKind = "text"
	ElementKindTable ElementKind = "table"
	ElementKindImage ElementKind = "image"
)

// Element is a single extracted unit of a document page, normalized at
// the extraction boundary. RawContent holds the element text for text
// and table kinds, or a blob store key for image kinds. DerivedText is
// the embeddable text form: RawContent for text/table, the vision
// summary for images. Immutable once created.
type Element struct {
	DocumentID  string
	PageNumber  int
	Kind        ElementKind
	RawContent  string
	DerivedText string
	// Ordinal is the element's position in the extractor's output,
	// assigned at normalization. It anchors element identity.
	Ordinal int
}

// ID returns the stable element identifier, derived from the element's
// position in the extraction order.
func (e *Element) ID() string {
	return fmt.Sprintf("%s:e%d", e.DocumentID, e.Ordinal)
}

// NewElement creates an Element. Text and table elements derive their
// text directly from the raw content; image elements start with empty
// DerivedText until summarized.
func NewElement(documentID string, pageNumber int, kind ElementKind, rawContent string) Element {
	e := Element{
		DocumentID: documentID,
		PageNumber: pageNumber,
		Kind:       kind,
		RawContent: rawContent,
	}
	if kind != ElementKindImage {
		e.DerivedText = rawContent
	}
	return e
}

// ValidateElement validates an Element instance
func ValidateElement(e *Element) error {
	if e == nil {
		return fmt.Errorf("element cannot be nil")
	}

	if e.DocumentID == "" {
		return fmt.Errorf("element DocumentID is required")
	}

	if e.PageNumber <= 0 {
		return fmt.Errorf("element PageNumber must be greater than 0")
	}

	if !isValidElementKind(e.Kind) {
		return fmt.Errorf("element Kind is invalid: %s", e.Kind)
	}

	return nil
}

// isValidElementKind checks if an ElementKind is valid
func isValidElementKind(k ElementKind) bool {
	switch k {
	case ElementKindText, ElementKindTable, ElementKindImage:
		return true
	}
	return false
}
