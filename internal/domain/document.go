package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion lifecycle state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded source document. The ID is the hex
// SHA-256 of the file bytes, so re-uploading identical content resolves
// to the same row instead of reprocessing.
type Document struct {
	ID          string
	Filename    string
	SourceKey   string // blob store key of the original file
	Status      DocumentStatus
	PageCount   int
	FailedPages []int32
	Retries     int32
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentID computes the content fingerprint of a source file.
func DocumentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewDocument creates a pending Document for the given file content.
func NewDocument(filename string, content []byte, sourceKey string, now time.Time) *Document {
	return &Document{
		ID:        DocumentID(content),
		Filename:  filename,
		SourceKey: sourceKey,
		Status:    DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.PageCount < 0 {
		return fmt.Errorf("document PageCount cannot be negative")
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
