package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeInternalError = "INTERNAL_ERROR"

	// Pipeline error codes, one per external collaborator failure mode
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeSummarization = "SUMMARIZATION_ERROR"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeRetrieval     = "RETRIEVAL_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidElementKind    = NewDomainError(ErrCodeValidation, "invalid element kind")
	ErrEmptyChunk            = NewDomainError(ErrCodeValidation, "chunk combined text cannot be empty")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Already exists errors
var (
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document already exists")
)

// Pipeline errors. Extraction failures are terminal for the document;
// summarization and embedding failures are recoverable per element/chunk.
var (
	ErrExtractionFailed    = NewDomainError(ErrCodeExtraction, "document extraction failed")
	ErrSummarizationFailed = NewDomainError(ErrCodeSummarization, "element summarization failed")
	ErrEmbeddingFailed     = NewDomainError(ErrCodeEmbedding, "chunk embedding failed")
	ErrIndexUnavailable    = NewDomainError(ErrCodeRetrieval, "vector index unavailable")
	ErrGenerationFailed    = NewDomainError(ErrCodeGeneration, "answer generation failed")
)
