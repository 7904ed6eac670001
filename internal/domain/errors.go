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

// Is matches by code so copies produced by WithDetail and Wrap still
// compare equal to the package sentinels via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with extra context appended to
// its message. The sentinel itself is left untouched.
func (e *DomainError) WithDetail(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...)),
		Err:     e.Err,
	}
}

// Wrap returns a copy of the error carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// Domain error codes. Each failure mode gets its own code so callers
// can branch on errors.Is without string matching.
const (
	ErrCodeValidation               = "VALIDATION_ERROR"
	ErrCodeNotFound                 = "NOT_FOUND"
	ErrCodeDuplicateName            = "DUPLICATE_NAME"
	ErrCodeUnsupportedFormat        = "UNSUPPORTED_FORMAT"
	ErrCodeCorruptFile              = "CORRUPT_FILE"
	ErrCodeInvalidParameters        = "INVALID_PARAMETERS"
	ErrCodeEmbedding                = "EMBEDDING_ERROR"
	ErrCodeEmptyKnowledgeBase       = "EMPTY_KNOWLEDGE_BASE"
	ErrCodeGeneration               = "GENERATION_ERROR"
	ErrCodeNoPrimaryDocument        = "NO_PRIMARY_DOCUMENT"
	ErrCodeAmbiguousPrimaryDocument = "AMBIGUOUS_PRIMARY_DOCUMENT"
	ErrCodeUnresolvableStep         = "UNRESOLVABLE_STEP"
	ErrCodeUnavailable              = "UNAVAILABLE"
	ErrCodeTimeout                  = "TIMEOUT"
	ErrCodeInternalError            = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingName = NewDomainError(ErrCodeValidation, "knowledge base name is required")
	ErrInvalidRole = NewDomainError(ErrCodeValidation, "invalid document role")
)

// Not found errors
var (
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrTestCaseNotFound      = NewDomainError(ErrCodeNotFound, "test case not found")
	ErrScriptNotFound        = NewDomainError(ErrCodeNotFound, "script not found")
)

// Ingestion errors
var (
	ErrDuplicateName     = NewDomainError(ErrCodeDuplicateName, "knowledge base name already in use")
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrCorruptFile       = NewDomainError(ErrCodeCorruptFile, "file is corrupt or undecodable")
	ErrInvalidParameters = NewDomainError(ErrCodeInvalidParameters, "invalid chunking parameters")
	ErrEmbedding         = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
)

// Retrieval and generation errors
var (
	ErrEmptyKnowledgeBase       = NewDomainError(ErrCodeEmptyKnowledgeBase, "knowledge base has no chunks")
	ErrGeneration               = NewDomainError(ErrCodeGeneration, "model output did not match the expected schema")
	ErrNoPrimaryDocument        = NewDomainError(ErrCodeNoPrimaryDocument, "knowledge base has no primary document")
	ErrAmbiguousPrimaryDocument = NewDomainError(ErrCodeAmbiguousPrimaryDocument, "knowledge base has more than one primary document")
	ErrUnresolvableStep         = NewDomainError(ErrCodeUnresolvableStep, "step could not be mapped to a locator")
)

// Collaborator errors
var (
	ErrModelUnavailable = NewDomainError(ErrCodeUnavailable, "language model unavailable")
	ErrTimeout          = NewDomainError(ErrCodeTimeout, "external call timed out")
)
