package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network, status and timeout failures while retrieving a page
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtraction represents selector or page-structure mismatches
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeMalformedPrice represents a price cell that is not numeric after cleanup
	ErrorTypeMalformedPrice ErrorType = "malformed_price"
	// ErrorTypeMalformedDate represents a missing or unusable sale date
	ErrorTypeMalformedDate ErrorType = "malformed_date"
	// ErrorTypeBlobParse represents an embedded script blob that could not be parsed
	ErrorTypeBlobParse ErrorType = "blob_parse"
	// ErrorTypeEmptyDataset represents a statistics request over zero records
	ErrorTypeEmptyDataset ErrorType = "empty_dataset"
	// ErrorTypeStorage represents artifact read/write failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents an error raised by one stage of the scrape/analyze pipeline
type PipelineError struct {
	Type    ErrorType
	Stage   string
	Value   string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" - %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error ends the current run
func (e *PipelineError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeStorage, ErrorTypeConfiguration:
		return true
	default:
		return false
	}
}

// IsType reports whether any error in err's chain is a PipelineError of the given type
func IsType(err error, errType ErrorType) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Type == errType
	}
	return false
}

// New creates a new PipelineError
func New(errType ErrorType, stage, message, value string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Stage:   stage,
		Value:   value,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error for the given url
func NewFetch(url, message string, err error) *PipelineError {
	return New(ErrorTypeFetch, "fetch", message, url, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(stage, message string, err error) *PipelineError {
	return New(ErrorTypeExtraction, stage, message, "", err)
}

// NewMalformedPrice creates a new malformed price error
func NewMalformedPrice(value string, err error) *PipelineError {
	return New(ErrorTypeMalformedPrice, "normalize", "price is not numeric", value, err)
}

// NewMalformedDate creates a new malformed date error
func NewMalformedDate(value, message string) *PipelineError {
	return New(ErrorTypeMalformedDate, "normalize", message, value, nil)
}

// NewBlobParse creates a new blob parse error for the named blob
func NewBlobParse(blob string, err error) *PipelineError {
	return New(ErrorTypeBlobParse, "extract", "failed to parse embedded blob", blob, err)
}

// NewEmptyDataset creates a new empty dataset error
func NewEmptyDataset(stage string) *PipelineError {
	return New(ErrorTypeEmptyDataset, stage, "no data to analyze", "", nil)
}

// NewStorage creates a new storage error for the given path
func NewStorage(path, message string, err error) *PipelineError {
	return New(ErrorTypeStorage, "storage", message, path, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "config", message, "", err)
}
