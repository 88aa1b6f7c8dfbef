package ingestion

import "fmt"

// UnsupportedDocumentError indicates an upload that is not a PDF
type UnsupportedDocumentError struct {
	MIMEType string
}

func (e *UnsupportedDocumentError) Error() string {
	return fmt.Sprintf("unsupported resume format %q", e.MIMEType)
}

// DocumentReadError indicates a PDF that could not be read
type DocumentReadError struct {
	Message string
	Cause   error
}

func (e *DocumentReadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DocumentReadError) Unwrap() error {
	return e.Cause
}
