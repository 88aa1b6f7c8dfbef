package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	// UnsupportedResumeText stands in for a resume that is not a PDF.
	UnsupportedResumeText = "Could not parse resume. Unsupported file format."
	// UnreadableResumeText stands in for a PDF whose text could not be read.
	UnreadableResumeText = "Error reading resume content."

	pdfMIME = "application/pdf"
)

// DetectMIME returns the sniffed content type of data, ignoring what the
// client declared.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsPDF reports whether the upload is a PDF, either by its declared type
// or by its content.
func IsPDF(data []byte, declared string) bool {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType == pdfMIME {
		return true
	}
	return mimetype.Detect(data).Is(pdfMIME)
}

// ParseResume extracts plain text from a PDF resume held in memory.
func ParseResume(data []byte, declared string) (string, error) {
	if !IsPDF(data, declared) {
		detected := declared
		if detected == "" {
			detected = DetectMIME(data)
		}
		return "", &UnsupportedDocumentError{MIMEType: detected}
	}

	text, err := readPDF(data)
	if err != nil {
		return "", err
	}
	return CleanText(text), nil
}

// ExtractResumeText never fails: unsupported or unreadable documents yield a
// sentinel sentence so setup can still continue.
func ExtractResumeText(data []byte, declared string) string {
	text, err := ParseResume(data, declared)
	if err != nil {
		var unsupported *UnsupportedDocumentError
		if errors.As(err, &unsupported) {
			return UnsupportedResumeText
		}
		return UnreadableResumeText
	}
	return text
}

// readPDF reads the text layer of every page. The pdf package panics on some
// malformed inputs, so panics are converted to errors.
func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DocumentReadError{Message: "malformed PDF", Cause: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &DocumentReadError{Message: "failed to open PDF", Cause: err}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", &DocumentReadError{Message: "failed to extract PDF text", Cause: err}
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", &DocumentReadError{Message: "failed to read PDF text", Cause: err}
	}
	return sb.String(), nil
}
