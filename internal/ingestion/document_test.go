package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a single-page PDF whose content stream shows text.
// Cross-reference offsets are computed so the reader can locate every object.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n", len(objects)+1)
	sb.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&sb, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&sb, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(sb.String())
}

func TestParseResume_PDF(t *testing.T) {
	data := buildPDF("Jane Doe Staff Engineer")

	text, err := ParseResume(data, "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe Staff Engineer")
}

func TestParseResume_SniffsPDFWithoutDeclaredType(t *testing.T) {
	data := buildPDF("Sniffed Resume")

	assert.True(t, IsPDF(data, ""))
	assert.True(t, IsPDF(data, "application/octet-stream"))
	assert.Equal(t, "application/pdf", DetectMIME(data))

	text, err := ParseResume(data, "application/octet-stream")
	require.NoError(t, err)
	assert.Contains(t, text, "Sniffed Resume")
}

func TestParseResume_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		wantMIME string
	}{
		{name: "plain text", data: []byte("Jane Doe, engineer"), declared: "text/plain", wantMIME: "text/plain"},
		{name: "docx declared", data: []byte("PK\x03\x04"), declared: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", wantMIME: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{name: "undeclared text", data: []byte("hello"), declared: "", wantMIME: "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResume(tt.data, tt.declared)
			require.Error(t, err)

			var unsupported *UnsupportedDocumentError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, tt.wantMIME, unsupported.MIMEType)
		})
	}
}

func TestParseResume_CorruptPDF(t *testing.T) {
	_, err := ParseResume([]byte("%PDF-1.4\nthis is not really a pdf"), "application/pdf")
	require.Error(t, err)

	var readErr *DocumentReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestExtractResumeText_Sentinels(t *testing.T) {
	assert.Equal(t, UnsupportedResumeText, ExtractResumeText([]byte("plain"), "text/plain"))
	assert.Equal(t, UnreadableResumeText, ExtractResumeText([]byte("%PDF-1.7 garbage"), "application/pdf"))
	assert.Equal(t, UnreadableResumeText, ExtractResumeText(nil, "application/pdf; name=cv.pdf"))
}

func TestExtractResumeText_PDF(t *testing.T) {
	text := ExtractResumeText(buildPDF("Go and Kafka"), "application/pdf")
	assert.Contains(t, text, "Go and Kafka")
}
