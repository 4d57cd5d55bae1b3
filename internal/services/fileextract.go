package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"promptcraft-backend/internal/models"
)

const MaxAttachmentBytes = 10 * 1024 * 1024

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var textTypes = map[string]bool{
	"text/plain":             true,
	"text/markdown":          true,
	"text/csv":               true,
	"application/json":       true,
	"text/html":              true,
	"text/css":               true,
	"text/javascript":        true,
	"application/javascript": true,
	"application/typescript": true,
	"text/typescript":        true,
	"text/x-typescript":      true,
}

var extensionTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".jsx":  "text/javascript",
	".ts":   "text/typescript",
	".tsx":  "text/typescript",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// Read turns an uploaded file into an attachment: images become a base64
// data URL, text-like files and PDFs become UTF-8 text.
func (s *FileExtractService) Read(name, declaredType string, data []byte) (*models.AttachedFile, error) {
	if len(data) == 0 {
		return nil, newInvalidInput("The file %q is empty.", name)
	}
	if len(data) > MaxAttachmentBytes {
		return nil, newInvalidInput("The file %q exceeds the 10MB limit.", name)
	}

	mimeType := ResolveMIMEType(name, declaredType)

	switch {
	case imageTypes[mimeType]:
		return &models.AttachedFile{
			Name:    name,
			Type:    mimeType,
			Content: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		}, nil
	case textTypes[mimeType]:
		if !utf8.Valid(data) {
			return nil, newInvalidInput("The file %q is not valid UTF-8 text.", name)
		}
		return &models.AttachedFile{Name: name, Type: mimeType, Content: string(data)}, nil
	case mimeType == "application/pdf":
		text, err := s.extractPDF(data)
		if err != nil {
			return nil, newInvalidInput("Could not read text from %q: %v", name, err)
		}
		return &models.AttachedFile{Name: name, Type: "text/plain", Content: text}, nil
	default:
		return nil, newInvalidInput("Unsupported file type %q.", mimeType)
	}
}

// ResolveMIMEType prefers the declared type unless it is missing or
// generic, then falls back to the file extension.
func ResolveMIMEType(name, declaredType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			return byExt
		}
	}
	return mimeType
}

func IsImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// ParseDataURL splits "data:<mime>;base64,<payload>" into its MIME type and
// decoded payload.
func ParseDataURL(dataURL string) (string, []byte, error) {
	header, payload, ok := strings.Cut(dataURL, ";base64,")
	if !ok {
		return "", nil, newInvalidInput("The attached image is not a base64 data URL.")
	}
	_, mimeType, ok := strings.Cut(header, ":")
	if !ok || mimeType == "" {
		return "", nil, newInvalidInput("The attached image has no MIME type.")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, newInvalidInput("The attached image payload is not valid base64.")
	}
	return mimeType, data, nil
}

func (s *FileExtractService) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", errNoPDFText
	}

	return text, nil
}

var errNoPDFText = errors.New("no extractable text found in pdf")

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
