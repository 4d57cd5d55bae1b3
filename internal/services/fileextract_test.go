package services

import (
	"strings"
	"testing"
)

func TestFileExtract_ReadImageAsDataURL(t *testing.T) {
	s := NewFileExtractService()
	f, err := s.Read("photo.PNG", "application/octet-stream", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != "image/png" || f.Content != "data:image/png;base64,AQID" {
		t.Fatalf("unexpected attachment %#v", f)
	}

	mimeType, data, err := ParseDataURL(f.Content)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if mimeType != "image/png" || string(data) != string([]byte{1, 2, 3}) {
		t.Fatalf("unexpected round trip %q %v", mimeType, data)
	}
}

func TestFileExtract_ReadText(t *testing.T) {
	s := NewFileExtractService()
	tests := []struct {
		name, declared, wantType string
	}{
		{"notes.md", "", "text/markdown"},
		{"data.csv", "text/csv; charset=utf-8", "text/csv"},
		{"app.ts", "application/octet-stream", "text/typescript"},
		{"page.html", "text/html", "text/html"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := s.Read(tc.name, tc.declared, []byte("héllo"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Type != tc.wantType || f.Content != "héllo" {
				t.Fatalf("unexpected attachment %#v", f)
			}
		})
	}
}

func TestFileExtract_Rejects(t *testing.T) {
	s := NewFileExtractService()
	tests := []struct {
		name, declared string
		data           []byte
	}{
		{"empty.txt", "text/plain", nil},
		{"bin.exe", "application/x-msdownload", []byte("MZ")},
		{"bad.txt", "text/plain", []byte{0xff, 0xfe, 0xfd}},
		{"broken.pdf", "application/pdf", []byte("not a pdf")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Read(tc.name, tc.declared, tc.data)
			requireKind(t, err, KindInvalidInput)
		})
	}
}

func TestParseDataURL_Invalid(t *testing.T) {
	for _, in := range []string{"plain text", "data:;base64,AAAA", "data:image/png;base64,@@@"} {
		if _, _, err := ParseDataURL(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestNormalizeExtractedText(t *testing.T) {
	got := normalizeExtractedText("  line one  \r\n\r\n\r\n  line two\r")
	if got != "line one\n\nline two" {
		t.Fatalf("unexpected normalization %q", strings.ReplaceAll(got, "\n", `\n`))
	}
}
