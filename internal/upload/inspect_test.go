package upload

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// minimalPDF builds a well-formed PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestInspectText(t *testing.T) {
	p := writeFile(t, "notes.txt", []byte("refund policy: 30 days"))

	f, err := Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if f.Name != "notes.txt" {
		t.Errorf("Name = %q", f.Name)
	}
	if f.Size != 22 {
		t.Errorf("Size = %d, want 22", f.Size)
	}
	if f.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", f.ContentType)
	}
	if f.Pages != 0 {
		t.Errorf("Pages = %d, want 0", f.Pages)
	}
}

func TestInspectSniffsWithoutExtension(t *testing.T) {
	p := writeFile(t, "README", []byte("plain words only"))

	f, err := Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if f.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", f.ContentType)
	}
}

func TestInspectPDF(t *testing.T) {
	p := writeFile(t, "handbook.pdf", minimalPDF(3))

	f, err := Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if f.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", f.ContentType)
	}
	if f.Pages != 3 {
		t.Errorf("Pages = %d, want 3", f.Pages)
	}
}

func TestInspectBrokenPDF(t *testing.T) {
	p := writeFile(t, "broken.pdf", []byte("this is not a pdf at all"))

	_, err := Inspect(p)
	if !errors.Is(err, ErrUnreadablePDF) {
		t.Errorf("err = %v, want ErrUnreadablePDF", err)
	}
}

func TestInspectRejects(t *testing.T) {
	dir := t.TempDir()

	if _, err := Inspect(dir); !errors.Is(err, ErrNotRegular) {
		t.Errorf("directory: err = %v, want ErrNotRegular", err)
	}
	if _, err := Inspect(writeFile(t, "empty.txt", nil)); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty: err = %v, want ErrEmptyFile", err)
	}
	if _, err := Inspect(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing: err = %v, want os.ErrNotExist", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{1234567890, "1.15 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
