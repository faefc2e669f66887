// Package upload checks local files before they are sent to a store.
package upload

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotRegular    = errors.New("not a regular file")
	ErrEmptyFile     = errors.New("file is empty")
	ErrUnreadablePDF = errors.New("PDF could not be parsed")
)

// File describes a local file ready for upload.
type File struct {
	Path        string
	Name        string // base name sent as the multipart filename
	Size        int64
	ContentType string
	Pages       int // PDF page count, 0 for other types
}

// Inspect stats path, sniffs its content type and, for PDFs, checks that the
// document parses and counts its pages.
func Inspect(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("inspecting %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("inspecting %s: %w", path, ErrNotRegular)
	}
	if info.Size() == 0 {
		return File{}, fmt.Errorf("inspecting %s: %w", path, ErrEmptyFile)
	}

	ct, err := contentType(path)
	if err != nil {
		return File{}, fmt.Errorf("inspecting %s: %w", path, err)
	}

	f := File{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: ct,
	}
	if ct == "application/pdf" {
		pages, err := pdfPages(path)
		if err != nil {
			return File{}, fmt.Errorf("inspecting %s: %w: %v", path, ErrUnreadablePDF, err)
		}
		f.Pages = pages
	}
	return f, nil
}

// contentType prefers the extension and falls back to sniffing.
func contentType(path string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mt, nil
		}
	}

	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(fh, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}

func pdfPages(path string) (n int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%v", r)
		}
	}()

	fh, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()
	return r.NumPage(), nil
}

// FormatSize renders a byte count as "0 Bytes", "512 Bytes", "1.5 KB" and so
// on, rounded to two decimals.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}
