package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
)

// ProgressFunc receives upload progress as an integer percent in [0, 100].
type ProgressFunc func(percent int)

// UploadFile streams r as the multipart field "file" to a store. size is the
// number of bytes r will yield; when it is unknown (<= 0) progress is only
// reported on completion. The call is not bounded by the client timeout.
func (c *Client) UploadFile(ctx context.Context, name, filename string, r io.Reader, size int64, onProgress ProgressFunc) (Result, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	counter := &progressReader{r: r, total: size, report: onProgress}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, counter); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+storePath(name)+"/files", pr)
	if err != nil {
		pr.CloseWithError(err)
		wg.Wait()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res Result
	err = c.send(req, &res)
	// Unblock the writer if the server stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	wg.Wait()
	if err != nil {
		return nil, fmt.Errorf("uploading %s to %s: %w", filename, name, err)
	}
	counter.finish()
	return res, nil
}

// progressReader counts bytes read and reports monotonically increasing
// percentages, skipping repeats.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		p.emit(pct)
	}
	return n, err
}

func (p *progressReader) finish() {
	p.emit(100)
}

func (p *progressReader) emit(pct int) {
	if p.report == nil || pct <= p.last {
		return
	}
	p.last = pct
	p.report(pct)
}
