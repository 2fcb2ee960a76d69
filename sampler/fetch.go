package sampler

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"strings"
)

// Fetcher retrieves the raw bytes of a sound source.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// LocatorFetcher fetches http(s) locators with Client and everything else
// from FS. Zero fields fall back to http.DefaultClient and the working
// directory.
type LocatorFetcher struct {
	Client *http.Client
	FS     fs.FS
}

func (f LocatorFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return f.fetchHTTP(ctx, locator)
	}
	fsys := f.FS
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	data, err := fs.ReadFile(fsys, strings.TrimPrefix(locator, "/"))
	if err != nil {
		return nil, fmt.Errorf("cannot read %v: %w", locator, err)
	}
	return data, nil
}

func (f LocatorFetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch %v: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch %v: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch %v: %s", url, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !(strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream") {
			return nil, fmt.Errorf("%v has content type %q: %w", url, ct, ErrNotAudio)
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v: %w", url, err)
	}
	return data, nil
}
