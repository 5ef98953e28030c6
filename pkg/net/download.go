package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const defaultExt = ".csv"

var ErrorURLNotFound = errors.New("URL not found")

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getResp(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)
	return GetHTTPClient().Do(req) //nolint:gosec // URL is an explicit user input
}

// Download saves the content of u to the file at target.
func Download(ctx context.Context, u, target string) (retErr error) {
	resp, err := getResp(ctx, u)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrorURLNotFound, u)
	}
	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, u)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	return nil
}

// DownloadTemp saves the content of u into a new file under dir and returns
// its path. The file keeps the URL's extension so readers can pick a format;
// URLs without one are treated as CSV.
func DownloadTemp(ctx context.Context, u, dir string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("error parsing %s: %w", u, err)
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" {
		ext = defaultExt
	}

	f, err := os.CreateTemp(dir, "download-*"+ext)
	if err != nil {
		return "", fmt.Errorf("error creating temp file: %w", err)
	}
	target := f.Name()
	f.Close()

	if err := Download(ctx, u, target); err != nil {
		os.Remove(target)
		return "", err
	}
	return filepath.Clean(target), nil
}
