package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// IsRemote reports whether src names an HTTP resource.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch downloads url into cacheDir and returns the local path. A cached copy
// is reused unless refresh is set.
func Fetch(ctx context.Context, url, cacheDir string, refresh bool) (string, error) {
	if cacheDir == "" {
		return "", fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	destPath := filepath.Join(cacheDir, cacheName(url))
	if !refresh {
		if _, err := os.Stat(destPath); err == nil {
			return destPath, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat cached file: %w", err)
		}
	}

	resp, err := httpRequest(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status for %s: %s", url, resp.Status)
	}

	tmpFile, err := os.CreateTemp(cacheDir, "fetch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}
	return destPath, nil
}

// cacheName keeps the extension so loaders can still sniff the format.
func cacheName(url string) string {
	sum := sha256.Sum256([]byte(url))
	ext := path.Ext(strings.SplitN(url, "?", 2)[0])
	return hex.EncodeToString(sum[:8]) + ext
}

func httpRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
