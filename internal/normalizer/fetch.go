package normalizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// Fetch makes the raw export available at path and reports whether a download
// happened. An existing non-empty file is reused as is; an absent or empty
// file is downloaded from rawURL. With no cache and no URL there is nothing
// to clean, which is an error.
func Fetch(ctx context.Context, rawURL, path string, logger *slog.Logger) (bool, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		logger.Info("reusing cached raw export", "path", path, "size_bytes", info.Size())
		return false, nil
	}

	if rawURL == "" {
		return false, fmt.Errorf("raw export %s is absent and RAW_URL is not set", path)
	}

	if err := download(ctx, rawURL, path); err != nil {
		return false, err
	}

	logger.Info("downloaded raw export", "url", rawURL, "path", path)
	return true, nil
}

func download(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download raw export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download raw export: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// A partial download must never land at path, so write through a temp
	// file and rename.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write raw export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move raw export into place: %w", err)
	}

	return nil
}
