package source

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/recipe/recipe"
)

// ContentFetcher downloads an archive and verifies it against a checksum.
// A mismatch must be reported as recipe.ErrIntegrity and must not leave the
// archive behind.
type ContentFetcher interface {
	Fetch(ctx context.Context, url, checksum, destDir string) (archivePath string, err error)
}

// RepositoryFetcher produces a working tree of repoURL at ref in dir.
type RepositoryFetcher interface {
	Clone(ctx context.Context, repoURL, ref, dir string) error
}

// headReader is implemented by repository fetchers that can name the commit
// they checked out.
type headReader interface {
	Head(ctx context.Context, dir string) (string, error)
}

// HTTPFetcher is a ContentFetcher over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a bounded per-request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Fetch downloads rawURL into destDir, hashing while it streams. The hash
// algorithm follows the checksum length: 32 hex digits for MD5, 64 for
// SHA-256.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, checksum, destDir string) (string, error) {
	h, err := hasherFor(checksum)
	if err != nil {
		return "", recipe.Errorf(recipe.ErrIntegrity, "fetch", rawURL, err)
	}
	name, err := archiveName(rawURL)
	if err != nil {
		return "", recipe.Errorf(recipe.ErrSourceUnavailable, "fetch", rawURL, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", recipe.Errorf(recipe.ErrSourceUnavailable, "fetch", rawURL, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", recipe.Classify(ctx, "fetch", err, recipe.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", recipe.Errorf(recipe.ErrSourceUnavailable, "fetch", rawURL, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	archivePath := filepath.Join(destDir, name)
	out, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(io.MultiWriter(out, h), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(archivePath)
		return "", recipe.Classify(ctx, "fetch", err, recipe.ErrSourceUnavailable)
	}

	if got := hex.EncodeToString(h.Sum(nil)); got != strings.ToLower(checksum) {
		os.Remove(archivePath)
		return "", recipe.Errorf(recipe.ErrIntegrity, "fetch", fmt.Sprintf("%s: checksum %s, want %s", name, got, checksum), nil)
	}
	return archivePath, nil
}

func hasherFor(checksum string) (hash.Hash, error) {
	switch len(checksum) {
	case md5.Size * 2:
		return md5.New(), nil
	case sha256.Size * 2:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("unsupported checksum %q", checksum)
}

func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in %s", rawURL)
	}
	return name, nil
}
