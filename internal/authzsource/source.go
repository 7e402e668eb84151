// Package authzsource implements the two collaborators spec.md names but
// deliberately leaves external: "a local authorization file" and "a file
// living inside a repository, fetched at HEAD". Both simply hand back
// bytes; internal/authzspec does all the parsing.
package authzsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Source fetches the raw bytes of an authorization rule file.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// LocalFileSource reads a rule file from the local filesystem.
type LocalFileSource struct {
	Path string
}

func (s LocalFileSource) Fetch(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("authzsource: opening %s: %w", s.Path, err)
	}
	return f, nil
}

// RepoFileSource fetches a rule file living inside a repository at HEAD, by
// URL. spec.md scopes the actual repository/filesystem primitives out of
// the engine, so this stands in for "ask the repository layer for the bytes
// of a path at HEAD" with a plain HTTP GET against whatever endpoint a real
// deployment's VCS server exposes for reading a file at a ref — no bespoke
// repository protocol is invented here.
type RepoFileSource struct {
	URL    string
	Client *http.Client
}

func (s RepoFileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("authzsource: building request for %s: %w", s.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authzsource: fetching %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("authzsource: fetching %s: unexpected status %s", s.URL, resp.Status)
	}
	return resp.Body, nil
}
