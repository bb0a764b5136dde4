package clone

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Store writes rewritten pages under the clone root:
//
//	<root>/index.html
//	<root>/series-<n>/index.html
//	<root>/p/<id>.html
type Store struct {
	root     string
	rewriter *Rewriter
}

// NewStore creates a Store writing below root.
func NewStore(root string, rewriter *Rewriter) *Store {
	return &Store{root: root, rewriter: rewriter}
}

// Root returns the clone root directory.
func (s *Store) Root() string {
	return s.root
}

// SaveDetail stores the detail page of id and returns its path.
func (s *Store) SaveDetail(id string, page []byte) (string, error) {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", fmt.Errorf("invalid detail id %q", id)
	}
	return s.save(filepath.Join(s.root, "p", id+".html"), page)
}

// SaveIndex stores the homepage and returns its path.
func (s *Store) SaveIndex(page []byte) (string, error) {
	return s.save(filepath.Join(s.root, "index.html"), page)
}

// SaveSeries stores the listing page of series n and returns its path.
func (s *Store) SaveSeries(n int, page []byte) (string, error) {
	return s.save(filepath.Join(s.root, fmt.Sprintf("series-%d", n), "index.html"), page)
}

func (s *Store) save(path string, page []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create clone directory: %w", err)
	}
	out := s.rewriter.Rewrite(string(page))
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return "", fmt.Errorf("write clone page %s: %w", path, err)
	}
	return path, nil
}
