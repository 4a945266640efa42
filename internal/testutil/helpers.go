// Package testutil provides test helper functions.
package testutil

import (
	"fmt"
	"math/rand"
	"path"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// SeedFilesystem writes every entry of tree into fsys under root, creating
// parent directories as needed. Keys are slash-separated relative paths.
func SeedFilesystem(fsys fs.Filesystem, root string, tree map[string][]byte) error {
	for rel, content := range tree {
		full := path.Join(root, rel)
		if err := fsys.MkdirAll(path.Dir(full), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", full, err)
		}
		if err := fsys.WriteFile(full, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", full, err)
		}
	}
	return nil
}

// GenerateTestPath generates a unique file name with an optional prefix.
// This helps ensure test isolation when tests share a server.
func GenerateTestPath(prefix string) string {
	if prefix == "" {
		prefix = "test"
	}
	random := rand.Int63n(100000) //nolint:gosec // test path uniqueness only
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), random)
}
