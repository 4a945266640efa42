// Package testutil provides test data generators.
package testutil

import (
	"fmt"
	"math/rand"
)

// GenerateContent produces size deterministic pseudo-random bytes for the
// given seed. The same seed and size always yield the same bytes, so tests
// can verify transferred content without carrying fixtures around.
func GenerateContent(seed int64, size int) []byte {
	r := rand.New(rand.NewSource(seed))
	data := make([]byte, size)
	r.Read(data)
	return data
}

// GenerateTree produces a deterministic file tree of count files spread
// across a few nested directories. Keys are slash-separated relative paths.
func GenerateTree(seed int64, count int) map[string][]byte {
	r := rand.New(rand.NewSource(seed))
	dirs := []string{"", "docs/", "src/", "src/nested/"}

	tree := make(map[string][]byte, count)
	for i := 0; i < count; i++ {
		rel := fmt.Sprintf("%sfile-%03d.dat", dirs[i%len(dirs)], i)
		size := r.Intn(4096) + 1
		tree[rel] = GenerateContent(seed+int64(i), size)
	}
	return tree
}
