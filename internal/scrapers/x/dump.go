package x

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// responseDump writes every GraphQL response body to a directory, numbered in the order the
// requests were made. The files double as test fixtures.
type responseDump struct {
	directory string
	counter   *uint64
}

func newResponseDump(dir string) (responseDump, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return responseDump{}, fmt.Errorf("create dump dir: %w", err)
	}
	var counter uint64
	return responseDump{directory: dir, counter: &counter}, nil
}

func (d responseDump) write(operation string, body []byte) (string, error) {
	id := atomic.AddUint64(d.counter, 1)
	path := filepath.Join(d.directory, fmt.Sprintf("%04d-%s.json", id, operation))
	return path, os.WriteFile(path, body, 0644)
}
