package watcher

import (
	"fmt"
	"os"
)

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read subgraph schema file %q: %w", path, err)
	}
	return string(b), nil
}
