package wiki

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/ppiankov/wikipub/internal/model"
)

// ReadTitlesFromFile reads page titles from a file (one per line). Blank
// lines and "#" comments are skipped and duplicates dropped.
func ReadTitlesFromFile(filePath string) ([]model.PagePath, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var titles []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		titles = append(titles, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ParseTitles(titles), nil
}

// ParseTitles normalises titles, skipping blanks and comments and dropping
// duplicates while keeping the first-seen order
func ParseTitles(titles []string) []model.PagePath {
	var paths []model.PagePath
	seen := make(map[string]bool)

	for _, line := range titles {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		path := model.ParsePath(line)
		if path.IsZero() || seen[path.String()] {
			continue
		}
		seen[path.String()] = true
		paths = append(paths, path)
	}
	return paths
}

// FromPaths turns a fixed list into a page feed
func FromPaths(paths []model.PagePath) iter.Seq2[model.PagePath, error] {
	return func(yield func(model.PagePath, error) bool) {
		for _, p := range paths {
			if !yield(p, nil) {
				return
			}
		}
	}
}
