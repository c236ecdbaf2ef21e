package source

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

type file struct {
	text  string
	lines []string
}

// Reader loads spec files once and serves their text and lines to the parser and
// the reporters. It is safe for concurrent use.
type Reader struct {
	cache map[string]*file
	mutex sync.RWMutex
}

// NewReader creates a new source reader with caching
func NewReader() *Reader {
	return &Reader{
		cache: make(map[string]*file),
	}
}

// Read returns the full text of a file
func (r *Reader) Read(path string) (string, error) {
	f, err := r.load(path)
	if err != nil {
		return "", err
	}
	return f.text, nil
}

// GetLine retrieves a specific line from a file (1-based line numbering)
func (r *Reader) GetLine(path string, lineNum int) (string, error) {
	f, err := r.load(path)
	if err != nil {
		return "", err
	}

	if lineNum < 1 || lineNum > len(f.lines) {
		return "", fmt.Errorf("line %d out of range for file %s (max: %d)", lineNum, path, len(f.lines))
	}

	return f.lines[lineNum-1], nil
}

// GetLines retrieves a range of lines from a file (inclusive, 1-based line numbering)
func (r *Reader) GetLines(path string, start, end int) ([]string, error) {
	f, err := r.load(path)
	if err != nil {
		return nil, err
	}

	if start < 1 {
		start = 1
	}
	if end > len(f.lines) {
		end = len(f.lines)
	}
	if start > end {
		return []string{}, nil
	}

	return f.lines[start-1 : end], nil
}

func (r *Reader) load(path string) (*file, error) {
	r.mutex.RLock()
	if f, exists := r.cache[path]; exists {
		r.mutex.RUnlock()
		return f, nil
	}
	r.mutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	text := string(data)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if f, exists := r.cache[path]; exists {
		return f, nil
	}
	f := &file{text: text, lines: lines}
	r.cache[path] = f
	return f, nil
}

// RemoveFromCache drops a file so the next read goes to disk
func (r *Reader) RemoveFromCache(path string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.cache, path)
}
