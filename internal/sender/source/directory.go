package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func NewDirectory(namespace []string, path string) (new *Directory, err error) {
	info, err := os.Stat(path)
	if err != nil {
		err = fmt.Errorf("failed to open frame directory: %w", err)
		return
	}
	if !info.IsDir() {
		err = fmt.Errorf("frame directory %q is not a directory", path)
		return
	}
	new = &Directory{
		Namespace: namespace,
		path:      path,
	}
	return
}

// Sorted JPEG file names in the directory
func (directory *Directory) scan() (files []string, err error) {
	entries, err := os.ReadDir(directory.path)
	if err != nil {
		err = fmt.Errorf("failed to list frame directory: %w", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		files = append(files, filepath.Join(directory.path, entry.Name()))
	}
	sort.Strings(files)
	return
}

// Reads the next file, rescanning the directory after each full pass
func (directory *Directory) Next(ctx context.Context) (frame []byte, err error) {
	err = ctx.Err()
	if err != nil {
		return
	}

	if directory.index >= len(directory.files) {
		directory.files, err = directory.scan()
		directory.index = 0
		if err != nil {
			directory.Metrics.record(nil, err)
			return
		}
	}
	if len(directory.files) == 0 {
		err = fmt.Errorf("%w in %s", ErrNoFrames, directory.path)
		directory.Metrics.record(nil, err)
		return
	}

	file := directory.files[directory.index]
	directory.index++

	frame, err = os.ReadFile(file)
	if err != nil {
		err = fmt.Errorf("failed to read frame file: %w", err)
	}
	directory.Metrics.record(frame, err)
	return
}

func (directory *Directory) Close() (err error) {
	return
}
