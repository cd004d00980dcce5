// Package bundle runs the decode, symbol and materialize passes for one
// bundle file.
package bundle

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/1siamBot/furni-extractor/engine/extract"
	"github.com/1siamBot/furni-extractor/engine/swf"
	"github.com/1siamBot/furni-extractor/engine/symbols"
)

// Extension is the file extension of bundle containers
const Extension = ".swf"

// FatalError aborts a whole bundle before any asset is written
type FatalError struct {
	Bundle string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("bundle %s: %v", e.Bundle, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Driver extracts bundles into OutputDir/<base name>/
type Driver struct {
	OutputDir    string
	Materializer extract.Materializer
}

// Process decodes data and writes its assets. A malformed container or
// an unusable symbol table returns a *FatalError and touches nothing on
// disk; asset level problems are reported in the outcome.
func (d *Driver) Process(ctx context.Context, data []byte, baseName string) (*extract.Outcome, error) {
	movie, err := swf.Decode(data)
	if err != nil {
		return nil, &FatalError{Bundle: baseName, Err: err}
	}
	table, err := symbols.Build(movie.Tags, baseName)
	if err != nil {
		return nil, &FatalError{Bundle: baseName, Err: err}
	}
	dir := extract.OSDir(filepath.Join(d.OutputDir, baseName))
	return d.Materializer.Run(ctx, baseName, movie.Tags, table, dir)
}

// ProcessFile reads a bundle from disk and processes it under its stem
func (d *Driver) ProcessFile(ctx context.Context, path string) (*extract.Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %s: %w", path, err)
	}
	return d.Process(ctx, data, BaseName(path))
}

// BaseName returns the file stem of a bundle path
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists every bundle under root, recursively, in lexical order
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering bundles in %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
