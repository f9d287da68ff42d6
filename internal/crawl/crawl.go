// Package crawl enumerates files under a project root and dispatches each
// one to the chunking strategy appropriate for its extension (spec.md §4.3).
package crawl

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/sourcelens/coderag/internal/chunk"
)

// maxFileSize is the per-file read cap; larger files are skipped and logged
// rather than loaded whole into memory.
const maxFileSize = 1 << 20 // ~1 MiB

// binaryExtensions are never read as text, regardless of exclude patterns.
var binaryExtensions = map[string]bool{
	".dll": true, ".pdb": true, ".bin": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".zip": true, ".7z": true, ".tar": true, ".gz": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// implicitExcludes are always applied in addition to caller-supplied
// patterns, expressed slash-normalized for case-insensitive substring match.
var implicitExcludes = []string{"/bin/", "/obj/", "/.git/", "/node_modules/"}

// Crawler enumerates a project tree and turns files into chunks.
type Crawler interface {
	Scan(root string, excludePatterns []string) ([]string, error)
	Process(path string) []chunk.Chunk
}

// GenericCrawler is the default crawler: every archetype except SQLDatabase
// uses it (spec.md §4.3).
type GenericCrawler struct {
	structured *chunk.StructuredChunker
	generic    *chunk.GenericChunker
	sql        *chunk.SQLChunker
}

// NewGenericCrawler builds a crawler wired with all three chunking
// strategies, dispatching between them by file extension.
func NewGenericCrawler() *GenericCrawler {
	return &GenericCrawler{
		structured: chunk.NewStructuredChunker(),
		generic:    chunk.NewGenericChunker(),
		sql:        chunk.NewSQLChunker(),
	}
}

// Scan recursively walks root, returning a finite, order-stable list of
// paths that pass the binary-extension and exclude-pattern filters. Walk
// errors on individual entries are logged and skipped, not fatal.
func (c *GenericCrawler) Scan(root string, excludePatterns []string) ([]string, error) {
	return scan(root, excludePatterns, func(path string, ext string) bool {
		return !binaryExtensions[ext]
	})
}

// Process reads path and dispatches it to the chunker appropriate for its
// extension, stamping every emitted chunk with the file's UTC mtime. I/O
// errors and oversize files yield zero chunks and are logged, never
// propagated to the caller.
func (c *GenericCrawler) Process(path string) []chunk.Chunk {
	ext := strings.ToLower(filepath.Ext(path))

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("crawl: stat %s: %v", path, err)
		return nil
	}
	modTime := info.ModTime().UTC()

	if ext == ".exe" {
		return []chunk.Chunk{exeMetadataChunk(path, info, modTime)}
	}

	if binaryExtensions[ext] {
		return nil
	}

	if info.Size() > maxFileSize {
		log.Printf("crawl: skipping %s: exceeds %d byte cap", path, maxFileSize)
		return nil
	}

	content, err := chunk.ReadFile(path)
	if err != nil {
		log.Printf("crawl: read %s: %v", path, err)
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return c.chunkContent(path, ext, content, modTime)
}

func (c *GenericCrawler) chunkContent(path, ext, content string, modTime time.Time) []chunk.Chunk {
	if ext == ".sql" {
		return c.sql.Chunk(path, content, modTime)
	}
	if c.structured.Claims(path) {
		if chunks := c.structured.Chunk(path, content, modTime); len(chunks) > 0 {
			return chunks
		}
		// Parse failure: fall through to the generic line chunker.
	}
	return c.generic.Chunk(path, content, modTime)
}

// exeMetadataChunk synthesizes a chunk describing an executable without
// reading its bytes (spec.md §4.2, "Binary-exe handling").
func exeMetadataChunk(path string, info os.FileInfo, modTime time.Time) chunk.Chunk {
	return chunk.Chunk{
		ID:           chunk.NewID(),
		FilePath:     path,
		FileName:     filepath.Base(path),
		Content:      filepath.Base(path),
		StartLine:    1,
		EndLine:      1,
		LastModified: modTime,
		Language:     "binary",
		Tags:         []string{"executable-metadata"},
	}
}

// scan is shared by GenericCrawler and the SQL-archetype crawler; include
// decides whether a non-excluded path with the given lowercase extension is
// kept.
func scan(root string, excludePatterns []string, include func(path, ext string) bool) ([]string, error) {
	patterns := buildExcludeMatchers(excludePatterns)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Printf("crawl: walk error at %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if matchesExclude(path, patterns) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !include(path, ext) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// excludeMatcher is either a plain case-insensitive substring or a compiled
// glob, depending on whether the source pattern carries glob metacharacters.
type excludeMatcher struct {
	substr string
	g      glob.Glob
}

func buildExcludeMatchers(patterns []string) []excludeMatcher {
	all := make([]string, 0, len(patterns)+len(implicitExcludes))
	all = append(all, implicitExcludes...)
	all = append(all, patterns...)

	matchers := make([]excludeMatcher, 0, len(all))
	for _, p := range all {
		if p == "" {
			continue
		}
		lower := strings.ToLower(p)
		if strings.ContainsAny(lower, "*?[") {
			if g, err := glob.Compile(lower); err == nil {
				matchers = append(matchers, excludeMatcher{g: g})
				continue
			}
			// Malformed glob: fall back to a literal substring match.
		}
		matchers = append(matchers, excludeMatcher{substr: lower})
	}
	return matchers
}

func matchesExclude(path string, matchers []excludeMatcher) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, m := range matchers {
		if m.g != nil {
			if m.g.Match(lower) {
				return true
			}
			continue
		}
		if strings.Contains(lower, m.substr) {
			return true
		}
	}
	return false
}
