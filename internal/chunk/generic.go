package chunk

import (
	"path/filepath"
	"strings"
	"time"
)

// TargetChunkSize is the target chunk size in characters used by the
// generic chunker. The structured chunker's file-level fallback emits the
// whole file and is not bounded by it.
const TargetChunkSize = 2000

// SQLTargetChunkSize is the larger target size for SQL/database files. No
// chunker applies it: the SQL chunker emits one chunk per statement
// regardless of the statement's length.
const SQLTargetChunkSize = 3000

// languageByExt maps a lower-cased file extension to the language tag used
// on emitted chunks.
var languageByExt = map[string]string{
	".cs":         "csharp",
	".cshtml":     "razor",
	".razor":      "razor",
	".html":       "html",
	".htm":        "html",
	".js":         "javascript",
	".jsx":        "javascript",
	".mjs":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".py":         "python",
	".sql":        "sql",
	".json":       "json",
	".xml":        "xml",
	".csproj":     "xml",
	".yml":        "yaml",
	".yaml":       "yaml",
	".md":         "markdown",
	".markdown":   "markdown",
	".txt":        "text",
	".config":     "xml",
}

// LanguageForPath returns the language tag for a file path, derived from its
// extension. Unrecognized extensions map to "text".
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "text"
}

// GenericChunker is the size-bounded line chunker used for every file the
// structured and SQL chunkers don't claim (spec.md §4.2).
type GenericChunker struct {
	// TargetSize is the approximate character budget per chunk.
	TargetSize int
}

// NewGenericChunker creates a generic chunker with the default target size.
func NewGenericChunker() *GenericChunker {
	return &GenericChunker{TargetSize: TargetChunkSize}
}

// Chunk walks content line by line, accumulating into the current chunk;
// when appending the next line would exceed the target size and the current
// chunk is non-empty, it emits the chunk and starts a new one at the next
// line. There is no overlap between chunks.
func (g *GenericChunker) Chunk(filePath string, content string, modTime time.Time) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	target := g.TargetSize
	if target <= 0 {
		target = TargetChunkSize
	}

	lang := LanguageForPath(filePath)
	fileName := filepath.Base(filePath)

	lines := splitKeepingLines(content)

	var chunks []Chunk
	var b strings.Builder
	startLine := 1
	curLine := 1

	flush := func(endLine int) {
		if b.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			ID:           NewID(),
			FilePath:     filePath,
			FileName:     fileName,
			Content:      b.String(),
			StartLine:    startLine,
			EndLine:      endLine,
			LastModified: modTime,
			Language:     lang,
		})
		b.Reset()
	}

	for i, line := range lines {
		lineNo := i + 1
		if b.Len() > 0 && b.Len()+len(line) > target {
			flush(curLine)
			startLine = lineNo
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		curLine = lineNo
	}
	flush(curLine)

	return chunks
}

// splitKeepingLines splits content into lines without the trailing newline
// characters, dropping a single final empty element caused by a trailing
// newline in the source (so EndLine reflects the last line with content).
func splitKeepingLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
