package chunk

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// SQLChunker splits a SQL file into one chunk per statement (spec.md §4.2).
type SQLChunker struct{}

// NewSQLChunker creates a SQL statement chunker.
func NewSQLChunker() *SQLChunker {
	return &SQLChunker{}
}

// Chunk scans content for `;` statement terminators, respecting `'...'` and
// `"..."` string literals and `-- ...\n` line comments, and emits one chunk
// per non-empty statement tagged with a classification derived from its
// leading keyword.
func (s *SQLChunker) Chunk(filePath string, content string, modTime time.Time) []Chunk {
	fileName := filepath.Base(filePath)

	statements := splitSQLStatements(content)

	var chunks []Chunk
	for _, stmt := range statements {
		trimmed := strings.TrimSpace(stmt.text)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:           NewID(),
			FilePath:     filePath,
			FileName:     fileName,
			Content:      trimmed,
			StartLine:    stmt.startLine,
			EndLine:      stmt.endLine,
			LastModified: modTime,
			Language:     "sql",
			Tags:         []string{classifySQL(trimmed)},
		})
	}
	return chunks
}

type sqlStatement struct {
	text      string
	startLine int
	endLine   int
}

// splitSQLStatements scans content rune by rune, tracking line numbers via a
// running newline count (spec.md §9, "Open question — SQL line-number
// assignment": offset-tracked, not substring-matched).
func splitSQLStatements(content string) []sqlStatement {
	var statements []sqlStatement

	line := 1
	stmtStartLine := 1
	started := false
	var b strings.Builder

	runes := []rune(content)
	n := len(runes)

	flush := func(endLine int) {
		if strings.TrimSpace(b.String()) != "" {
			statements = append(statements, sqlStatement{
				text:      b.String(),
				startLine: stmtStartLine,
				endLine:   endLine,
			})
		}
		b.Reset()
		started = false
	}

	// markStart records the line a statement's first substantive character
	// landed on; leading blank lines and header comments between statements
	// never reach here, so stmtStartLine tracks real content, not separators.
	markStart := func() {
		if !started {
			started = true
			stmtStartLine = line
		}
	}

	for i := 0; i < n; i++ {
		c := runes[i]

		switch c {
		case '\n':
			line++
			if started {
				b.WriteRune(c)
			}
			continue
		case '\'', '"':
			markStart()
			quote := c
			b.WriteRune(c)
			i++
			for i < n {
				b.WriteRune(runes[i])
				if runes[i] == '\n' {
					line++
				}
				if runes[i] == quote {
					// Handle doubled-quote escape (e.g. 'it''s').
					if i+1 < n && runes[i+1] == quote {
						i++
						b.WriteRune(runes[i])
						i++
						continue
					}
					break
				}
				i++
			}
			continue
		case '-':
			if i+1 < n && runes[i+1] == '-' {
				// Line comment: consume through end of line, dropped from
				// the emitted statement text but its newline still counts.
				for i < n && runes[i] != '\n' {
					i++
				}
				if i < n {
					line++
					if started {
						b.WriteRune('\n')
					}
				}
				continue
			}
			markStart()
			b.WriteRune(c)
			continue
		case ';':
			markStart()
			b.WriteRune(c)
			flush(line)
			continue
		default:
			if unicode.IsSpace(c) {
				if started {
					b.WriteRune(c)
				}
				continue
			}
			markStart()
			b.WriteRune(c)
		}
	}
	flush(line)

	return statements
}

// classifySQL derives a tag from a statement's leading keyword(s).
func classifySQL(stmt string) string {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	upper = collapseWhitespace(upper)

	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return "table-definition"
	case strings.HasPrefix(upper, "CREATE PROCEDURE"), strings.HasPrefix(upper, "CREATE OR REPLACE PROCEDURE"):
		return "stored-procedure"
	case strings.HasPrefix(upper, "CREATE FUNCTION"), strings.HasPrefix(upper, "CREATE OR REPLACE FUNCTION"):
		return "function"
	case strings.HasPrefix(upper, "CREATE VIEW"), strings.HasPrefix(upper, "CREATE OR REPLACE VIEW"):
		return "view"
	case strings.HasPrefix(upper, "CREATE INDEX"), strings.HasPrefix(upper, "CREATE UNIQUE INDEX"):
		return "index"
	case strings.HasPrefix(upper, "ALTER TABLE"):
		return "table-modification"
	case strings.HasPrefix(upper, "INSERT INTO"):
		return "data-insert"
	case strings.HasPrefix(upper, "UPDATE"):
		return "data-update"
	case strings.HasPrefix(upper, "DELETE FROM"):
		return "data-delete"
	case strings.HasPrefix(upper, "SELECT"):
		return "query"
	case strings.HasPrefix(upper, "DROP"):
		return "drop-statement"
	case strings.HasPrefix(upper, "EXEC"):
		return "execution"
	default:
		return "sql-statement"
	}
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
