package crawl

import (
	"log"
	"os"
	"strings"

	"github.com/sourcelens/coderag/internal/chunk"
)

// databaseExtensions are the non-.sql file types a SQLDatabase-archetype
// tree still wants scanned (migration/dump files under other tool naming).
var databaseExtensions = map[string]bool{
	".sql": true, ".ddl": true, ".dml": true, ".psql": true,
}

// SQLCrawler is the specialized crawler for the SQLDatabase archetype: it
// scans only SQL/database files and always chunks with the statement
// splitter, regardless of extension (spec.md §4.3).
type SQLCrawler struct {
	sql *chunk.SQLChunker
}

// NewSQLCrawler builds the SQL-archetype crawler.
func NewSQLCrawler() *SQLCrawler {
	return &SQLCrawler{sql: chunk.NewSQLChunker()}
}

// Scan enumerates only files with a database extension.
func (c *SQLCrawler) Scan(root string, excludePatterns []string) ([]string, error) {
	return scan(root, excludePatterns, func(path, ext string) bool {
		return databaseExtensions[ext]
	})
}

// Process reads path and splits it into one chunk per SQL statement.
func (c *SQLCrawler) Process(path string) []chunk.Chunk {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("crawl: stat %s: %v", path, err)
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

	return c.sql.Chunk(path, content, info.ModTime().UTC())
}
