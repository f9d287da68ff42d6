package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the SQL chunker:
// - A table definition followed by an insert yields two chunks, tagged
//   table-definition and data-insert respectively
// - String literals containing a semicolon don't split a statement early
// - A line comment doesn't contribute to statement text but its newline
//   still advances the line counter
// - Statement classification covers the common DDL/DML keywords

func TestSQLChunker_TableDefinitionThenInsert(t *testing.T) {
	s := NewSQLChunker()
	content := "CREATE TABLE t(id int);\nINSERT INTO t VALUES(1);"

	chunks := s.Chunk("schema.sql", content, time.Now())

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"table-definition"}, chunks[0].Tags)
	assert.Equal(t, []string{"data-insert"}, chunks[1].Tags)
	assert.Equal(t, "sql", chunks[0].Language)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 1, chunks[0].EndLine)
	assert.Equal(t, 2, chunks[1].StartLine)
	assert.Equal(t, 2, chunks[1].EndLine)
}

func TestSQLChunker_SemicolonInsideStringLiteralDoesNotSplit(t *testing.T) {
	s := NewSQLChunker()
	content := "INSERT INTO notes VALUES ('a;b');"

	chunks := s.Chunk("data.sql", content, time.Now())

	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"data-insert"}, chunks[0].Tags)
	assert.Contains(t, chunks[0].Content, "'a;b'")
}

func TestSQLChunker_LineCommentAdvancesLineNumberButIsDropped(t *testing.T) {
	s := NewSQLChunker()
	content := "-- a header comment\nSELECT 1;"

	chunks := s.Chunk("query.sql", content, time.Now())

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "header comment")
	assert.Equal(t, 2, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestSQLChunker_EmptyContentYieldsNoChunks(t *testing.T) {
	s := NewSQLChunker()
	assert.Empty(t, s.Chunk("empty.sql", "", time.Now()))
	assert.Empty(t, s.Chunk("empty.sql", "   \n  ", time.Now()))
}

func TestClassifySQL(t *testing.T) {
	cases := map[string]string{
		"CREATE TABLE users (id int)":       "table-definition",
		"CREATE PROCEDURE p() BEGIN END":    "stored-procedure",
		"CREATE FUNCTION f() RETURNS int":   "function",
		"CREATE VIEW v AS SELECT 1":         "view",
		"CREATE INDEX ix ON t(a)":           "index",
		"ALTER TABLE t ADD COLUMN a int":    "table-modification",
		"INSERT INTO t VALUES (1)":          "data-insert",
		"UPDATE t SET a = 1":                "data-update",
		"DELETE FROM t WHERE a = 1":         "data-delete",
		"SELECT * FROM t":                   "query",
		"DROP TABLE t":                      "drop-statement",
		"EXEC sp_helptext 'x'":              "execution",
		"BEGIN TRANSACTION":                 "sql-statement",
	}
	for stmt, want := range cases {
		assert.Equal(t, want, classifySQL(stmt), stmt)
	}
}
