package crawl

import "github.com/sourcelens/coderag/internal/project"

// ForArchetype returns the crawler specialized for the detected project
// type. SQLDatabase is the only truly specialized variant; every other
// archetype reuses the generic crawler (spec.md §4.3).
func ForArchetype(archetype project.Type) Crawler {
	if archetype == project.SQLDatabase {
		return NewSQLCrawler()
	}
	return NewGenericCrawler()
}
