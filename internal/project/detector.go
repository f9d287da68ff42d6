// Package project classifies a root directory into one of a fixed set of
// project archetypes from marker files (spec.md §4.1).
package project

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Type is a project archetype.
type Type string

const (
	DotNetCore      Type = "DotNetCore"
	DotNetFramework Type = "DotNetFramework"
	WebForms        Type = "WebForms"
	Python          Type = "Python"
	NodeJS          Type = "NodeJS"
	Angular         Type = "Angular"
	React           Type = "React"
	Vue             Type = "Vue"
	Java            Type = "Java"
	SQLDatabase     Type = "SQLDatabase"
	Mixed           Type = "Mixed"
	Unknown         Type = "Unknown"
)

// matches records which archetypes' markers were found under root.
type matches struct {
	dotNetCore      bool
	dotNetFramework bool
	webForms        bool
	python          bool
	nodeJS          bool
	angular         bool
	react           bool
	vue             bool
	java            bool
	sqlDatabase     bool
}

// Detect classifies root into exactly one Type. I/O errors are logged and
// resolve to Unknown, never returned as an error, matching spec.md's
// "never throws to caller" ethos at this boundary.
func Detect(root string) Type {
	m, err := collectMatches(root)
	if err != nil {
		log.Printf("project: failed to inspect %s: %v", root, err)
		return Unknown
	}
	return resolve(m)
}

func collectMatches(root string) (matches, error) {
	var m matches

	exists := func(rel string) bool {
		_, err := os.Stat(filepath.Join(root, rel))
		return err == nil
	}

	hasProperties := exists("Properties")
	hasProgramCS := exists("Program.cs")
	m.dotNetCore = hasProperties && hasProgramCS

	m.dotNetFramework = exists("packages.config") || exists("App.config")

	m.webForms = exists("App_Code") || exists("App_Data") || exists("Web.config")

	m.python = exists("requirements.txt") || exists("setup.py") || exists("Pipfile")

	m.angular = exists("angular.json")
	m.vue = exists("vue.config.js") || exists("nuxt.config.js")

	pkgPath := filepath.Join(root, "package.json")
	pkgData, pkgErr := os.ReadFile(pkgPath)
	hasPackageJSON := pkgErr == nil
	if hasPackageJSON {
		text := strings.ToLower(string(pkgData))
		if strings.Contains(text, "react") || strings.Contains(text, "react-dom") {
			m.react = true
		}
	}
	m.nodeJS = hasPackageJSON && !m.angular && !m.vue

	m.java = exists("pom.xml") || exists("build.gradle")

	sqlCount, err := countSQLFiles(root)
	if err != nil {
		return m, err
	}
	m.sqlDatabase = sqlCount > 5 || exists("database.sql") || exists("schema.sql")

	return m, nil
}

// countSQLFiles walks root counting *.sql files. Walk errors on individual
// entries are logged and skipped rather than aborting the whole count.
func countSQLFiles(root string) (int, error) {
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("project: error walking %s: %v", path, err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			count++
		}
		return nil
	})
	return count, err
}

// resolve applies the priority order from spec.md §4.1: WebForms >
// DotNetCore > Angular > React when multiple archetypes match; otherwise
// Mixed for more than one remaining match, Unknown for none.
func resolve(m matches) Type {
	if m.webForms {
		return WebForms
	}
	if m.dotNetCore {
		return DotNetCore
	}
	if m.angular {
		return Angular
	}
	if m.react {
		return React
	}

	var rest []Type
	if m.dotNetFramework {
		rest = append(rest, DotNetFramework)
	}
	if m.python {
		rest = append(rest, Python)
	}
	if m.nodeJS {
		rest = append(rest, NodeJS)
	}
	if m.vue {
		rest = append(rest, Vue)
	}
	if m.java {
		rest = append(rest, Java)
	}
	if m.sqlDatabase {
		rest = append(rest, SQLDatabase)
	}

	switch len(rest) {
	case 0:
		return Unknown
	case 1:
		return rest[0]
	default:
		return Mixed
	}
}
