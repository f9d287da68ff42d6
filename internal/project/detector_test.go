package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the project-type detector:
// - DotNetCore requires both Properties/ and Program.cs
// - WebForms outranks DotNetCore when both match
// - React is detected from package.json text, NodeJS excludes Angular/Vue
// - SQLDatabase triggers on >5 *.sql files or a schema.sql/database.sql marker
// - Multiple non-priority matches resolve to Mixed
// - No markers resolves to Unknown
// - A missing root resolves to Unknown without panicking

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
}

func TestDetect_DotNetCoreRequiresBothMarkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Properties"), 0o755))
	assert.Equal(t, Unknown, Detect(dir)) // missing Program.cs

	touch(t, filepath.Join(dir, "Program.cs"))
	assert.Equal(t, DotNetCore, Detect(dir))
}

func TestDetect_WebFormsOutranksDotNetCore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Properties"), 0o755))
	touch(t, filepath.Join(dir, "Program.cs"))
	touch(t, filepath.Join(dir, "Web.config"))

	assert.Equal(t, WebForms, Detect(dir))
}

func TestDetect_ReactFromPackageJSONText(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "package.json"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"dependencies":{"react":"18.0.0"}}`), 0o644))

	assert.Equal(t, React, Detect(dir))
}

func TestDetect_NodeJSExcludesAngularAndVue(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "package.json"))
	touch(t, filepath.Join(dir, "angular.json"))

	assert.Equal(t, Angular, Detect(dir))

	// Vue has no priority over NodeJS, so a non-excluded NodeJS match would
	// resolve to Mixed here.
	vueDir := t.TempDir()
	touch(t, filepath.Join(vueDir, "package.json"))
	touch(t, filepath.Join(vueDir, "vue.config.js"))

	assert.Equal(t, Vue, Detect(vueDir))
}

func TestDetect_SQLDatabaseFromFileCount(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		touch(t, filepath.Join(dir, "migrations", "m"+string(rune('0'+i))+".sql"))
	}

	assert.Equal(t, SQLDatabase, Detect(dir))
}

func TestDetect_SQLDatabaseFromSchemaMarker(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "schema.sql"))

	assert.Equal(t, SQLDatabase, Detect(dir))
}

func TestDetect_MultipleNonPriorityMatchesIsMixed(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "requirements.txt"))
	touch(t, filepath.Join(dir, "pom.xml"))

	assert.Equal(t, Mixed, Detect(dir))
}

func TestDetect_NoMarkersIsUnknown(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, Unknown, Detect(dir))
}

func TestDetect_MissingRootIsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Detect(filepath.Join(t.TempDir(), "does-not-exist")))
}
