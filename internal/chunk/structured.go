package chunk

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// StructuredChunker parses a source file into a syntax tree and emits one
// chunk per method declaration (spec.md §4.2). No C# grammar exists in the
// retrieval pack this module was built from; tree-sitter-java's
// class_declaration/method_declaration shape is the closest available match
// for a "C#-family" curly-brace, class-and-method language, and is used as
// the parsing engine here regardless of the chunk's reported language tag
// (which is always the extension-derived tag, e.g. "csharp").
type StructuredChunker struct {
	language *sitter.Language
}

// NewStructuredChunker creates a structured chunker backed by the
// tree-sitter Java grammar.
func NewStructuredChunker() *StructuredChunker {
	return &StructuredChunker{
		language: sitter.NewLanguage(java.Language()),
	}
}

// Extensions this chunker claims first; everything else falls back to the
// generic line chunker per spec.md §4.2's Non-goal on multi-language parsing.
var structuredExtensions = map[string]bool{
	".cs": true,
}

// Claims reports whether the structured chunker should be tried for path.
func (s *StructuredChunker) Claims(path string) bool {
	return structuredExtensions[strings.ToLower(filepath.Ext(path))]
}

// Chunk parses source and emits one chunk per method declaration found,
// tagged ["method"] with function_name/class_name populated. If the file
// contains no method declarations, a single file-level chunk covering the
// entire text is emitted, tagged ["file-level"]. A parse failure yields no
// chunks; the caller is expected to fall back to the generic chunker.
func (s *StructuredChunker) Chunk(filePath string, content string, modTime time.Time) []Chunk {
	source := []byte(content)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(s.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil
	}

	lang := LanguageForPath(filePath)
	fileName := filepath.Base(filePath)
	lines := splitKeepingLines(content)

	var methods []Chunk
	walkMethods(root, source, func(methodNode *sitter.Node, className string) {
		nameNode := methodNode.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		funcName := nodeText(nameNode, source)
		startLine := int(methodNode.StartPosition().Row) + 1
		endLine := int(methodNode.EndPosition().Row) + 1

		methods = append(methods, Chunk{
			ID:           NewID(),
			FilePath:     filePath,
			FileName:     fileName,
			Content:      linesBetween(lines, startLine, endLine),
			StartLine:    startLine,
			EndLine:      endLine,
			LastModified: modTime,
			Language:     lang,
			FunctionName: funcName,
			ClassName:    className,
			Tags:         []string{"method"},
		})
	})

	if len(methods) > 0 {
		return methods
	}

	endLine := int(root.EndPosition().Row) + 1
	if endLine < 1 {
		endLine = 1
	}
	return []Chunk{{
		ID:           NewID(),
		FilePath:     filePath,
		FileName:     fileName,
		Content:      content,
		StartLine:    1,
		EndLine:      endLine,
		LastModified: modTime,
		Language:     lang,
		Tags:         []string{"file-level"},
	}}
}

// walkMethods recursively visits the tree looking for class-like bodies and
// the method declarations inside them, calling visit(methodNode, className)
// for each. Nested classes get their own className scope.
func walkMethods(node *sitter.Node, source []byte, visit func(*sitter.Node, string)) {
	var recurse func(n *sitter.Node, enclosingClass string)
	recurse = func(n *sitter.Node, enclosingClass string) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			className := enclosingClass
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				className = nodeText(nameNode, source)
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				recurse(n.Child(uint(i)), className)
			}
			return
		case "method_declaration", "constructor_declaration":
			visit(n, enclosingClass)
			// Methods don't nest methods; still recurse for local/anonymous
			// classes defined inside a method body.
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			recurse(n.Child(uint(i)), enclosingClass)
		}
	}
	recurse(node, "")
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

func linesBetween(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// ReadFile reads a file's content as a string. The crawlers use it to load a
// whole file before handing it to a chunker (structured and SQL chunking
// both need the whole statement/method span in memory).
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
