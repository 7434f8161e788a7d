//go:build treesitter

package resolve

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

func registerTreeSitter(reg *Registry) {
	reg.Register("treesitter", func() (Scanner, error) { return TreeSitterScanner{}, nil })
}

// TreeSitterScanner parses the text with the TSX grammar, so imports inside
// comments and strings are ignored.
type TreeSitterScanner struct{}

// Name implements Scanner.
func (TreeSitterScanner) Name() string { return "treesitter" }

// Scan implements Scanner. Unparseable text yields no imports.
func (TreeSitterScanner) Scan(text string) []Import {
	content := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(tsx.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	defer tree.Close()

	var imports []Import
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_statement" {
			continue
		}
		if imp, ok := importStatement(child, content); ok {
			imports = append(imports, imp)
		}
	}
	return imports
}

func importStatement(node *sitter.Node, content []byte) (Import, bool) {
	var imp Import
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type":
			imp.TypeOnly = true
		case "import_clause":
			importClause(child, content, &imp)
		case "string":
			imp.Path = stringContent(child, content)
		}
	}
	if imp.Path == "" {
		return Import{}, false
	}
	return imp, true
}

func importClause(node *sitter.Node, content []byte, imp *Import) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			imp.Default = child.Content(content)
		case "namespace_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == "identifier" {
					imp.Namespace = gc.Content(content)
				}
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				for k := 0; k < int(spec.ChildCount()); k++ {
					if id := spec.Child(k); id.Type() == "identifier" {
						imp.Named = append(imp.Named, id.Content(content))
					}
				}
			}
		}
	}
}

func stringContent(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "string_fragment" {
			return child.Content(content)
		}
	}
	return strings.Trim(node.Content(content), `"'`)
}
