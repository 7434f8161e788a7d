package resolve

import (
	"regexp"
	"slices"
	"strings"
)

// Import is one ES module import statement.
type Import struct {
	Path      string   // module specifier as written
	Default   string   // default binding, if any
	Named     []string // names inside braces; both sides of "a as b" are kept
	Namespace string   // "* as ns" binding, if any
	TypeOnly  bool
}

// Binds reports whether the import introduces name as a default or named
// binding. Namespace bindings never name a single component.
func (imp Import) Binds(name string) bool {
	return imp.Default == name || slices.Contains(imp.Named, name)
}

// Scanner lists the import statements of a source text in source order.
type Scanner interface {
	Name() string
	Scan(text string) []Import
}

var (
	importRe     = regexp.MustCompile(`\bimport\s+(type\s+)?([^'";]*?)\s*\bfrom\s*['"]([^'"]+)['"]`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// RegexpScanner recognizes imports with a regular expression over the raw
// text. It does not understand comments or strings.
type RegexpScanner struct{}

// Name implements Scanner.
func (RegexpScanner) Name() string { return "regexp" }

// Scan implements Scanner.
func (RegexpScanner) Scan(text string) []Import {
	var imports []Import
	for _, m := range importRe.FindAllStringSubmatch(text, -1) {
		imp, ok := parseClause(m[2])
		if !ok {
			continue
		}
		imp.TypeOnly = m[1] != ""
		imp.Path = m[3]
		imports = append(imports, imp)
	}
	return imports
}

// parseClause splits an import clause such as `Hero, { A, B as C }` or
// `* as ns` into its bindings.
func parseClause(clause string) (Import, bool) {
	var imp Import
	clause = strings.TrimSpace(clause)
	if open := strings.IndexByte(clause, '{'); open >= 0 {
		closing := strings.LastIndexByte(clause, '}')
		if closing < open {
			return Import{}, false
		}
		for _, spec := range strings.Split(clause[open+1:closing], ",") {
			fields := strings.Fields(spec)
			if len(fields) > 0 && fields[0] == "type" {
				fields = fields[1:]
			}
			for _, f := range fields {
				if f != "as" && identifierRe.MatchString(f) {
					imp.Named = append(imp.Named, f)
				}
			}
		}
		clause = clause[:open] + clause[closing+1:]
	}
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "*"):
			fields := strings.Fields(strings.TrimPrefix(part, "*"))
			if len(fields) == 2 && fields[0] == "as" && identifierRe.MatchString(fields[1]) {
				imp.Namespace = fields[1]
			}
		case identifierRe.MatchString(part):
			imp.Default = part
		default:
			return Import{}, false
		}
	}
	if imp.Default == "" && imp.Namespace == "" && len(imp.Named) == 0 {
		return Import{}, false
	}
	return imp, true
}
