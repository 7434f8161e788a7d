// Package extract picks a PascalCase component name out of document text at a
// cursor offset.
package extract

// MinLength is the shortest identifier accepted as a component name.
const MinLength = 2

// builtins holds capitalized identifiers that are language or framework
// built-ins rather than user components.
var builtins = map[string]struct{}{
	"Array": {}, "ArrayBuffer": {}, "Boolean": {}, "DataView": {}, "Date": {},
	"Error": {}, "EvalError": {}, "Float32Array": {}, "Float64Array": {},
	"Function": {}, "Generator": {}, "GeneratorFunction": {},
	"Int8Array": {}, "Int16Array": {}, "Int32Array": {}, "Infinity": {},
	"JSON": {}, "Map": {}, "Math": {}, "NaN": {}, "Number": {}, "Object": {},
	"Promise": {}, "Proxy": {}, "RangeError": {}, "ReferenceError": {},
	"Reflect": {}, "RegExp": {}, "Set": {}, "SharedArrayBuffer": {},
	"String": {}, "Symbol": {}, "SyntaxError": {}, "TypeError": {},
	"URIError": {}, "Uint8Array": {}, "Uint8ClampedArray": {},
	"Uint16Array": {}, "Uint32Array": {}, "WeakMap": {}, "WeakSet": {},

	// React and DOM intrinsics.
	"React": {}, "Component": {}, "Fragment": {}, "Suspense": {},
	"StrictMode": {}, "Profiler": {}, "Element": {}, "HTMLElement": {},
	"SVGElement": {}, "Event": {}, "Document": {}, "Window": {}, "Node": {},
	"NodeList": {}, "Console": {},
}

// IsBuiltin reports whether name is on the built-in denylist.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Valid reports whether name is an acceptable component name on its own:
// uppercase first letter, alphanumeric, at least MinLength long and not a
// built-in.
func Valid(name string) bool {
	if len(name) < MinLength || !isUpper(name[0]) {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isAlnum(name[i]) {
			return false
		}
	}
	return !IsBuiltin(name)
}

// Extract returns the component name whose alphanumeric run contains offset.
// The run's end is inclusive, so a cursor placed directly after the last
// character still selects the word. offset is a byte offset into text.
func Extract(text string, offset int) (string, bool) {
	start, end, ok := Span(text, offset)
	if !ok {
		return "", false
	}
	word := text[start:end]
	if !Valid(word) {
		return "", false
	}
	return word, true
}

// Span returns the bounds of the alphanumeric run touching offset.
func Span(text string, offset int) (start, end int, ok bool) {
	if offset < 0 || offset > len(text) {
		return 0, 0, false
	}
	start, end = offset, offset
	for start > 0 && isAlnum(text[start-1]) {
		start--
	}
	for end < len(text) && isAlnum(text[end]) {
		end++
	}
	if start == end {
		return 0, 0, false
	}
	return start, end, true
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isAlnum(c byte) bool {
	return isUpper(c) || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
