// Package language detects the dominant programming languages of a
// workspace. Detection is a closed registration table: each language lists
// file extensions plus content marker tokens, and a file counts only when
// both agree. Adding a language is a table edit.
package language

import (
	"sort"
)

// Language identifies one supported language.
type Language string

const (
	Go         Language = "go"
	Java       Language = "java"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Ruby       Language = "ruby"
	Rust       Language = "rust"
)

// profile describes how files of a language are recognized. A file must
// carry a listed extension and contain at least one marker token within its
// first kilobyte; extension alone is not sufficient, which keeps generated
// and template files from being misclassified.
type profile struct {
	extensions []string
	markers    [][]byte
}

var profiles = map[Language]profile{
	Go: {
		extensions: []string{".go"},
		markers:    [][]byte{[]byte("package "), []byte("func "), []byte("import ")},
	},
	Java: {
		extensions: []string{".java"},
		markers:    [][]byte{[]byte("package "), []byte("import java"), []byte("class "), []byte("interface ")},
	},
	Python: {
		extensions: []string{".py"},
		markers:    [][]byte{[]byte("import "), []byte("def "), []byte("from "), []byte("class ")},
	},
	JavaScript: {
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		markers:    [][]byte{[]byte("function"), []byte("const "), []byte("let "), []byte("var "), []byte("require("), []byte("export ")},
	},
	TypeScript: {
		extensions: []string{".ts", ".tsx"},
		markers:    [][]byte{[]byte("interface "), []byte("type "), []byte("function"), []byte("const "), []byte("import "), []byte("export ")},
	},
	Ruby: {
		extensions: []string{".rb", ".rake"},
		markers:    [][]byte{[]byte("def "), []byte("require "), []byte("class "), []byte("module ")},
	},
	Rust: {
		extensions: []string{".rs"},
		markers:    [][]byte{[]byte("fn "), []byte("use "), []byte("pub "), []byte("struct "), []byte("mod ")},
	},
}

// byExtension maps each registered extension to its language.
var byExtension = func() map[string]Language {
	m := make(map[string]Language)
	for lang, p := range profiles {
		for _, ext := range p.extensions {
			m[ext] = lang
		}
	}
	return m
}()

// Known returns all registered languages, sorted.
func Known() []Language {
	langs := make([]Language, 0, len(profiles))
	for lang := range profiles {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Parse resolves a caller-supplied language name against the registration
// table.
func Parse(name string) (Language, bool) {
	lang := Language(name)
	_, ok := profiles[lang]
	return lang, ok
}
