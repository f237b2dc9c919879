package parser

import (
	"path/filepath"
	"strings"
)

// Language represents a grammar family Code Connect files are parsed with.
type Language int

const (
	// LanguageTypeScript covers .ts, .tsx, .mts, .cts and .d.ts files
	LanguageTypeScript Language = iota
	// LanguageJavaScript covers .js, .jsx, .mjs and .cjs files
	LanguageJavaScript
	// LanguageUnknown represents an unsupported file
	LanguageUnknown
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage detects the grammar family from a file path.
// Returns LanguageUnknown if the file extension is not recognized.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsTSXFile checks if a file path represents a TSX file.
func IsTSXFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".tsx"
}

// LanguageForFile returns the grammar family and TSX flag for a path in one
// call, the pair ParserManager.Parse and QueryManager.GetQuery expect.
func LanguageForFile(filePath string) (Language, bool) {
	return DetectLanguage(filePath), IsTSXFile(filePath)
}
