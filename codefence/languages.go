package codefence

import "strings"

// fileExts maps lowercase language ids to file extensions.
var fileExts = map[string]string{
	"c#":            "cs",
	"csharp":        "cs",
	"c++":           "cpp",
	"cpp":           "cpp",
	"c":             "c",
	"java":          "java",
	"javascript":    "js",
	"js":            "js",
	"kotlin":        "kt",
	"kt":            "kt",
	"python":        "py",
	"py":            "py",
	"ruby":          "rb",
	"rb":            "rb",
	"swift":         "swift",
	"typescript":    "ts",
	"ts":            "ts",
	"markdown":      "md",
	"md":            "md",
	"sql":           "sql",
	"plantuml":      "puml",
	"puml":          "puml",
	"shell":         "sh",
	"bash":          "sh",
	"sh":            "sh",
	"shell script":  "sh",
	"objective-c":   "m",
	"objective-c++": "mm",
	"go":            "go",
	"html":          "html",
	"css":           "css",
	"dart":          "dart",
	"scala":         "scala",
	"rust":          "rs",
	"rs":            "rs",
	"http request":  "http",
	"http":          "http",
	"devin":         "devin",
	"devins":        "devin",
	"json":          "json",
	"yaml":          "yaml",
	"yml":           "yaml",
	"xml":           "xml",
	"toml":          "toml",
	"dockerfile":    "dockerfile",
}

// displayNames maps file extensions to human readable language names.
var displayNames = map[string]string{
	"cs":    "C#",
	"cpp":   "C++",
	"c":     "C",
	"java":  "Java",
	"js":    "JavaScript",
	"kt":    "Kotlin",
	"py":    "Python",
	"rb":    "Ruby",
	"swift": "Swift",
	"ts":    "TypeScript",
	"md":    "Markdown",
	"sql":   "SQL",
	"puml":  "PlantUML",
	"sh":    "Shell Script",
	"m":     "Objective-C",
	"mm":    "Objective-C++",
	"go":    "Go",
	"html":  "HTML",
	"css":   "CSS",
	"dart":  "Dart",
	"scala": "Scala",
	"rs":    "Rust",
	"http":  "HTTP Request",
	"devin": "DevIns",
	"json":  "JSON",
	"yaml":  "YAML",
	"xml":   "XML",
	"toml":  "TOML",
}

// LookupFileExt returns the file extension for a language id. Unknown ids
// are returned unchanged.
func LookupFileExt(languageID string) string {
	if ext, ok := fileExts[strings.ToLower(languageID)]; ok {
		return ext
	}
	return languageID
}

// DisplayNameByExt returns the language name for a file extension, or the
// upper-cased extension when it is unknown.
func DisplayNameByExt(ext string) string {
	if name, ok := displayNames[strings.ToLower(ext)]; ok {
		return name
	}
	return strings.ToUpper(ext)
}
