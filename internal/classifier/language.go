package classifier

import (
	"path"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/patterns"
)

// languageByExt maps lower-case extensions to the language tag stored on
// feature records and accepted by the lang search filter.
var languageByExt = map[string]string{
	".cs":      "csharp",
	".csx":     "csharp",
	".cshtml":  "razor",
	".razor":   "razor",
	".vb":      "vbnet",
	".fs":      "fsharp",
	".go":      "go",
	".py":      "python",
	".ts":      "typescript",
	".tsx":     "typescript",
	".js":      "javascript",
	".jsx":     "javascript",
	".mjs":     "javascript",
	".java":    "java",
	".kt":      "kotlin",
	".rb":      "ruby",
	".php":     "php",
	".rs":      "rust",
	".c":       "c",
	".h":       "c",
	".cpp":     "cpp",
	".hpp":     "cpp",
	".swift":   "swift",
	".sql":     "sql",
	".html":    "html",
	".htm":     "html",
	".css":     "css",
	".scss":    "css",
	".json":    "json",
	".xml":     "xml",
	".config":  "xml",
	".csproj":  "msbuild",
	".fsproj":  "msbuild",
	".props":   "msbuild",
	".targets": "msbuild",
	".sln":     "solution",
	".slnf":    "solution",
	".yml":     "yaml",
	".yaml":    "yaml",
	".ps1":     "powershell",
	".sh":      "shell",
	".md":      "markdown",
	".dtsx":    "ssis",
}

// DetectLanguage returns the language tag for an entry path, or "" when the
// extension is unknown. A trailing ".json" added by the AST exporter is
// ignored, the same way classification ignores it.
func DetectLanguage(entryPath string) string {
	base := patterns.Basename(entryPath)
	return languageByExt[path.Ext(base)]
}
