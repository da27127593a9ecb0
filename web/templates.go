package web

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. Each is named after its file.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"fileSize": FormatFileSize,
		"percent":  func(p float64) string { return fmt.Sprintf("%.0f%%", p*100) },
	}).ParseFS(templateFS, "templates/*.html")
}

// FormatFileSize renders a byte count with a binary unit.
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
