// Package document renders generated Markdown into the configured output
// formats. Markdown is the source of truth and is written verbatim; the
// HTML and plain-text renditions are derived from it line by line.
package document

import (
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// knownFormats are the output formats the generator can produce.
var knownFormats = map[string]bool{
	"md":   true,
	"html": true,
	"txt":  true,
}

// Generator writes documents into an output directory in one or more
// formats.
type Generator struct {
	outputDir string
	formats   []string
}

// NewGenerator creates a generator for the given directory and formats.
// An empty format list means all known formats.
func NewGenerator(outputDir string, formats []string) (*Generator, error) {
	if len(formats) == 0 {
		formats = []string{"md", "html", "txt"}
	}
	for _, f := range formats {
		if !knownFormats[f] {
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}
	return &Generator{outputDir: outputDir, formats: formats}, nil
}

// OutputDir returns the directory documents are written to.
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Generate writes content under baseName in every configured format and
// returns a map from format to the written file path.
func (g *Generator) Generate(markdown, baseName string) (map[string]string, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("generate %s: empty document", baseName)
	}
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	out := make(map[string]string, len(g.formats))
	for _, format := range g.formats {
		var data string
		switch format {
		case "md":
			data = markdown
		case "html":
			data = renderHTML(markdown)
		case "txt":
			data = renderText(markdown)
		}

		path := filepath.Join(g.outputDir, baseName+"."+format)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		out[format] = path
		log.Printf("[document] wrote %s", path)
	}

	return out, nil
}

// renderHTML converts Markdown to a standalone HTML page. Parsing is line
// based: headings, bullet and numbered lists, everything else a paragraph.
// Inline markers are left as written.
func renderHTML(markdown string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(documentTitle(markdown)))
	b.WriteString("<style>\nbody { font-family: Georgia, serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }\n</style>\n</head>\n<body>\n")

	openList := ""
	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">\n")
			openList = ""
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			closeList()
		case strings.HasPrefix(line, "#### "):
			closeList()
			fmt.Fprintf(&b, "<h4>%s</h4>\n", html.EscapeString(line[5:]))
		case strings.HasPrefix(line, "### "):
			closeList()
			fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(line[4:]))
		case strings.HasPrefix(line, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(line[3:]))
		case strings.HasPrefix(line, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(line[2:]))
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if openList != "ul" {
				closeList()
				b.WriteString("<ul>\n")
				openList = "ul"
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(line[2:]))
		case isOrderedItem(line):
			if openList != "ol" {
				closeList()
				b.WriteString("<ol>\n")
				openList = "ol"
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(ordinalText(line)))
		default:
			closeList()
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(line))
		}
	}
	closeList()

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// renderText converts Markdown to plain text. Top-level headings are
// underlined, deeper ones keep just their text, bullets are normalized
// to "-".
func renderText(markdown string) string {
	var b strings.Builder
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			b.WriteString("\n")
		case strings.HasPrefix(line, "# "):
			title := line[2:]
			b.WriteString(title + "\n" + strings.Repeat("=", utf8.RuneCountInString(title)) + "\n")
		case strings.HasPrefix(line, "## "):
			title := line[3:]
			b.WriteString(title + "\n" + strings.Repeat("-", utf8.RuneCountInString(title)) + "\n")
		case strings.HasPrefix(line, "#"):
			b.WriteString(strings.TrimSpace(strings.TrimLeft(line, "#")) + "\n")
		case strings.HasPrefix(line, "* "):
			b.WriteString("- " + line[2:] + "\n")
		default:
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// documentTitle returns the first top-level heading, or a fallback.
func documentTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return line[2:]
		}
	}
	return "Generated Document"
}

// isOrderedItem reports whether the line starts with "N. ".
func isOrderedItem(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(line[i:], ". ")
}

// ordinalText returns the text after the "N. " marker.
func ordinalText(line string) string {
	if _, after, ok := strings.Cut(line, ". "); ok {
		return after
	}
	return line
}
