package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleReview = `# Literature Review: Transformers

## Introduction

This review surveys attention-based models.

Key papers include:
- Attention Is All You Need
- BERT

### Methodology

1. Search databases
2. Screen abstracts

Closing paragraph.`

func TestNewGenerator_UnknownFormat(t *testing.T) {
	_, err := NewGenerator(t.TempDir(), []string{"md", "docx"})
	if err == nil {
		t.Fatal("Expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "docx") {
		t.Errorf("Error = %q, should name the offending format", err.Error())
	}
}

func TestNewGenerator_EmptyFormatsMeansAll(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	paths, err := g.Generate(sampleReview, "review")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("Expected 3 output files, got %d", len(paths))
	}
}

func TestGenerate_WritesAllFormats(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir, []string{"md", "html", "txt"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	paths, err := g.Generate(sampleReview, "literature_review_20260102_150405")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for format, ext := range map[string]string{"md": ".md", "html": ".html", "txt": ".txt"} {
		path, ok := paths[format]
		if !ok {
			t.Errorf("Missing %s in result map", format)
			continue
		}
		if filepath.Ext(path) != ext {
			t.Errorf("%s path = %q, want extension %s", format, path, ext)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s file should exist: %v", format, err)
		}
	}
}

func TestGenerate_MarkdownVerbatim(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), []string{"md"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	paths, err := g.Generate(sampleReview, "review")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(paths["md"])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != sampleReview {
		t.Error("Markdown output should be the input verbatim")
	}
}

func TestGenerate_EmptyDocument(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), []string{"md"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	if _, err := g.Generate("   \n", "empty"); err == nil {
		t.Error("Expected error for empty document")
	}
}

func TestGenerate_CreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "research", "output")
	g, err := NewGenerator(dir, []string{"md"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	if _, err := g.Generate("# Doc", "doc"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Output directory should exist: %v", err)
	}
}

func TestRenderHTML(t *testing.T) {
	out := renderHTML(sampleReview)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Literature Review: Transformers</title>",
		"<h1>Literature Review: Transformers</h1>",
		"<h2>Introduction</h2>",
		"<h3>Methodology</h3>",
		"<p>This review surveys attention-based models.</p>",
		"<ul>\n<li>Attention Is All You Need</li>",
		"<ol>\n<li>Search databases</li>",
		"</ol>",
		"</ul>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestRenderHTML_EscapesContent(t *testing.T) {
	out := renderHTML("# A <script> title\n\nBody with <b>tags</b> & ampersand")

	if strings.Contains(out, "<script>") {
		t.Error("HTML should escape angle brackets in content")
	}
	if !strings.Contains(out, "&lt;b&gt;tags&lt;/b&gt; &amp; ampersand") {
		t.Error("HTML should escape tags and ampersands in paragraphs")
	}
}

func TestRenderHTML_ClosesListAtEnd(t *testing.T) {
	out := renderHTML("- first\n- second")

	if !strings.HasSuffix(strings.TrimSpace(out), "</html>") {
		t.Error("HTML should end with closing html tag")
	}
	if !strings.Contains(out, "</ul>\n</body>") {
		t.Error("List open at end of document should be closed before the body ends")
	}
}

func TestRenderText(t *testing.T) {
	out := renderText(sampleReview)

	if !strings.Contains(out, "Literature Review: Transformers\n===============================") {
		t.Error("Top-level heading should be underlined with =")
	}
	if !strings.Contains(out, "Introduction\n------------") {
		t.Error("Second-level heading should be underlined with -")
	}
	if strings.Contains(out, "#") {
		t.Error("Plain text should not contain heading markers")
	}
	if !strings.Contains(out, "- Attention Is All You Need") {
		t.Error("Bullets should be preserved")
	}
}

func TestRenderText_NormalizesStarBullets(t *testing.T) {
	out := renderText("* item one\n* item two")

	if strings.Contains(out, "* ") {
		t.Error("Star bullets should be normalized to dashes")
	}
	if !strings.Contains(out, "- item one") {
		t.Error("Normalized bullet missing")
	}
}

func TestDocumentTitle_Fallback(t *testing.T) {
	if got := documentTitle("no headings here"); got != "Generated Document" {
		t.Errorf("documentTitle = %q, want fallback", got)
	}
}
