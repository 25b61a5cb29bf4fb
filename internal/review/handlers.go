package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/pkg/models"
)

// maxKeyFindings caps how many bullet points are kept per paper analysis.
const maxKeyFindings = 5

// summaryPreviewChars caps how much of each paper summary the outline
// prompt quotes.
const summaryPreviewChars = 200

// outlineTemperature and writeTemperature loosen sampling for the two
// long-form generation stages.
const (
	outlineTemperature = 0.7
	outlineMaxTokens   = 2048
	writeTemperature   = 0.7
	writeMaxTokens     = 4096
)

// topicOf returns the review topic for a workflow.
func topicOf(wf *models.Workflow) string {
	if wf.Description != "" {
		return wf.Description
	}
	return wf.Title
}

// collect asks the provider to suggest papers for the topic.
func (p *Policy) collect(ctx context.Context, hc *orchestrator.HandlerContext) (*orchestrator.Result, error) {
	suggestions, err := p.provider.Generate(ctx, provider.Request{
		Prompt: fmt.Sprintf(collectPrompt, topicOf(hc.Workflow)),
	})
	if err != nil {
		return nil, err
	}

	output := fmt.Sprintf("Generated paper suggestions:\n\n%s\n\nNote: the suggested papers must be downloaded and registered before analysis.", suggestions)
	return &orchestrator.Result{
		Output:   output,
		Metadata: map[string]any{ctxSuggestedPapers: suggestions},
	}, nil
}

// upload parks the workflow until the user registers papers and marks the
// task complete. Manual stages never resolve on their own.
func (p *Policy) upload(_ context.Context, _ *orchestrator.HandlerContext) (*orchestrator.Result, error) {
	instructions := fmt.Sprintf(uploadInstructions, p.papersDir)
	if n, err := p.papers.Count(); err == nil && n > 0 {
		instructions += fmt.Sprintf("\n\n%d papers are registered so far.", n)
	}
	return &orchestrator.Result{Output: instructions, Await: true}, nil
}

// analyze summarizes every stored paper and records summary and findings
// back onto the paper records.
func (p *Policy) analyze(ctx context.Context, _ *orchestrator.HandlerContext) (*orchestrator.Result, error) {
	stored, err := p.papers.List()
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: no papers available for analysis, upload papers first", orchestrator.ErrPrecondition)
	}

	sections := make([]string, 0, len(stored))
	for _, paper := range stored {
		analysis, err := p.provider.Generate(ctx, provider.Request{
			Prompt: fmt.Sprintf(analyzePrompt, paper.Title, authorLine(paper.Authors), abstractLine(paper.Abstract)),
		})
		if err != nil {
			return nil, fmt.Errorf("analyze %q: %w", paper.Title, err)
		}

		paper.Summary = analysis
		paper.KeyFindings = extractFindings(analysis)
		if err := p.papers.Upsert(paper); err != nil {
			return nil, fmt.Errorf("record analysis for %q: %w", paper.Title, err)
		}
		sections = append(sections, fmt.Sprintf("### %s\n\n%s", paper.Title, analysis))
	}

	return &orchestrator.Result{
		Output: fmt.Sprintf("Analyzed %d papers.\n\n%s", len(stored), strings.Join(sections, "\n\n")),
	}, nil
}

// outline drafts the review structure from the analyzed papers.
func (p *Policy) outline(ctx context.Context, hc *orchestrator.HandlerContext) (*orchestrator.Result, error) {
	stored, err := p.papers.List()
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: no papers available to outline from, upload and analyze papers first", orchestrator.ErrPrecondition)
	}

	lines := make([]string, 0, len(stored)+1)
	lines = append(lines, "Available papers:")
	for _, paper := range stored {
		lines = append(lines, fmt.Sprintf("- %s: %s...", paper.Title, preview(paper.Summary, summaryPreviewChars)))
	}

	outline, err := p.provider.Generate(ctx, provider.Request{
		Prompt:      fmt.Sprintf(outlinePrompt, topicOf(hc.Workflow), strings.Join(lines, "\n")),
		Temperature: outlineTemperature,
		MaxTokens:   outlineMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &orchestrator.Result{Output: outline}, nil
}

// write produces the final review text and renders it to every configured
// output format.
func (p *Policy) write(ctx context.Context, hc *orchestrator.HandlerContext) (*orchestrator.Result, error) {
	outline, ok := hc.Workflow.ContextValue(ctxOutline)
	if !ok || strings.TrimSpace(outline) == "" {
		return nil, fmt.Errorf("%w: no outline in workflow context, run the outline stage first", orchestrator.ErrPrecondition)
	}
	count, err := p.papers.Count()
	if err != nil {
		return nil, fmt.Errorf("count papers: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no papers available for citation", orchestrator.ErrPrecondition)
	}
	summary, err := p.papers.Summarize()
	if err != nil {
		return nil, fmt.Errorf("summarize papers: %w", err)
	}

	text, err := p.provider.Generate(ctx, provider.Request{
		Prompt:      fmt.Sprintf(writePrompt, topicOf(hc.Workflow), outline, summary),
		Temperature: writeTemperature,
		MaxTokens:   writeMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	base := "literature_review_" + time.Now().Format("20060102_150405")
	files, err := p.documents.Generate(text, base)
	if err != nil {
		return nil, fmt.Errorf("render review: %w", err)
	}

	formats := make([]string, 0, len(files))
	for format := range files {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	var b strings.Builder
	b.WriteString("Literature review completed!\n\nGenerated files:")
	for _, format := range formats {
		fmt.Fprintf(&b, "\n- %s: %s", strings.ToUpper(format), files[format])
	}
	return &orchestrator.Result{
		Output:   b.String(),
		Metadata: map[string]any{"generated_files": files, "document_base": base},
	}, nil
}

// authorLine renders an author list for a prompt.
func authorLine(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	return strings.Join(authors, ", ")
}

// abstractLine renders an abstract for a prompt.
func abstractLine(abstract string) string {
	if strings.TrimSpace(abstract) == "" {
		return "Not available"
	}
	return abstract
}

// extractFindings pulls up to maxKeyFindings bullet lines out of an
// analysis.
func extractFindings(analysis string) []string {
	var findings []string
	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		finding := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if finding == "" {
			continue
		}
		findings = append(findings, finding)
		if len(findings) == maxKeyFindings {
			break
		}
	}
	return findings
}

// preview returns at most the first n bytes of s.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
