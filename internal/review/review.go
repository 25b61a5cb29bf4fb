// Package review implements the literature review specialization: a fixed
// five-stage pipeline that collects paper suggestions, waits for uploads,
// analyzes the stored papers, outlines the review, and writes the final
// document.
package review

import (
	_ "embed"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/quillworks/quill/internal/document"
	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/papers"
	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/pkg/models"
)

//go:embed template.yaml
var templateYAML []byte

// Context keys the stages publish their output under.
const (
	ctxSuggestedPapers = "suggested_papers"
	ctxPapersAnalysis  = "papers_analysis"
	ctxOutline         = "outline"
)

// stage is one entry in the fixed decomposition template.
type stage struct {
	// Kind selects the handler for the stage.
	Kind models.TaskKind `yaml:"kind"`
	// Title is the task title shown to the user.
	Title string `yaml:"title"`
	// Description is the fixed task description.
	Description string `yaml:"description"`
}

// template mirrors the embedded template.yaml structure.
type template struct {
	Domain      string  `yaml:"domain"`
	TitlePrefix string  `yaml:"title_prefix"`
	Stages      []stage `yaml:"stages"`
}

// Config contains the collaborators the stage handlers need.
type Config struct {
	// Provider generates suggestions, analyses, the outline, and the
	// review text. Required.
	Provider provider.Provider

	// Papers is the paper store the analyze, outline, and write stages
	// read. Required.
	Papers *papers.Store

	// Documents renders the finished review to disk. Required.
	Documents *document.Generator

	// PapersDir is the watched directory named in the upload
	// instructions.
	PapersDir string
}

// Policy is the literature review specialization: the fixed stage
// decomposition plus the handlers for its task kinds. It implements
// orchestrator.Policy.
type Policy struct {
	provider  provider.Provider
	papers    *papers.Store
	documents *document.Generator
	papersDir string

	domain      string
	titlePrefix string
	stages      []stage
}

// New parses the embedded stage template and builds the policy.
func New(cfg Config) (*Policy, error) {
	var tpl template
	if err := yaml.Unmarshal(templateYAML, &tpl); err != nil {
		return nil, fmt.Errorf("parse review template: %w", err)
	}
	if tpl.Domain == "" {
		return nil, fmt.Errorf("review template: missing domain")
	}
	if len(tpl.Stages) == 0 {
		return nil, fmt.Errorf("review template: no stages")
	}
	for i, s := range tpl.Stages {
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("review template: stage %d: unknown kind %q", i, s.Kind)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("review template: stage %d: missing title", i)
		}
	}

	return &Policy{
		provider:    cfg.Provider,
		papers:      cfg.Papers,
		documents:   cfg.Documents,
		papersDir:   cfg.PapersDir,
		domain:      tpl.Domain,
		titlePrefix: tpl.TitlePrefix,
		stages:      tpl.Stages,
	}, nil
}

// Domain returns the domain string workflows select this policy with.
func (p *Policy) Domain() string {
	return p.domain
}

// Title derives the workflow title from the review topic.
func (p *Policy) Title(goal string) string {
	return p.titlePrefix + goal
}

// Tasks returns a fresh pending task per stage, in template order. The
// topic itself lives on the workflow; stage descriptions are fixed.
func (p *Policy) Tasks(_ string) []*models.Task {
	tasks := make([]*models.Task, 0, len(p.stages))
	for _, s := range p.stages {
		tasks = append(tasks, models.NewTask(s.Kind, s.Title, s.Description))
	}
	return tasks
}

// Install registers the policy and its stage handlers with the
// orchestrator.
func (p *Policy) Install(o *orchestrator.Orchestrator) {
	o.RegisterPolicy(p)
	o.RegisterKeyed(models.KindCollect, ctxSuggestedPapers, orchestrator.HandlerFunc(p.collect))
	o.Register(models.KindUpload, orchestrator.HandlerFunc(p.upload))
	o.RegisterKeyed(models.KindAnalyze, ctxPapersAnalysis, orchestrator.HandlerFunc(p.analyze))
	o.RegisterKeyed(models.KindOutline, ctxOutline, orchestrator.HandlerFunc(p.outline))
	o.Register(models.KindWrite, orchestrator.HandlerFunc(p.write))
}
