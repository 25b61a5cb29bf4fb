package models

import (
	"strings"
	"time"
)

// Paper is one tracked research paper and its accumulated metadata.
type Paper struct {
	// Title is the paper title; unique case-insensitively across the store.
	Title string `json:"title"`
	// Authors lists the authors in citation order.
	Authors []string `json:"authors,omitempty"`
	// Year is the publication year, zero if unknown.
	Year int `json:"year,omitempty"`
	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty"`
	// Keywords are topic tags attached to the paper.
	Keywords []string `json:"keywords,omitempty"`
	// Filepath points at the local copy of the paper, if uploaded.
	Filepath string `json:"filepath,omitempty"`
	// URL points at the paper online, if known.
	URL string `json:"url,omitempty"`
	// Summary is the model-written summary, once analyzed.
	Summary string `json:"summary,omitempty"`
	// KeyFindings lists the main findings extracted from the summary.
	KeyFindings []string `json:"key_findings,omitempty"`
	// AddedAt is when the paper was first recorded.
	AddedAt time.Time `json:"added_at"`
	// UpdatedAt is when the record was last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// TitleKey returns the normalized form of a title used for uniqueness
// comparisons.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Merge copies non-empty fields from other onto p, leaving existing values
// in place where other is silent. Title keeps the original casing of the
// first record.
func (p *Paper) Merge(other *Paper) {
	if len(other.Authors) > 0 {
		p.Authors = other.Authors
	}
	if other.Year != 0 {
		p.Year = other.Year
	}
	if other.Abstract != "" {
		p.Abstract = other.Abstract
	}
	if len(other.Keywords) > 0 {
		p.Keywords = other.Keywords
	}
	if other.Filepath != "" {
		p.Filepath = other.Filepath
	}
	if other.URL != "" {
		p.URL = other.URL
	}
	if other.Summary != "" {
		p.Summary = other.Summary
	}
	if len(other.KeyFindings) > 0 {
		p.KeyFindings = other.KeyFindings
	}
}
