package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/pkg/models"
)

var (
	paperAuthors  string
	paperYear     int
	paperAbstract string
	paperKeywords string
	paperURL      string
	paperFile     string
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Manage the paper store",
	Long: `Manage the research papers tracked for analysis and citation.

Papers are matched by title, case-insensitively. Adding a paper whose
title is already stored merges the new metadata into the existing
record instead of creating a duplicate.

Files dropped into the papers directory during a watched run are
registered automatically; use "papers add" for richer metadata.`,
}

var papersAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a paper or merge metadata into an existing one",
	Args:  cobra.MinimumNArgs(1),
	RunE:  addPaper,
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers",
	Args:  cobra.NoArgs,
	RunE:  listPapers,
}

var papersShowCmd = &cobra.Command{
	Use:   "show <title>",
	Short: "Show one paper's full record",
	Args:  cobra.MinimumNArgs(1),
	RunE:  showPaper,
}

var papersSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the analysis digest across all papers",
	Args:  cobra.NoArgs,
	RunE:  summarizePapers,
}

func init() {
	papersAddCmd.Flags().StringVar(&paperAuthors, "authors", "", "Comma-separated author list")
	papersAddCmd.Flags().IntVar(&paperYear, "year", 0, "Publication year")
	papersAddCmd.Flags().StringVar(&paperAbstract, "abstract", "", "Paper abstract")
	papersAddCmd.Flags().StringVar(&paperKeywords, "keywords", "", "Comma-separated keywords")
	papersAddCmd.Flags().StringVar(&paperURL, "url", "", "Paper URL")
	papersAddCmd.Flags().StringVar(&paperFile, "file", "", "Path to the local copy")

	papersCmd.AddCommand(papersAddCmd)
	papersCmd.AddCommand(papersListCmd)
	papersCmd.AddCommand(papersShowCmd)
	papersCmd.AddCommand(papersSummaryCmd)
}

func addPaper(cmd *cobra.Command, args []string) error {
	ps, _, err := openPapers()
	if err != nil {
		return err
	}
	defer ps.Close()

	paper := &models.Paper{
		Title:    strings.Join(args, " "),
		Authors:  splitList(paperAuthors),
		Year:     paperYear,
		Abstract: paperAbstract,
		Keywords: splitList(paperKeywords),
		URL:      paperURL,
		Filepath: paperFile,
	}
	if err := ps.Upsert(paper); err != nil {
		return err
	}

	count, _ := ps.Count()
	fmt.Printf("Recorded %q (%d papers stored)\n", paper.Title, count)
	return nil
}

func listPapers(cmd *cobra.Command, args []string) error {
	ps, _, err := openPapers()
	if err != nil {
		return err
	}
	defer ps.Close()

	all, err := ps.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No papers stored. Add one with: quill papers add \"<title>\"")
		return nil
	}

	analyzed := color.New(color.FgGreen)
	for _, p := range all {
		mark := " "
		if p.Summary != "" {
			mark = analyzed.Sprint("✓")
		}
		fmt.Printf("%s %s%s\n", mark, p.Title, paperByline(p))
	}
	fmt.Printf("\n%d papers (✓ analyzed)\n", len(all))
	return nil
}

func showPaper(cmd *cobra.Command, args []string) error {
	ps, _, err := openPapers()
	if err != nil {
		return err
	}
	defer ps.Close()

	title := strings.Join(args, " ")
	p, err := ps.FindByTitle(title)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no paper stored with title %q", title)
	}

	fmt.Printf("%s%s\n", p.Title, paperByline(p))
	if len(p.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	if p.URL != "" {
		fmt.Printf("URL: %s\n", p.URL)
	}
	if p.Filepath != "" {
		fmt.Printf("File: %s\n", p.Filepath)
	}
	if p.Abstract != "" {
		fmt.Printf("\nAbstract:\n%s\n", p.Abstract)
	}
	if p.Summary != "" {
		fmt.Printf("\nSummary:\n%s\n", p.Summary)
	}
	if len(p.KeyFindings) > 0 {
		fmt.Println("\nKey findings:")
		for _, f := range p.KeyFindings {
			fmt.Printf("- %s\n", f)
		}
	}
	return nil
}

func summarizePapers(cmd *cobra.Command, args []string) error {
	ps, _, err := openPapers()
	if err != nil {
		return err
	}
	defer ps.Close()

	digest, err := ps.Summarize()
	if err != nil {
		return err
	}
	fmt.Println(digest)
	return nil
}

// paperByline renders the parenthesized author/year suffix for a title line.
func paperByline(p *models.Paper) string {
	var parts []string
	if len(p.Authors) > 0 {
		parts = append(parts, strings.Join(p.Authors, ", "))
	}
	if p.Year != 0 {
		parts = append(parts, fmt.Sprintf("%d", p.Year))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
