package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/wikipub/internal/model"
)

// Renderer writes run reports
type Renderer struct {
	summary io.Writer
}

// NewRenderer creates a renderer that prints summaries to w
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	return &Renderer{summary: w}
}

// RenderReport writes the JSON and Markdown reports when paths are set and
// prints the summary
func (r *Renderer) RenderReport(report *model.RunReport, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(r.summary, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(r.summary, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	r.RenderSummary(report)
	return nil
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(report *model.RunReport, path string) error {
	return writeFile(path, []byte(Markdown(report)))
}

// Markdown renders the report as a Markdown document
func Markdown(report *model.RunReport) string {
	var b strings.Builder
	t := report.Totals

	fmt.Fprintf(&b, "# wikipub run %s\n\n", report.RunID)
	fmt.Fprintf(&b, "- Site: %s\n", report.Site)
	fmt.Fprintf(&b, "- Property: %s\n", report.Property)
	fmt.Fprintf(&b, "- Started: %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.DryRun {
		b.WriteString("- **Dry run**: nothing was written\n")
	}
	if report.Interrupted {
		b.WriteString("- **Interrupted** before the page feed ended\n")
	}
	if report.Error != "" {
		fmt.Fprintf(&b, "- **Stopped**: %s\n", report.Error)
	}

	b.WriteString("\n## Totals\n\n")
	b.WriteString("| Pages | Edited | Unchanged | Declined | Escalated | Skipped | Failed | Qualifiers |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d |\n",
		t.Pages, t.Edited, t.Unchanged, t.Declined, t.Escalated, t.Skipped, t.Failed, t.Qualifiers)

	if escalated := filter(report.Pages, model.StatusEscalated); len(escalated) > 0 {
		b.WriteString("\n## Needs review\n\n")
		for _, p := range escalated {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", p.Title, p.Item, p.Reason)
		}
	}

	if len(report.Pages) > 0 {
		b.WriteString("\n## Pages\n\n")
		b.WriteString("| Page | Item | Status | Action | Target | Strategy | Notes |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, p := range report.Pages {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				cell(p.Title), p.Item, p.Status, action(p), target(p), strategy(p), cell(notes(p)))
		}
	}

	return b.String()
}

// RenderSummary prints totals and the pages that need attention
func (r *Renderer) RenderSummary(report *model.RunReport) {
	w := r.summary
	t := report.Totals

	_, _ = fmt.Fprintln(w)
	title := "wikipub run"
	if report.DryRun {
		title += " (dry run)"
	}
	_, _ = fmt.Fprintf(w, "%s: %d pages\n", title, t.Pages)
	_, _ = fmt.Fprintf(w, "  edited %d, unchanged %d, declined %d, escalated %d, skipped %d, failed %d\n",
		t.Edited, t.Unchanged, t.Declined, t.Escalated, t.Skipped, t.Failed)
	if t.Qualifiers > 0 {
		_, _ = fmt.Fprintf(w, "  qualifiers added %d\n", t.Qualifiers)
	}

	for _, p := range filter(report.Pages, model.StatusEscalated) {
		_, _ = fmt.Fprintf(w, "  ⚠ review %s (%s): %s\n", p.Title, p.Item, p.Reason)
	}
	for _, p := range filter(report.Pages, model.StatusFailed) {
		_, _ = fmt.Fprintf(w, "  ✗ failed %s (%s): %s\n", p.Title, p.Item, p.Error)
	}
	if report.Interrupted {
		_, _ = fmt.Fprintln(w, "  interrupted")
	}
	if report.Error != "" {
		_, _ = fmt.Fprintf(w, "  stopped: %s\n", report.Error)
	}
}

func filter(pages []model.PageOutcome, status model.PageStatus) []model.PageOutcome {
	var out []model.PageOutcome
	for _, p := range pages {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func action(p model.PageOutcome) string {
	if p.Decision == nil {
		return ""
	}
	return string(p.Decision.Action)
}

func target(p model.PageOutcome) string {
	if p.Decision == nil || p.Decision.Expected == "" {
		return ""
	}
	return string(p.Decision.Expected)
}

func strategy(p model.PageOutcome) string {
	if p.Resolution == nil {
		return ""
	}
	return string(p.Resolution.Strategy)
}

func notes(p model.PageOutcome) string {
	var parts []string
	if p.Error != "" {
		parts = append(parts, p.Error)
	} else if p.Reason != "" {
		parts = append(parts, p.Reason)
	}
	if p.Answer != "" {
		parts = append(parts, "answer: "+p.Answer)
	}
	if n := len(p.Qualifiers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d qualifiers", n))
	}
	parts = append(parts, p.Warnings...)
	return strings.Join(parts, "; ")
}

// cell escapes pipes and newlines for a table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
