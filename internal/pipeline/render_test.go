package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikipub/internal/model"
)

func sampleReport() *model.RunReport {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &model.RunReport{
		RunID:      "run-1",
		Site:       "cswikisource",
		Property:   "P1433",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
	res := model.Resolved("Q100", model.ParsePath("Journal/1925"), "", model.StrategyHierarchy)
	report.Record(model.PageOutcome{
		Title:      "Journal/1925/No3/Page7",
		Item:       "Q21",
		Status:     model.StatusEdited,
		Resolution: &res,
		Decision:   &model.Decision{Action: model.ActionAdd, Property: "P1433", Expected: "Q100"},
		Applied:    true,
		Answer:     "yes",
	})
	report.Record(model.PageOutcome{
		Title:  "A|B/1",
		Item:   "Q7",
		Status: model.StatusEscalated,
		Reason: "claims point at 2 different targets",
	})
	report.Record(model.PageOutcome{
		Title:  "C/1",
		Item:   "Q8",
		Status: model.StatusFailed,
		Error:  "add claim on Q8: api unavailable",
	})
	return report
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.Contains(t, md, "# wikipub run run-1")
	assert.Contains(t, md, "- Duration: 1.5s")
	assert.Contains(t, md, "| 3 | 1 | 0 | 0 | 1 | 0 | 1 | 0 |")
	assert.Contains(t, md, "## Needs review")
	assert.Contains(t, md, "| Journal/1925/No3/Page7 | Q21 | edited | add | Q100 | estimated-from-hierarchy | answer: yes |")
	assert.Contains(t, md, `A\|B/1`, "pipes in titles are escaped")
	assert.NotContains(t, md, "Dry run")
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, NewRenderer(&bytes.Buffer{}).RenderJSON(sampleReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		RunID  string `json:"run_id"`
		Totals struct {
			Pages     int `json:"pages"`
			Escalated int `json:"escalated"`
		} `json:"totals"`
		Pages []struct {
			Resolution *struct {
				Kind string `json:"kind"`
			} `json:"resolution"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 3, decoded.Totals.Pages)
	assert.Equal(t, 1, decoded.Totals.Escalated)
	require.NotNil(t, decoded.Pages[0].Resolution)
	assert.Equal(t, "resolved", decoded.Pages[0].Resolution.Kind)
}

func TestRenderReport_Summary(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	md := filepath.Join(dir, "report.md")

	require.NoError(t, NewRenderer(&buf).RenderReport(sampleReport(), "", md, true))

	out := buf.String()
	assert.Contains(t, out, "Wrote Markdown: "+md)
	assert.Contains(t, out, "wikipub run: 3 pages")
	assert.Contains(t, out, "edited 1, unchanged 0, declined 0, escalated 1, skipped 0, failed 1")
	assert.Contains(t, out, "review A|B/1 (Q7)")
	assert.Contains(t, out, "failed C/1 (Q8): add claim on Q8: api unavailable")
	assert.FileExists(t, md)
}
