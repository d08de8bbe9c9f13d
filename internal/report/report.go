// Package report summarizes a run for the terminal and for publication.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/gsc-deindexer/internal/deletion"
	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
	"github.com/JakeFAU/gsc-deindexer/internal/poller"
)

// Report is the published summary of one run.
type Report struct {
	RunID      string                     `json:"run_id"`
	Site       string                     `json:"site"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	DryRun     bool                       `json:"dry_run"`
	TotalURLs  int                        `json:"total_urls"`
	Fetched    int                        `json:"fetched"`
	Counts     map[indexstatus.Status]int `json:"counts"`
	Deletable  []string                   `json:"deletable"`
	// Deletion is nil when the deletion phase was skipped.
	Deletion *deletion.Report `json:"deletion,omitempty"`
}

// Build assembles a Report from the polling result and optional deletion report.
func Build(runID, site string, urls []string, polled poller.Result, del *deletion.Report, started, finished time.Time, dryRun bool) Report {
	deletable := polled.Groups.Deletable()
	if deletable == nil {
		deletable = []string{}
	}
	return Report{
		RunID:      runID,
		Site:       site,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		DryRun:     dryRun,
		TotalURLs:  len(urls),
		Fetched:    polled.Fetched,
		Counts:     polled.Groups.Counts(),
		Deletable:  deletable,
		Deletion:   del,
	}
}

// Attributes returns Pub/Sub message attributes for r.
func (r Report) Attributes() map[string]string {
	return map[string]string{
		"run_id":  r.RunID,
		"site":    r.Site,
		"dry_run": fmt.Sprintf("%t", r.DryRun),
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// Render writes the human summary: per-status counts, the deletable list and
// the deletion outcomes.
func Render(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("👍 Done, here's the status of all %d pages:", r.TotalURLs)))
	for _, s := range indexstatus.All {
		n := r.Counts[s]
		if n == 0 {
			continue
		}
		fmt.Fprintf(&b, "• %s %s: %d pages\n", s.Emoji(), s, n)
	}
	fmt.Fprintln(&b, infoStyle.Render(fmt.Sprintf("run %s · %d fetched, %d from cache", r.RunID, r.Fetched, r.TotalURLs-r.Fetched)))
	fmt.Fprintln(&b)

	if len(r.Deletable) == 0 {
		fmt.Fprintln(&b, okStyle.Render("✨ There are no pages that can be deleted. Everything is already deleted!"))
	} else {
		fmt.Fprintln(&b, okStyle.Render(fmt.Sprintf("✨ Found %d pages that can be removed.", len(r.Deletable))))
		for _, u := range r.Deletable {
			fmt.Fprintf(&b, "• %s\n", u)
		}
	}

	if d := r.Deletion; d != nil {
		fmt.Fprintln(&b)
		section(&b, "🚀 Removal requested", d.Requested, okStyle)
		section(&b, "🕛 Removal already requested", d.AlreadyRequested, infoStyle)
		section(&b, "⏸ Not eligible yet", d.Pending, infoStyle)
		section(&b, "🧪 Would request (dry run)", d.WouldRequest, infoStyle)
		section(&b, "❌ Removal request failed", d.Failed, warnStyle)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func section(b *strings.Builder, title string, urls []string, style lipgloss.Style) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintln(b, style.Render(fmt.Sprintf("%s: %d", title, len(urls))))
	for _, u := range urls {
		fmt.Fprintf(b, "  • %s\n", u)
	}
}
