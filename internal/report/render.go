// Package report renders a summary as the text block layout used in
// release notes and standups: a headline, then one block per category.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// DefaultTimeFormat is the layout for list-mode timestamps.
const DefaultTimeFormat = "2006-01-02 15:04"

// Renderer writes a summary as text.
type Renderer struct {
	// TimeFormat overrides the list-mode timestamp layout. Empty means
	// DefaultTimeFormat.
	TimeFormat string
	// List itemizes each category's matching records beneath its counts.
	List bool
}

// Render writes the whole report: a headline naming the repository and the
// window, then a blank-line separated block per category.
func (r Renderer) Render(w io.Writer, repo domain.Repo, window domain.TimeWindow, tallies []domain.CategoryTally) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s activity %s\n", repo, describeWindow(window))
	for _, ct := range tallies {
		b.WriteString("\n")
		r.block(&b, ct)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r Renderer) block(b *strings.Builder, ct domain.CategoryTally) {
	fmt.Fprintf(b, "%d %s %s\n", ct.Tally.Total(), ct.Category.Kind().Plural(), ct.Category.Verb())
	fmt.Fprintf(b, "\tcollaborator: %d\n", ct.Tally.Collaborator)
	fmt.Fprintf(b, "\tcommunity: %d\n", ct.Tally.Community)
	if ct.Category.Terminal() && ct.Tally.Total() > 0 {
		fmt.Fprintf(b, "\tmedian open to %s: %s, p90: %s\n",
			ct.Category.Event(), formatHours(ct.MedianHours), formatHours(ct.P90Hours))
	}
	if !r.List {
		return
	}
	layout := r.TimeFormat
	if layout == "" {
		layout = DefaultTimeFormat
	}
	for _, rec := range ct.Tally.Records {
		r.item(b, ct.Category, rec, layout)
	}
}

func (r Renderer) item(b *strings.Builder, category domain.Category, rec domain.ActivityRecord, layout string) {
	var when string
	if et := category.EventTime(rec); et != nil {
		when = et.Format(layout)
	}
	author := rec.Author
	if author == "" {
		// Deleted accounts come back without a login.
		author = "ghost"
	}
	fmt.Fprintf(b, "\t#%d (%s %s) by @%s [%s]: %s\n",
		rec.Number, category.Verb(), when, author, rec.Association.Bucket(), rec.Title)
	fmt.Fprintf(b, "\t\t%s\n", rec.URL)
}

// describeWindow names the window bounds for the headline, at the day
// precision the bounds are usually given in.
func describeWindow(w domain.TimeWindow) string {
	const day = "2006-01-02"
	switch {
	case w.After != nil && w.Before != nil:
		return fmt.Sprintf("from %s to %s", w.After.Format(day), w.Before.Format(day))
	case w.After != nil:
		return fmt.Sprintf("from %s to now", w.After.Format(day))
	case w.Before != nil:
		return fmt.Sprintf("up to %s", w.Before.Format(day))
	default:
		return "over all time"
	}
}

// formatHours renders a duration given in hours the way the stat lines
// read best: whole hours, plus minutes when they matter.
func formatHours(hours float64) string {
	d := time.Duration(hours * float64(time.Hour)).Round(time.Minute)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
