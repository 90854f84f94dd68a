package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Category is one of the four fixed summaries the tool produces. Each maps
// to a record kind, a search qualifier string, and the timestamp used for
// windowing.
type Category int

const (
	PRsOpened Category = iota
	PRsMerged
	IssuesOpened
	IssuesClosed
)

// Categories returns all categories in report order.
func Categories() []Category {
	return []Category{PRsOpened, PRsMerged, IssuesOpened, IssuesClosed}
}

// Kind returns the record kind the category counts.
func (c Category) Kind() Kind {
	if c == PRsOpened || c == PRsMerged {
		return KindPR
	}
	return KindIssue
}

// Event is the base form of the category's event verb.
func (c Category) Event() string {
	switch c {
	case PRsMerged:
		return "merge"
	case IssuesClosed:
		return "close"
	default:
		return "open"
	}
}

// Verb is the event in past tense, as report headers use it.
func (c Category) Verb() string {
	e := c.Event()
	if strings.HasSuffix(e, "e") {
		return e + "d"
	}
	return e + "ed"
}

// Terminal reports whether the category's event ends the record's life
// (merge or close), which is what gives it an open-to-event duration.
func (c Category) Terminal() bool {
	return c == PRsMerged || c == IssuesClosed
}

func (c Category) String() string {
	return c.Verb() + " " + c.Kind().Plural()
}

// Slug is the stable machine-readable name used in JSON output and logs.
func (c Category) Slug() string {
	return c.Verb() + "-" + string(c.Kind()) + "s"
}

// MarshalJSON renders the category as its slug.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Slug())
}

// EventTime selects the timestamp the category windows on: creation for the
// opened categories, the merge time for merged PRs, the close time for
// closed issues. Nil means the record never had the event (an unmerged PR
// has no merge time) and must not be counted.
func (c Category) EventTime(r ActivityRecord) *time.Time {
	switch c {
	case PRsMerged:
		return r.MergedAt
	case IssuesClosed:
		return r.ClosedAt
	default:
		if r.CreatedAt.IsZero() {
			return nil
		}
		t := r.CreatedAt
		return &t
	}
}

// SearchQuery builds the category's search qualifier string, scoped to the
// repository and, when bounded, to the window's dates. The opened categories
// carry no state qualifier: a record opened in the window counts no matter
// what happened to it since.
func (c Category) SearchQuery(repo Repo, w TimeWindow) string {
	var b strings.Builder
	b.WriteString("repo:" + repo.String())

	switch c {
	case PRsOpened:
		b.WriteString(" is:pr")
	case PRsMerged:
		b.WriteString(" is:pr is:merged")
	case IssuesOpened:
		b.WriteString(" is:issue")
	case IssuesClosed:
		b.WriteString(" is:issue is:closed")
	}

	if r := w.QualifierRange(); r != "" {
		switch c {
		case PRsMerged:
			b.WriteString(" merged:" + r)
		case IssuesClosed:
			b.WriteString(" closed:" + r)
		default:
			b.WriteString(" created:" + r)
		}
	}
	return b.String()
}
