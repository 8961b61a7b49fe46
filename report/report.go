// Package report collects per-tag processing failures and renders them as a
// single annotated block, so one broken handler chain degrades its own tag
// instead of aborting the whole document.
package report

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/inlay-dev/inlay-core/handler/entities"
)

// Severity classifies how far a failure reaches.
type Severity int

const (
	// SeverityRecoverable failures degrade a tag but leave usable output:
	// a declined download, an unreachable registry during an update check,
	// a content fetch that fell back to stale cache.
	SeverityRecoverable Severity = iota

	// SeverityFatal failures abort one tag's remaining pipeline stages:
	// gate rejection, protocol incompatibility, a load-time code error.
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// Classify maps a handler lifecycle failure onto a severity.
func Classify(err error) Severity {
	switch {
	case errors.Is(err, entities.ErrUpdateDeclined):
		return SeverityRecoverable
	case errors.Is(err, entities.ErrGateRejected),
		errors.Is(err, entities.ErrIncompatible),
		errors.Is(err, entities.ErrHandlerNotFound):
		return SeverityFatal
	default:
		return SeverityFatal
	}
}

// Record is one collected failure, attributed to the document tag whose
// processing raised it.
type Record struct {
	Tag      string
	Severity Severity
	Err      error
}

// Collector accumulates records over one document run.
type Collector struct {
	records []Record
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Recoverable records a degradation for a tag.
func (c *Collector) Recoverable(tag string, err error) {
	c.records = append(c.records, Record{Tag: tag, Severity: SeverityRecoverable, Err: err})
}

// Fatal records a tag-aborting failure.
func (c *Collector) Fatal(tag string, err error) {
	c.records = append(c.records, Record{Tag: tag, Severity: SeverityFatal, Err: err})
}

// Add records err under the severity Classify assigns it.
func (c *Collector) Add(tag string, err error) {
	c.records = append(c.records, Record{Tag: tag, Severity: Classify(err), Err: err})
}

// Empty reports whether nothing was collected.
func (c *Collector) Empty() bool {
	return len(c.records) == 0
}

// Records returns the collected failures in arrival order.
func (c *Collector) Records() []Record {
	return c.records
}

// ByTag groups the collected failures per tag, tags sorted.
func (c *Collector) ByTag() ([]string, map[string][]Record) {
	grouped := make(map[string][]Record)
	for _, r := range c.records {
		grouped[r.Tag] = append(grouped[r.Tag], r)
	}
	tags := make([]string, 0, len(grouped))
	for tag := range grouped {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, grouped
}

// RenderHTML renders the collected failures as one annotated HTML block,
// suitable for splicing into the produced document. An empty collector
// renders to the empty string.
func (c *Collector) RenderHTML() string {
	if c.Empty() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<div class=\"inlay-report\">\n")
	sb.WriteString(fmt.Sprintf("<p>%d problem(s) while augmenting this document:</p>\n", len(c.records)))

	tags, grouped := c.ByTag()
	sb.WriteString("<ul>\n")
	for _, tag := range tags {
		sb.WriteString("<li><code>" + html.EscapeString(tag) + "</code><ul>\n")
		for _, r := range grouped[tag] {
			sb.WriteString(fmt.Sprintf("<li>[%s] %s</li>\n", r.Severity, html.EscapeString(r.Err.Error())))
		}
		sb.WriteString("</ul></li>\n")
	}
	sb.WriteString("</ul>\n</div>\n")
	return sb.String()
}
