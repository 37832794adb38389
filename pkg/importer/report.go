package importer

import "encoding/json"

// Phase names one stage of a walker run, for grouping report messages
// (spec.md §4.10: "{phase, file, messages[], errors[]}").
type Phase string

const (
	PhaseRetrieval Phase = "retrieval"
	PhaseUpload    Phase = "upload"
)

// Message is one informational or warning note attached to a file
// within a phase.
type Message struct {
	Phase   Phase  `json:"phase"`
	File    string `json:"file"`
	Message string `json:"message"`
}

// ReportError is one failure attached to a file within a phase.
type ReportError struct {
	Phase   Phase  `json:"phase"`
	File    string `json:"file"`
	Message string `json:"message"`
}

// Report is ReportBuilder's persisted shape (importer_report.report).
type Report struct {
	NumberOfItems int           `json:"number_of_items"`
	Messages      []Message     `json:"messages,omitempty"`
	Errors        []ReportError `json:"errors,omitempty"`
}

// ReportBuilder accumulates one run's outcome for later persistence as
// a single importer_report row.
type ReportBuilder struct {
	ticks    int
	messages []Message
	errors   []ReportError
}

func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Tick records one successfully processed item.
func (b *ReportBuilder) Tick() {
	b.ticks++
}

// AddMessage attaches an informational note to file within phase.
func (b *ReportBuilder) AddMessage(phase Phase, file, message string) {
	b.messages = append(b.messages, Message{Phase: phase, File: file, Message: message})
}

// AddError attaches a failure to file within phase. Errors don't abort
// the walk — spec.md §4.10's walkers are best-effort over a file set.
func (b *ReportBuilder) AddError(phase Phase, file, message string) {
	b.errors = append(b.errors, ReportError{Phase: phase, File: file, Message: message})
}

// HasErrors reports whether any file in the run failed.
func (b *ReportBuilder) HasErrors() bool {
	return len(b.errors) > 0
}

// Build renders the accumulated report as JSON for SaveReport.
func (b *ReportBuilder) Build() ([]byte, error) {
	return json.Marshal(Report{
		NumberOfItems: b.ticks,
		Messages:      b.messages,
		Errors:        b.errors,
	})
}
