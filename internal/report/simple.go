package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/taxlookup/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds lookup metadata and the step trail.
	verbose bool

	// showLogs adds the timestamped log lines.
	showLogs bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithShowLogs prints each record's log lines after its fields.
func WithShowLogs(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showLogs = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one record.
func (w *SimpleWriter) Write(record *model.CompanyRecord) (int, error) {
	var sb strings.Builder
	w.writeRecord(&sb, record)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteAll outputs every record followed by a summary line.
func (w *SimpleWriter) WriteAll(records []*model.CompanyRecord) (int, error) {
	var sb strings.Builder

	succeeded := 0
	for _, r := range records {
		w.writeRecord(&sb, r)
		if r.Succeeded() {
			succeeded++
		}
	}

	fmt.Fprintf(&sb, "Lookups: %d, succeeded: %d, failed: %d\n", len(records), succeeded, len(records)-succeeded)
	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeRecord(sb *strings.Builder, r *model.CompanyRecord) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	if r.Name != "" {
		fmt.Fprintf(sb, "%s\n", r.Name)
	} else {
		fmt.Fprintf(sb, "Query: %s\n", r.TaxCode)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	if !r.Succeeded() {
		fmt.Fprintf(sb, "  ERROR (%s): %s\n", r.FailureKind, r.Error)
	} else {
		for _, f := range companyFields(r) {
			fmt.Fprintf(sb, "  %-20s %s\n", f.label+":", f.value)
		}
	}
	sb.WriteString("\n")

	if w.verbose {
		w.writeDetails(sb, r)
	}
	if w.showLogs && len(r.Logs) > 0 {
		w.writeSection(sb, "LOGS")
		for _, line := range r.Logs {
			fmt.Fprintf(sb, "  %s\n", strings.TrimLeft(line, "\n"))
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeDetails(sb *strings.Builder, r *model.CompanyRecord) {
	w.writeSection(sb, "LOOKUP")
	if r.LookupID != "" {
		fmt.Fprintf(sb, "  Lookup ID: %s\n", r.LookupID)
	}
	fmt.Fprintf(sb, "  Attempts:  %d\n", r.Attempts)
	if r.Proxy != "" {
		fmt.Fprintf(sb, "  Proxy:     %s\n", r.Proxy)
	}
	if r.Browser != "" {
		fmt.Fprintf(sb, "  Browser:   %s\n", r.Browser)
	}
	sb.WriteString("\n")

	if len(r.Steps) == 0 {
		return
	}
	w.writeSection(sb, "STEPS")
	for _, s := range r.Steps {
		fmt.Fprintf(sb, "  [%s] %s: %s\n", stepIndicator(s.Status), s.Name, s.Message)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
}

// stepIndicator returns a visual indicator for a step status.
func stepIndicator(status model.StepStatus) string {
	switch status {
	case model.StepSuccess:
		return "+"
	case model.StepWarning:
		return "!"
	case model.StepError:
		return "x"
	case model.StepPending:
		return "."
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by taxlookup\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
