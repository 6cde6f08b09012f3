package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/taxlookup/internal/model"
)

// MarkdownWriter outputs results as Markdown tables.
type MarkdownWriter struct {
	baseWriter

	// includeLogs adds a collapsible log section per record.
	includeLogs bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownLogs adds each record's log lines in a details block.
func WithMarkdownLogs(include bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.includeLogs = include
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one record.
func (w *MarkdownWriter) Write(record *model.CompanyRecord) (int, error) {
	return w.WriteAll([]*model.CompanyRecord{record})
}

// WriteAll outputs a report covering every record.
func (w *MarkdownWriter) WriteAll(records []*model.CompanyRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Company Lookup Report")
	md.PlainText("")

	if len(records) > 1 {
		w.writeSummary(md, records)
	}
	for _, r := range records {
		w.writeRecord(md, r)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the batch outcome table and chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, records []*model.CompanyRecord) {
	counts := make(map[model.FailureKind]int)
	var order []model.FailureKind
	for _, r := range records {
		if counts[r.FailureKind] == 0 {
			order = append(order, r.FailureKind)
		}
		counts[r.FailureKind]++
	}

	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(order)+1)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Lookup Outcomes"),
		piechart.WithShowData(true),
	)
	for _, kind := range order {
		rows = append(rows, []string{outcomeLabel(kind), strconv.Itoa(counts[kind])})
		chart.LabelAndIntValue(outcomeLabel(kind), uint64(counts[kind])) //nolint:gosec // counts are positive
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(records)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRecord writes one record's section.
func (w *MarkdownWriter) writeRecord(md *markdown.Markdown, r *model.CompanyRecord) {
	title := r.Name
	if title == "" {
		title = r.TaxCode
	}
	md.H2(title)
	md.PlainText("")

	if !r.Succeeded() {
		md.Warningf("Lookup for `%s` failed (%s): %s", r.TaxCode, r.FailureKind, r.Error)
		md.PlainText("")
	} else {
		fields := companyFields(r)
		rows := make([][]string, len(fields))
		for i, f := range fields {
			rows[i] = []string{f.label, escapeCell(f.value)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if w.includeLogs && len(r.Logs) > 0 {
		md.Details("Logs ("+strconv.Itoa(len(r.Logs))+")", "\n```\n"+strings.Join(r.Logs, "\n")+"\n```\n")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by taxlookup*")
}

// outcomeLabel names a failure kind for humans.
func outcomeLabel(kind model.FailureKind) string {
	switch kind {
	case model.FailureNone:
		return "✅ Found"
	case model.FailureNotFound, model.FailureExhausted:
		return "❌ Not found (" + kind.String() + ")"
	case model.FailureCancelled:
		return "⏹️ Cancelled"
	case model.FailureCircuitOpen:
		return "⚠️ Circuit open"
	default:
		return "❌ " + kind.String()
	}
}

// escapeCell keeps pipes and line breaks from breaking the table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
