package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/taxlookup/internal/model"
)

// JSONWriter outputs results as response envelopes.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// includeLogs adds the diagnostic trail to every envelope.
	includeLogs bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithLogs includes each record's logs and steps in the output.
func WithLogs(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.includeLogs = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// CompanyData is the data member of a successful Response.
//
//nolint:tagliatelle // camelCase keys are the established record format
type CompanyData struct {
	TaxCode           string `json:"taxCode"`
	Name              string `json:"name"`
	NameInternational string `json:"nameInternational"`
	NameShort         string `json:"nameShort"`
	Address           string `json:"address"`
	AddressLine1      string `json:"addressLine1"`
	City              string `json:"city"`
	StateProvince     string `json:"stateProvince"`
	Country           string `json:"country"`
	TaxAddress        string `json:"taxAddress"`
	Representative    string `json:"representative"`
	EstablishedDate   string `json:"establishedDate"`
	Status            string `json:"status"`
	BusinessType      string `json:"businessType"`
	BusinessSector    string `json:"businessSector"`
	ManagedBy         string `json:"managedBy"`
	Phone             string `json:"phone"`
}

// Response is the envelope written for one record.
//
//nolint:tagliatelle // camelCase keys are the established record format
type Response struct {
	Success     bool               `json:"success"`
	Data        *CompanyData       `json:"data,omitempty"`
	Error       string             `json:"error,omitempty"`
	TaxCode     string             `json:"taxCode,omitempty"`
	FailureKind string             `json:"failureKind,omitempty"`
	LookupID    string             `json:"lookupId,omitempty"`
	Attempts    int                `json:"attempts,omitempty"`
	Logs        []string           `json:"logs,omitempty"`
	Steps       []model.StepRecord `json:"steps,omitempty"`
}

// NewResponse builds the envelope for r. Failed lookups carry the error
// and the queried tax code instead of data.
func NewResponse(r *model.CompanyRecord, includeLogs bool) *Response {
	resp := &Response{
		Success:  r.Succeeded(),
		LookupID: r.LookupID,
		Attempts: r.Attempts,
	}

	if resp.Success {
		resp.Data = &CompanyData{
			TaxCode:           r.TaxCode,
			Name:              r.Name,
			NameInternational: r.NameInternational,
			NameShort:         r.NameShort,
			Address:           r.Address,
			AddressLine1:      r.AddressLine1,
			City:              r.City,
			StateProvince:     r.StateProvince,
			Country:           r.Country,
			TaxAddress:        r.TaxAddress,
			Representative:    r.Representative,
			EstablishedDate:   r.EstablishedDate,
			Status:            r.Status,
			BusinessType:      r.BusinessType,
			BusinessSector:    r.BusinessSector,
			ManagedBy:         r.ManagedBy,
			Phone:             r.Phone,
		}
	} else {
		resp.Error = r.Error
		resp.TaxCode = r.TaxCode
		resp.FailureKind = r.FailureKind.String()
	}

	if includeLogs {
		resp.Logs = r.Logs
		resp.Steps = r.Steps
	}
	return resp
}

// Write outputs one envelope.
func (w *JSONWriter) Write(record *model.CompanyRecord) (int, error) {
	return w.writeJSON(NewResponse(record, w.includeLogs))
}

// WriteAll outputs a JSON array of envelopes.
func (w *JSONWriter) WriteAll(records []*model.CompanyRecord) (int, error) {
	responses := make([]*Response, len(records))
	for i, r := range records {
		responses[i] = NewResponse(r, w.includeLogs)
	}
	return w.writeJSON(responses)
}

// writeJSON encodes v without HTML escaping so Vietnamese text and
// URLs stay readable.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}

	if err := enc.Encode(v); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
