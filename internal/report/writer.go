package report

import (
	"io"

	"github.com/nao1215/taxlookup/internal/model"
)

// Writer renders lookup results.
type Writer interface {
	// Write outputs one record.
	Write(record *model.CompanyRecord) (int, error)

	// WriteAll outputs the records of a batch in order.
	WriteAll(records []*model.CompanyRecord) (int, error)
}

// MultiWriter writes to multiple Writers in turn and stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the record to all configured Writers.
func (m *MultiWriter) Write(record *model.CompanyRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(record)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the records to all configured Writers.
func (m *MultiWriter) WriteAll(records []*model.CompanyRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(records)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// field is one labelled attribute of a record.
type field struct {
	label string
	value string
}

// companyFields lists the record's company attributes in display order,
// skipping empty ones.
func companyFields(r *model.CompanyRecord) []field {
	all := []field{
		{"Tax Code", r.TaxCode},
		{"Name", r.Name},
		{"International Name", r.NameInternational},
		{"Short Name", r.NameShort},
		{"Address", r.Address},
		{"Address Line 1", r.AddressLine1},
		{"City", r.City},
		{"State/Province", r.StateProvince},
		{"Country", r.Country},
		{"Tax Address", r.TaxAddress},
		{"Representative", r.Representative},
		{"Established", r.EstablishedDate},
		{"Status", r.Status},
		{"Business Type", r.BusinessType},
		{"Business Sector", r.BusinessSector},
		{"Managed By", r.ManagedBy},
		{"Phone", r.Phone},
	}

	fields := make([]field, 0, len(all))
	for _, f := range all {
		if f.value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
