package model

import (
	"fmt"
	"time"
)

// StepStatus is the outcome of one diagnostic step.
type StepStatus string

// Step statuses.
const (
	StepSuccess StepStatus = "success"
	StepWarning StepStatus = "warning"
	StepError   StepStatus = "error"
	StepPending StepStatus = "pending"
)

// StepRecord is one entry of a lookup's step trail.
type StepRecord struct {
	Name    string     `json:"step"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message"`
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// CompanyRecord is the result of one lookup. Error is empty on success.
// All company attributes are optional; an empty string means absent.
//
//nolint:tagliatelle // camelCase keys are the established record format
type CompanyRecord struct {
	TaxCode           string `json:"taxCode"`
	Name              string `json:"name,omitempty"`
	NameInternational string `json:"nameInternational,omitempty"`
	NameShort         string `json:"nameShort,omitempty"`
	Address           string `json:"address,omitempty"`
	AddressLine1      string `json:"addressLine1,omitempty"`
	City              string `json:"city,omitempty"`
	StateProvince     string `json:"stateProvince,omitempty"`
	Country           string `json:"country,omitempty"`
	TaxAddress        string `json:"taxAddress,omitempty"`
	Representative    string `json:"representative,omitempty"`
	EstablishedDate   string `json:"establishedDate,omitempty"`
	Status            string `json:"status,omitempty"`
	BusinessType      string `json:"businessType,omitempty"`
	BusinessSector    string `json:"businessSector,omitempty"`
	ManagedBy         string `json:"managedBy,omitempty"`
	Phone             string `json:"phone,omitempty"`

	Error       string      `json:"error,omitempty"`
	FailureKind FailureKind `json:"failureKind"`

	// LookupID identifies the lookup in process logs.
	LookupID string `json:"lookupId,omitempty"`
	// Attempts is the number of attempts that ran.
	Attempts int `json:"attempts"`
	// Proxy and Browser describe the attempt that produced the record.
	Proxy   string `json:"proxy,omitempty"`
	Browser string `json:"browser,omitempty"`

	Logs  []string     `json:"logs,omitempty"`
	Steps []StepRecord `json:"steps,omitempty"`

	// RawHTML is the detail page without head, script and style elements.
	RawHTML string `json:"-"`
}

// Succeeded reports whether the record carries company data.
func (r *CompanyRecord) Succeeded() bool {
	return r.Error == "" && r.FailureKind == FailureNone
}

// LogTimeLayout is the timestamp layout of trail log lines.
const LogTimeLayout = "2006-01-02T15:04:05"

// Trail collects timestamped log lines and step records for one attempt.
type Trail struct {
	now   func() time.Time
	Logs  []string
	Steps []StepRecord
}

// NewTrail returns a Trail using now as its clock; nil means time.Now.
func NewTrail(now func() time.Time) *Trail {
	if now == nil {
		now = time.Now
	}
	return &Trail{now: now}
}

// Logf appends a "[timestamp] message" line.
func (t *Trail) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.Logs = append(t.Logs, fmt.Sprintf("[%s] %s", t.now().Format(LogTimeLayout), msg))
}

// Step appends a step record.
func (t *Trail) Step(name string, status StepStatus, message string) {
	t.Steps = append(t.Steps, StepRecord{
		Name:      name,
		Status:    status,
		Message:   message,
		Timestamp: t.now().UnixMilli(),
	})
}

// Prepend inserts lines before the trail's own logs.
func (t *Trail) Prepend(lines []string) {
	if len(lines) == 0 {
		return
	}
	merged := make([]string, 0, len(lines)+len(t.Logs))
	merged = append(merged, lines...)
	t.Logs = append(merged, t.Logs...)
}

// Now returns the trail's clock reading.
func (t *Trail) Now() time.Time {
	return t.now()
}
