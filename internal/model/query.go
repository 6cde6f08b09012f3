package model

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// QueryKind tells how a query is searched on the registry.
type QueryKind int

const (
	// KindName searches by company name (search type "auto").
	KindName QueryKind = iota
	// KindTaxCode searches by tax identifier (search type "enterpriseTax").
	KindTaxCode
)

// String returns the kind's label used in logs.
func (k QueryKind) String() string {
	if k == KindTaxCode {
		return "tax code"
	}
	return "name"
}

// SearchType returns the registry's search type parameter for the kind.
func (k QueryKind) SearchType() string {
	if k == KindTaxCode {
		return "enterpriseTax"
	}
	return "auto"
}

// Query length bounds accepted by ValidateQuery.
const (
	MinQueryLength = 2
	MaxQueryLength = 200
)

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrQueryTooShort is returned when the query has fewer than MinQueryLength characters.
	ErrQueryTooShort = errors.New("query is too short: at least 2 characters required")
	// ErrQueryTooLong is returned when the query has more than MaxQueryLength characters.
	ErrQueryTooLong = errors.New("query is too long: at most 200 characters allowed")
)

var taxCodePattern = regexp.MustCompile(`^\d[\d-]{8,13}$`)

// Query is a classified lookup input. It is immutable once built.
type Query struct {
	raw  string
	kind QueryKind
}

// ClassifyQuery trims s and decides whether it is a tax code or a name.
// A tax code starts with a digit, holds only digits and hyphens and is
// 10 to 14 characters long.
func ClassifyQuery(s string) Query {
	s = strings.TrimSpace(s)
	kind := KindName
	if n := len(s); n >= 10 && n <= 14 && taxCodePattern.MatchString(s) {
		kind = KindTaxCode
	}
	return Query{raw: s, kind: kind}
}

// ValidateQuery checks a caller-supplied query before it reaches the engine.
func ValidateQuery(s string) error {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return ErrEmptyQuery
	case n < MinQueryLength:
		return ErrQueryTooShort
	case n > MaxQueryLength:
		return ErrQueryTooLong
	}
	return nil
}

// Raw returns the trimmed query text.
func (q Query) Raw() string { return q.raw }

// Kind returns the query classification.
func (q Query) Kind() QueryKind { return q.kind }

// IsTaxCode reports whether the query is searched as a tax code.
func (q Query) IsTaxCode() bool { return q.kind == KindTaxCode }
