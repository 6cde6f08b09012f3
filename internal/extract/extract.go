package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/taxlookup/internal/address"
	"github.com/nao1215/taxlookup/internal/model"
)

// Labels maps normalized row labels to their values.
type Labels map[string]string

// Resolve returns the value of the first label of k present in l.
func (l Labels) Resolve(k Key) (string, bool) {
	for _, label := range mapping[k] {
		if v, ok := l[label]; ok {
			return v, true
		}
	}
	return "", false
}

// Result is the outcome of reading a company table.
type Result struct {
	Labels Labels
	// Rows counts the values stored by both passes, overwrites included.
	Rows int
	// Diagnostics are human readable lines describing each stored value.
	Diagnostics []string
}

// Value returns the resolved value of k, or "".
func (r Result) Value(k Key) string {
	v, _ := r.Labels.Resolve(k)
	return v
}

// structuredField reads one value from schema.org markup.
type structuredField struct {
	label    string
	desc     string
	selector string
	// inner narrows the first match of selector, when set.
	inner string
}

// Structured values are stored under the label their table row carries,
// so the generic pass treats them as already present.
var structuredFields = []structuredField{
	{label: "tên công ty", desc: "Company name", selector: "th[itemprop=name], th [itemprop=name]"},
	{label: "mã số thuế", desc: "Tax code", selector: "[itemprop=taxID]"},
	{label: "địa chỉ", desc: "Address", selector: "[itemprop=address]"},
	{label: "người đại diện", desc: "Representative", selector: "[itemprop=alumni]", inner: "[itemprop=name]"},
	{label: "điện thoại", desc: "Phone", selector: "[itemprop=telephone]", inner: "span[class*=copy]"},
}

// addressLabel marks labels whose later rows overwrite earlier values.
const addressLabel = "địa chỉ"

// FromDocument reads the first table of doc. A page without a table
// yields an empty Result.
func FromDocument(doc *goquery.Document) Result {
	res := Result{Labels: Labels{}}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return res
	}

	for _, f := range structuredFields {
		sel := table.Find(f.selector).First()
		if f.inner != "" && sel.Length() > 0 {
			sel = sel.Find(f.inner).First()
		}
		if sel.Length() == 0 {
			continue
		}
		value := strings.TrimSpace(sel.Text())
		if value == "" {
			continue
		}
		res.Labels[f.label] = value
		res.Rows++
		shown := value
		if f.label == addressLabel {
			shown = Truncate(value, 60)
		}
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("  ✓ %s (itemprop): %s", f.desc, shown))
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		rawLabel := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if rawLabel == "" || value == "" {
			return
		}

		label := NormalizeLabel(rawLabel)
		if _, seen := res.Labels[label]; seen && !strings.Contains(label, addressLabel) {
			return
		}
		res.Labels[label] = value
		res.Rows++
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("  - Found \"%s\": %s", label, Truncate(value, 60)))
	})

	return res
}

var (
	whitespace         = regexp.MustCompile(`\s+`)
	leadingPunctuation = regexp.MustCompile(`^[\s\p{P}]+`)
	nonDigit           = regexp.MustCompile(`\D`)
)

// NormalizeLabel collapses whitespace, lowercases and strips leading
// punctuation or bullets from a row label.
func NormalizeLabel(s string) string {
	label := address.Fold(whitespace.ReplaceAllString(s, " "))
	label = leadingPunctuation.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// Truncate shortens s to n characters followed by "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Apply copies the resolved fields onto rec. The address is split into
// components and the phone is reduced to digits. The tax code is left to
// the caller, which validates it against the query first.
// ErrCompanyNotFound is returned when no name was found.
func (r Result) Apply(rec *model.CompanyRecord) error {
	rec.Name = r.Value(KeyName)
	rec.NameInternational = r.Value(KeyNameInternational)
	rec.NameShort = r.Value(KeyNameShort)
	rec.TaxAddress = r.Value(KeyTaxAddress)

	if addr := r.Value(KeyAddress); addr != "" {
		rec.Address = addr
		parts := address.Parse(addr)
		rec.AddressLine1 = address.String(parts.Line1)
		rec.City = address.String(parts.City)
		rec.StateProvince = address.String(parts.StateProvince)
		rec.Country = address.String(parts.Country)
	}

	rec.Representative = r.Value(KeyRepresentative)
	rec.EstablishedDate = r.Value(KeyEstablishedDate)
	rec.Status = r.Value(KeyStatus)
	rec.BusinessType = r.Value(KeyBusinessType)
	rec.BusinessSector = r.Value(KeyBusinessSector)
	rec.ManagedBy = r.Value(KeyManagedBy)

	if phone := r.Value(KeyPhone); phone != "" {
		rec.Phone = Digits(phone)
	}

	if rec.Name == "" {
		return ErrCompanyNotFound
	}
	return nil
}
