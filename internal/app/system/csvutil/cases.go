// internal/app/system/csvutil/cases.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dalemusser/casehub/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
)

// CaseHeader is the expected column order for case CSV uploads and the
// header written by EncodeCases.
var CaseHeader = []string{
	"name", "age", "sex", "occupation",
	"immunizations", "chronicIllnesses", "minorIllnesses",
	"familySocialHistory", "chiefComplaint", "currentSymptoms",
}

// RowError describes one rejected row in an uploaded CSV.
type RowError struct {
	Row    int    `json:"row"` // 1-indexed, excluding the header
	Reason string `json:"reason"`
}

// List fields (immunizations etc.) are semicolon-delimited within one
// CSV cell; free-text fields are stripped of any embedded HTML before
// they reach the database.
var sanitize = bluemonday.StrictPolicy()

// PreScanCasesCSV reads all rows from r, skips a header if present,
// validates each row, and returns the parsed cases plus per-row errors.
// It never writes to a DB; it's safe to call before any mutations.
func PreScanCasesCSV(r io.Reader) ([]models.ClinicalCase, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Pull first row to check header
	first, ferr := reader.Read()
	if ferr == io.EOF {
		first = nil
	} else if ferr != nil {
		return nil, nil, fmt.Errorf("read csv: %w", ferr)
	}

	var raw [][]string
	if isCaseHeader(first) {
		// header detected → skip
	} else if first != nil {
		raw = append(raw, first)
	}
	for {
		rec, e := reader.Read()
		if e == io.EOF {
			break
		}
		if e != nil || len(rec) == 0 {
			continue
		}
		raw = append(raw, rec)
		if len(raw) > MaxRows {
			return nil, nil, fmt.Errorf("csv exceeds %d rows", MaxRows)
		}
	}

	var (
		cases []models.ClinicalCase
		errs  []RowError
	)
	for i, rec := range raw {
		row := i + 1
		c, reason := parseCaseRow(rec)
		if reason != "" {
			errs = append(errs, RowError{Row: row, Reason: reason})
			continue
		}
		cases = append(cases, c)
	}
	return cases, errs, nil
}

func isCaseHeader(rec []string) bool {
	return len(rec) >= 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "name") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "age")
}

func parseCaseRow(rec []string) (models.ClinicalCase, string) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var c models.ClinicalCase
	c.Name = sanitize.Sanitize(field(0))
	if c.Name == "" {
		return c, "missing name"
	}

	age, err := strconv.Atoi(field(1))
	if err != nil || age < 0 {
		return c, "age must be a non-negative integer"
	}
	c.Age = age

	c.Sex = field(2)
	if c.Sex == "" {
		return c, "missing sex"
	}
	c.Occupation = sanitize.Sanitize(field(3))

	c.Immunizations = splitList(field(4))
	c.ChronicIllnesses = splitList(field(5))
	c.MinorIllnesses = splitList(field(6))

	c.FamilySocialHistory = sanitize.Sanitize(field(7))
	if c.FamilySocialHistory == "" {
		return c, "missing familySocialHistory"
	}
	c.ChiefComplaint = sanitize.Sanitize(field(8))
	if c.ChiefComplaint == "" {
		return c, "missing chiefComplaint"
	}

	c.CurrentSymptoms = splitList(field(9))
	if len(c.CurrentSymptoms) == 0 {
		return c, "missing currentSymptoms"
	}

	return c, ""
}

// splitList splits a semicolon-delimited cell into trimmed entries,
// dropping empties.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, sanitize.Sanitize(v))
		}
	}
	return out
}

// EncodeCases writes the given cases as CSV to w, including the header.
func EncodeCases(w io.Writer, cases []models.ClinicalCase) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CaseHeader); err != nil {
		return err
	}
	for _, c := range cases {
		rec := []string{
			c.Name,
			strconv.Itoa(c.Age),
			c.Sex,
			c.Occupation,
			strings.Join(c.Immunizations, "; "),
			strings.Join(c.ChronicIllnesses, "; "),
			strings.Join(c.MinorIllnesses, "; "),
			c.FamilySocialHistory,
			c.ChiefComplaint,
			strings.Join(c.CurrentSymptoms, "; "),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
