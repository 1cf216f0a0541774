// pkg/loader/loader.go
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tablebot/tablebot/pkg/model"
)

// FormatError reports input that cannot be parsed as tabular data.
// The run is aborted and no artifact is produced when Load fails.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unparseable tabular input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unparseable tabular input: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// nullTokens are string representations treated as missing values.
// The set covers SQL-ish null spellings plus the default NA markers
// of common tabular tooling.
var nullTokens = map[string]bool{
	"":     true,
	"null": true,
	"NULL": true,
	"nil":  true,
	"NIL":  true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"nan":  true,
	"NaN":  true,
}

// temporalLayouts are the date/time shapes the loader recognizes when
// inferring a temporal column.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Load parses raw bytes into a Table. Only a single delimited format
// (CSV with a header row) is accepted; size limits are the caller's
// responsibility. A header-only file is valid and yields a zero-row
// table. Pure: no side effects, the input slice is never retained.
func Load(data []byte, name string) (*model.Table, error) {
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, &FormatError{Reason: "content is not readable text"}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{Reason: "empty input"}
	}
	if err != nil {
		return nil, &FormatError{Reason: "cannot read header row", Err: err}
	}
	names, err := headerNames(header)
	if err != nil {
		return nil, err
	}

	columns := make([]model.Column, len(names))
	for i, n := range names {
		columns[i] = model.Column{Name: n}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Includes csv.ErrFieldCount for rows disagreeing with the header width.
			return nil, &FormatError{Reason: "malformed row", Err: err}
		}
		for i, raw := range rec {
			cell := model.Cell{Value: raw}
			if nullTokens[strings.TrimSpace(raw)] {
				cell = model.Cell{Missing: true}
			}
			columns[i].Cells = append(columns[i].Cells, cell)
		}
	}

	for i := range columns {
		columns[i].Kind, columns[i].Mixed = inferKind(columns[i].Cells)
	}

	return &model.Table{Name: name, Columns: columns}, nil
}

// headerNames validates the header row and makes duplicate names unique
// by suffixing an occurrence counter, so a table never silently merges
// two columns.
func headerNames(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, &FormatError{Reason: "header row has no columns"}
	}
	seen := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, raw := range header {
		n := strings.TrimSpace(raw)
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if c := seen[n]; c > 0 {
			names[i] = fmt.Sprintf("%s_%d", n, c+1)
		} else {
			names[i] = n
		}
		seen[n]++
	}
	return names, nil
}

// inferKind scans every non-missing cell of a column and picks the one
// kind that fits all of them. Columns mixing kinds are coerced to text
// and flagged, never dropped. A column with no observed values is
// unknown.
func inferKind(cells []model.Cell) (model.CellKind, bool) {
	var observed int
	numeric, boolean, temporal := true, true, true

	for _, c := range cells {
		if c.Missing {
			continue
		}
		observed++
		v := strings.TrimSpace(c.Value)
		if numeric {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
			}
		}
		if boolean && !isBoolToken(v) {
			boolean = false
		}
		if temporal && !isTemporal(v) {
			temporal = false
		}
		if !numeric && !boolean && !temporal {
			break
		}
	}

	if observed == 0 {
		return model.KindUnknown, false
	}
	switch {
	case boolean:
		return model.KindBoolean, false
	case numeric:
		return model.KindNumeric, false
	case temporal:
		return model.KindTemporal, false
	default:
		// Text is the coercion target for anything else, including
		// columns whose cells individually parse as different kinds.
		return model.KindText, mixedKinds(cells)
	}
}

// mixedKinds reports whether a text column contains cells that would
// individually parse as a non-text kind alongside ones that would not.
func mixedKinds(cells []model.Cell) bool {
	var typed, plain bool
	for _, c := range cells {
		if c.Missing {
			continue
		}
		v := strings.TrimSpace(c.Value)
		_, numErr := strconv.ParseFloat(v, 64)
		if numErr == nil || isBoolToken(v) || isTemporal(v) {
			typed = true
		} else {
			plain = true
		}
		if typed && plain {
			return true
		}
	}
	return false
}

func isBoolToken(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

func isTemporal(v string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
