package table

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnparseableTime   = errors.New("unrecognized timestamp")
	ErrUnparseableNumber = errors.New("unrecognized number")
)

// timeLayouts are tried in order. Slash dates are read month first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"01-02-06",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// missing values as pandas reads them
var missingValues = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"-":    {},
}

// ParseTime reads a timestamp cell. Spreadsheet sources may also hold the serial day
// number of the date.
func ParseTime(s string, source Source) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableTime
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if source == SourceXLSX {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, ErrUnparseableTime
}

// IsMissing reports whether a cell holds no value
func IsMissing(s string) bool {
	_, missing := missingValues[strings.ToLower(strings.TrimSpace(s))]
	return missing
}

// thousandsGroups matches a number whose commas only separate groups of three digits
var thousandsGroups = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseNumber reads a numeric cell. Currency symbols, percent signs and surrounding spaces
// are ignored. Commas are accepted only as thousands separators so decimal commas such as
// "1,5" are rejected instead of read as a different number. Missing cells are NaN.
func ParseNumber(s string) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '%', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if strings.ContainsRune(cleaned, ',') {
		if !thousandsGroups.MatchString(cleaned) {
			return math.NaN(), ErrUnparseableNumber
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return math.NaN(), ErrUnparseableNumber
	}
	return d.InexactFloat64(), nil
}
