package kb

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Columns of the tab separated CMS work RVU extract.
const (
	rvuCode = "CODE"
	rvuYear = "YEAR"
	rvuWork = "WORK_RVU"
)

// RVUTable maps a normalized code to its work RVU per year.
type RVUTable map[string]map[string]float64

// ReadRVUTable loads a tab separated file with CODE, YEAR and WORK_RVU columns. Rows with a
// work RVU that is not a number are skipped and logged.
func ReadRVUTable(path string, logger logrus.FieldLogger) (RVUTable, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open RVU table")
	}
	defer f.Close()

	// Trim the Byte Order Marker if it's present
	df := dataframe.ReadCSV(utfbom.SkipOnly(f), dataframe.HasHeader(true), dataframe.DetectTypes(false),
		dataframe.WithDelimiter('\t'))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse RVU table")
	}

	names := make(map[string]bool)
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, required := range []string{rvuCode, rvuYear, rvuWork} {
		if !names[required] {
			return nil, errors.Errorf("RVU table %s is missing column %s", path, required)
		}
	}

	table := make(RVUTable)
	for i, record := range df.Maps() {
		code := NormalizeCode(cell(record, rvuCode))
		year := cell(record, rvuYear)
		value, err := strconv.ParseFloat(cell(record, rvuWork), 64)
		if err != nil || code == "" || year == "" {
			logger.WithFields(logrus.Fields{"row": i + 1, "code": code, "year": year}).
				Warn("Skipping unusable RVU table row")
			continue
		}
		if table[code] == nil {
			table[code] = make(map[string]float64)
		}
		table[code][year] = value
	}
	return table, nil
}

// cell returns the trimmed text of a column. Missing values come back from gota as nil.
func cell(record map[string]interface{}, column string) string {
	s, _ := record[column].(string)
	return strings.TrimSpace(s)
}

// WithRVUTable returns a copy of kb whose master index entries carry the table's yearly values
// for every year the document itself does not define. Codes outside the master index are ignored.
func (kb *KnowledgeBase) WithRVUTable(table RVUTable) *KnowledgeBase {
	out := *kb
	out.codes = make(map[string]CodeEntry, len(kb.codes))
	for code, entry := range kb.codes {
		years, ok := table[code]
		if !ok {
			out.codes[code] = entry
			continue
		}
		merged := make(map[string]interface{}, len(entry.RVUByYear)+len(years))
		for y, v := range years {
			merged[y] = v
		}
		for y, v := range entry.RVUByYear {
			merged[y] = v
		}
		entry.RVUByYear = merged
		out.codes[code] = entry
	}
	return &out
}
