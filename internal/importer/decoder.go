package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// DecodeCSV parses CSV table text into rows. The only failure surfaced here is
// a structurally broken table (bad header, unterminated quotes, inconsistent
// field counts); everything else is row-scoped and left to the validator.
func DecodeCSV(r io.Reader) ([]models.ParsedRow, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	normalizeHeaders(headers)

	var rows []models.ParsedRow
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line+1, err)
		}

		cells := make(map[string]string)
		empty := true
		for i, value := range record {
			if i < len(headers) {
				value = strings.TrimSpace(value)
				cells[headers[i]] = value
				if value != "" {
					empty = false
				}
			}
		}
		line++
		if empty {
			continue
		}
		rows = append(rows, buildRow(cells, len(rows)+1))
	}

	return rows, nil
}

// DecodeXLSX parses the first sheet of an Excel workbook, preferring a sheet
// named "Products" when present.
func DecodeXLSX(r io.Reader) ([]models.ParsedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 1 {
		return nil, fmt.Errorf("file must have a header row")
	}

	headers := excelRows[0]
	normalizeHeaders(headers)

	var rows []models.ParsedRow
	for _, excelRow := range excelRows[1:] {
		cells := make(map[string]string)
		empty := true
		for i, value := range excelRow {
			if i < len(headers) {
				value = strings.TrimSpace(value)
				cells[headers[i]] = value
				if value != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		rows = append(rows, buildRow(cells, len(rows)+1))
	}

	return rows, nil
}

func normalizeHeaders(headers []string) {
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}
}

// buildRow maps one record's cells onto a ParsedRow. Absent scalar values
// default to the empty string; sort_order defaults to 0 on any non-numeric
// input.
func buildRow(cells map[string]string, index int) models.ParsedRow {
	row := models.ParsedRow{
		Index: index,
		Slug:  cells["slug"],
		Name: models.LocalizedText{
			Th: cells["name_th"],
			En: cells["name_en"],
		},
		ShortDescription: models.LocalizedText{
			Th: cells["short_description_th"],
			En: cells["short_description_en"],
		},
		Description: models.LocalizedText{
			Th: cells["description_th"],
			En: cells["description_en"],
		},
		CategorySlug: cells["category_slug"],
		BrandSlug:    cells["brand_slug"],
		Featured:     ParseFlag(cells["featured"]),
		SortOrder:    parseIntDefault(cells["sort_order"], 0),
		Raw: models.RawColumns{
			SpecLabelsTh: cells[models.ColSpecLabelsTh],
			SpecLabelsEn: cells[models.ColSpecLabelsEn],
			SpecValuesTh: cells[models.ColSpecValuesTh],
			SpecValuesEn: cells[models.ColSpecValuesEn],
			FeaturesTh:   cells[models.ColFeaturesTh],
			FeaturesEn:   cells[models.ColFeaturesEn],
		},
	}

	row.Specifications = zipSpecs(row.Raw)
	row.Features = zipFeatures(row.Raw)

	return row
}

// zipSpecs reconstructs the specification table from the four parallel
// pipe-delimited columns. The entry count is the maximum split length across
// the four; shorter columns are padded with empty strings so the mismatch
// surfaces as a validator finding instead of a parse failure.
func zipSpecs(raw models.RawColumns) models.SpecList {
	if raw.SpecLabelsTh == "" && raw.SpecLabelsEn == "" && raw.SpecValuesTh == "" && raw.SpecValuesEn == "" {
		return nil
	}

	labelsTh := SplitPipe(raw.SpecLabelsTh)
	labelsEn := SplitPipe(raw.SpecLabelsEn)
	valuesTh := SplitPipe(raw.SpecValuesTh)
	valuesEn := SplitPipe(raw.SpecValuesEn)

	count := maxLen(len(labelsTh), len(labelsEn), len(valuesTh), len(valuesEn))
	specs := make(models.SpecList, 0, count)
	for i := 0; i < count; i++ {
		specs = append(specs, models.SpecEntry{
			Label: models.LocalizedText{Th: at(labelsTh, i), En: at(labelsEn, i)},
			Value: models.LocalizedText{Th: at(valuesTh, i), En: at(valuesEn, i)},
		})
	}
	return specs
}

// zipFeatures applies the same zip-by-max-length rule to the two feature
// columns.
func zipFeatures(raw models.RawColumns) models.FeatureList {
	if raw.FeaturesTh == "" && raw.FeaturesEn == "" {
		return nil
	}

	th := SplitPipe(raw.FeaturesTh)
	en := SplitPipe(raw.FeaturesEn)

	count := maxLen(len(th), len(en))
	features := make(models.FeatureList, 0, count)
	for i := 0; i < count; i++ {
		features = append(features, models.LocalizedText{Th: at(th, i), En: at(en, i)})
	}
	return features
}

// SplitPipe splits a pipe-delimited cell into trimmed segments. An empty cell
// yields no segments.
func SplitPipe(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseFlag coerces a loosely-typed boolean cell. Recognized true tokens are
// "true", "1", "yes" and "y" (case-insensitive); anything else, including the
// empty string, is false.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if num, err := strconv.Atoi(value); err == nil {
		return num
	}
	return def
}

func maxLen(lengths ...int) int {
	max := 0
	for _, l := range lengths {
		if l > max {
			max = l
		}
	}
	return max
}

func at(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
