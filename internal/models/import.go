package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// Recognized multi-value column headers (pipe-delimited)
const (
	ColSpecLabelsTh = "spec_labels_th"
	ColSpecLabelsEn = "spec_labels_en"
	ColSpecValuesTh = "spec_values_th"
	ColSpecValuesEn = "spec_values_en"
	ColFeaturesTh   = "features_th"
	ColFeaturesEn   = "features_en"
)

// RawColumns retains the raw pipe-delimited cell values of a row so the
// validator can run its column-count consistency checks against the exact
// input text.
type RawColumns struct {
	SpecLabelsTh string `json:"specLabelsTh,omitempty"`
	SpecLabelsEn string `json:"specLabelsEn,omitempty"`
	SpecValuesTh string `json:"specValuesTh,omitempty"`
	SpecValuesEn string `json:"specValuesEn,omitempty"`
	FeaturesTh   string `json:"featuresTh,omitempty"`
	FeaturesEn   string `json:"featuresEn,omitempty"`
}

// ParsedRow is one logical product entry decoded from the input table.
// Created once by the decoder and read-only afterward.
type ParsedRow struct {
	Index            int           `json:"index"` // 1-based input position
	Slug             string        `json:"slug"`
	Name             LocalizedText `json:"name"`
	ShortDescription LocalizedText `json:"shortDescription"`
	Description      LocalizedText `json:"description"`
	CategorySlug     string        `json:"categorySlug"`
	BrandSlug        string        `json:"brandSlug"`
	Featured         bool          `json:"featured"`
	SortOrder        int           `json:"sortOrder"`
	Specifications   SpecList      `json:"specifications,omitempty"` // nil when no spec columns present
	Features         FeatureList   `json:"features,omitempty"`       // nil when no feature columns present
	Raw              RawColumns    `json:"-"`
}

// ImageFile is one image blob resolved from the archive
type ImageFile struct {
	Path string `json:"path"`
	Data []byte `json:"-"`
}

// ImageGroup is the ordered list of images for one product slug
type ImageGroup []ImageFile

// VerdictStatus classifies a validated row
type VerdictStatus string

const (
	VerdictValid   VerdictStatus = "valid"
	VerdictWarning VerdictStatus = "warning"
	VerdictError   VerdictStatus = "error"
)

// ValidationVerdict is the validation outcome for one row
type ValidationVerdict struct {
	Row      ParsedRow     `json:"row"`
	Status   VerdictStatus `json:"status"`
	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Images   ImageGroup    `json:"-"`
}

// ValidationSummary aggregates verdict counts for the review step
type ValidationSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// ImportOptions configures one import run
type ImportOptions struct {
	OverwriteExisting bool `json:"overwriteExisting"`
	SkipErrors        bool `json:"skipErrors"`
}

// ImportRowFailure records one row that failed during execution
type ImportRowFailure struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

// ImportStats are the aggregate counters for one import run
type ImportStats struct {
	Total    int                `json:"total"`
	Created  int                `json:"created"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Failures []ImportRowFailure `json:"failures,omitempty"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "slug", Description: "Unique product slug (lowercase, hyphenated)", Required: true, Type: "string", Example: "centrifugal-pump-x200"},
		{Name: "category_slug", Description: "Category slug - auto-creates if not exists", Required: true, Type: "string", Example: "water-pumps"},
		{Name: "brand_slug", Description: "Brand slug - auto-creates if not exists", Required: true, Type: "string", Example: "laemthong"},
		{Name: "name_th", Description: "Product name (Thai)", Required: true, Type: "string", Example: "ปั๊มน้ำหอยโข่ง X200"},
		{Name: "name_en", Description: "Product name (English)", Required: true, Type: "string", Example: "Centrifugal Pump X200"},
		{Name: "short_description_th", Description: "Short description (Thai)", Required: true, Type: "string", Example: ""},
		{Name: "short_description_en", Description: "Short description (English)", Required: true, Type: "string", Example: ""},
		{Name: "description_th", Description: "Full description (Thai)", Required: true, Type: "string", Example: ""},
		{Name: "description_en", Description: "Full description (English)", Required: true, Type: "string", Example: ""},
		{Name: "featured", Description: "Featured flag (true/1/yes)", Required: false, Type: "boolean", Example: "false"},
		{Name: "sort_order", Description: "Sort order (integer, default 0)", Required: false, Type: "number", Example: "10"},
		{Name: ColSpecLabelsTh, Description: "Spec labels (Thai), pipe-separated", Required: false, Type: "string", Example: "กำลังไฟ|น้ำหนัก"},
		{Name: ColSpecLabelsEn, Description: "Spec labels (English), pipe-separated", Required: false, Type: "string", Example: "Power|Weight"},
		{Name: ColSpecValuesTh, Description: "Spec values (Thai), pipe-separated", Required: false, Type: "string", Example: "750 วัตต์|12 กก."},
		{Name: ColSpecValuesEn, Description: "Spec values (English), pipe-separated", Required: false, Type: "string", Example: "750 W|12 kg"},
		{Name: ColFeaturesTh, Description: "Feature lines (Thai), pipe-separated", Required: false, Type: "string", Example: "ประหยัดพลังงาน|ทนทาน"},
		{Name: ColFeaturesEn, Description: "Feature lines (English), pipe-separated", Required: false, Type: "string", Example: "Energy saving|Durable"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
