package importer

import (
	"fmt"
	"regexp"
	"strings"

	"catalog-service/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// KnownRefs is the batch-scoped accumulator of brand/category slugs the
// validator treats as existing. It starts from a snapshot of the catalog and
// grows as rows reference slugs that will be auto-created, so the whole batch
// shares one view instead of mutating ambient state.
type KnownRefs struct {
	Brands     map[string]bool
	Categories map[string]bool

	// slugs first referenced by this batch, pending auto-creation
	pendingBrands     map[string]bool
	pendingCategories map[string]bool
}

// NewKnownRefs builds the accumulator from catalog snapshots.
func NewKnownRefs(brands, categories []string) *KnownRefs {
	k := &KnownRefs{
		Brands:            make(map[string]bool, len(brands)),
		Categories:        make(map[string]bool, len(categories)),
		pendingBrands:     make(map[string]bool),
		pendingCategories: make(map[string]bool),
	}
	for _, s := range brands {
		k.Brands[s] = true
	}
	for _, s := range categories {
		k.Categories[s] = true
	}
	return k
}

// Validate produces one verdict per row, in input order. The rows themselves
// are never mutated; re-running validation yields fresh verdicts.
func Validate(rows []models.ParsedRow, images map[string]models.ImageGroup, known *KnownRefs) ([]models.ValidationVerdict, models.ValidationSummary) {
	if known == nil {
		known = NewKnownRefs(nil, nil)
	}

	verdicts := make([]models.ValidationVerdict, 0, len(rows))
	summary := models.ValidationSummary{Total: len(rows)}
	seenSlugs := make(map[string]int, len(rows))

	for _, row := range rows {
		var errs, warns []string

		checkRequired(row, &errs)
		checkReferences(row, known, &warns)

		if prev, dup := seenSlugs[row.Slug]; dup && row.Slug != "" {
			errs = append(errs, fmt.Sprintf("slug: duplicate of row %d (%q)", prev, row.Slug))
		}
		if row.Slug != "" {
			if _, seen := seenSlugs[row.Slug]; !seen {
				seenSlugs[row.Slug] = row.Index
			}
		}

		checkSpecColumns(row.Raw, &errs, &warns)
		checkFeatureColumns(row.Raw, &errs, &warns)

		group := images[row.Slug]
		if len(group) == 0 {
			warns = append(warns, "images: no main image resolved; product will be created without images")
		}

		verdict := models.ValidationVerdict{
			Row:      row,
			Errors:   errs,
			Warnings: warns,
			Images:   group,
		}
		switch {
		case len(errs) > 0:
			verdict.Status = models.VerdictError
			summary.Error++
		case len(warns) > 0:
			verdict.Status = models.VerdictWarning
			summary.Warning++
		default:
			verdict.Status = models.VerdictValid
			summary.Valid++
		}
		verdicts = append(verdicts, verdict)
	}

	return verdicts, summary
}

func checkRequired(row models.ParsedRow, errs *[]string) {
	if row.Slug == "" {
		*errs = append(*errs, "slug: required")
	} else if !slugPattern.MatchString(row.Slug) {
		*errs = append(*errs, fmt.Sprintf("slug: %q must be lowercase letters, digits and hyphens", row.Slug))
	}
	if row.Name.Th == "" {
		*errs = append(*errs, "name_th: required")
	}
	if row.Name.En == "" {
		*errs = append(*errs, "name_en: required")
	}
	if row.ShortDescription.Th == "" {
		*errs = append(*errs, "short_description_th: required")
	}
	if row.ShortDescription.En == "" {
		*errs = append(*errs, "short_description_en: required")
	}
	if row.Description.Th == "" {
		*errs = append(*errs, "description_th: required")
	}
	if row.Description.En == "" {
		*errs = append(*errs, "description_en: required")
	}
	if row.CategorySlug == "" {
		*errs = append(*errs, "category_slug: required")
	}
	if row.BrandSlug == "" {
		*errs = append(*errs, "brand_slug: required")
	}
}

// checkReferences warns about brand/category slugs that are not in the catalog
// yet. The first referencing row registers the slug as pending so later rows
// warn about the earlier creation instead of announcing a second one.
func checkReferences(row models.ParsedRow, known *KnownRefs, warns *[]string) {
	if row.CategorySlug != "" && !known.Categories[row.CategorySlug] {
		if known.pendingCategories[row.CategorySlug] {
			*warns = append(*warns, fmt.Sprintf("category_slug: %q will be auto-created by an earlier row in this batch", row.CategorySlug))
		} else {
			known.pendingCategories[row.CategorySlug] = true
			*warns = append(*warns, fmt.Sprintf("category_slug: %q does not exist and will be auto-created with placeholder data", row.CategorySlug))
		}
	}
	if row.BrandSlug != "" && !known.Brands[row.BrandSlug] {
		if known.pendingBrands[row.BrandSlug] {
			*warns = append(*warns, fmt.Sprintf("brand_slug: %q will be auto-created by an earlier row in this batch", row.BrandSlug))
		} else {
			known.pendingBrands[row.BrandSlug] = true
			*warns = append(*warns, fmt.Sprintf("brand_slug: %q does not exist and will be auto-created with placeholder data", row.BrandSlug))
		}
	}
}

// checkSpecColumns verifies that every present spec column splits to the same
// length, and warns when only one language carries data.
func checkSpecColumns(raw models.RawColumns, errs, warns *[]string) {
	cols := []struct {
		name  string
		value string
	}{
		{models.ColSpecLabelsTh, raw.SpecLabelsTh},
		{models.ColSpecLabelsEn, raw.SpecLabelsEn},
		{models.ColSpecValuesTh, raw.SpecValuesTh},
		{models.ColSpecValuesEn, raw.SpecValuesEn},
	}

	var present []struct {
		name  string
		count int
	}
	for _, col := range cols {
		if col.value != "" {
			present = append(present, struct {
				name  string
				count int
			}{col.name, len(SplitPipe(col.value))})
		}
	}
	if len(present) == 0 {
		return
	}

	if len(present) >= 2 {
		mismatch := false
		for _, p := range present[1:] {
			if p.count != present[0].count {
				mismatch = true
				break
			}
		}
		if mismatch {
			parts := make([]string, 0, len(present))
			for _, p := range present {
				parts = append(parts, fmt.Sprintf("%s (%d)", p.name, p.count))
			}
			*errs = append(*errs, "specifications: column count mismatch: "+strings.Join(parts, ", "))
		}
	}

	hasTh := raw.SpecLabelsTh != "" || raw.SpecValuesTh != ""
	hasEn := raw.SpecLabelsEn != "" || raw.SpecValuesEn != ""
	if hasTh && !hasEn {
		*warns = append(*warns, "specifications: Thai data present without English")
	}
	if hasEn && !hasTh {
		*warns = append(*warns, "specifications: English data present without Thai")
	}
}

// checkFeatureColumns applies the analogous two-column check: a th/en length
// mismatch is an error, one-sided presence only a warning.
func checkFeatureColumns(raw models.RawColumns, errs, warns *[]string) {
	if raw.FeaturesTh == "" && raw.FeaturesEn == "" {
		return
	}

	if raw.FeaturesTh != "" && raw.FeaturesEn != "" {
		thCount := len(SplitPipe(raw.FeaturesTh))
		enCount := len(SplitPipe(raw.FeaturesEn))
		if thCount != enCount {
			*errs = append(*errs, fmt.Sprintf("features: column count mismatch: %s (%d), %s (%d)",
				models.ColFeaturesTh, thCount, models.ColFeaturesEn, enCount))
		}
		return
	}

	if raw.FeaturesTh != "" {
		*warns = append(*warns, "features: Thai data present without English")
	} else {
		*warns = append(*warns, "features: English data present without Thai")
	}
}
