package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"catalog-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateKey is returned by Catalog implementations when a create hits an
// existing slug. The executor treats it as already-satisfied for brand and
// category placeholders, so concurrent imports racing on the same new slug
// both succeed.
var ErrDuplicateKey = errors.New("duplicate key")

// Catalog is the record store the executor writes to.
type Catalog interface {
	Exists(ctx context.Context, kind models.RecordKind, slug string) (bool, error)
	CreateBrand(ctx context.Context, brand *models.Brand) error
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateProduct(ctx context.Context, product *models.Product) error
	// UpdateProduct replaces all importable fields of an existing product.
	UpdateProduct(ctx context.Context, slug string, product *models.Product) error
	// UpdateProductImages replaces only the image fields.
	UpdateProductImages(ctx context.Context, slug string, mainImage string, gallery models.StringList) error
}

// ImageStore accepts an image blob under a logical folder/name and returns a
// retrievable URL.
type ImageStore interface {
	Upload(ctx context.Context, folder, name string, data []byte) (string, error)
}

// Executor applies validated rows to the catalog, streaming one event per
// meaningful state change. Rows are processed sequentially so progress events
// stay deterministic and the image store sees bounded load.
type Executor struct {
	catalog Catalog
	store   ImageStore
	logger  *logrus.Logger
}

func NewExecutor(catalog Catalog, store ImageStore, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Executor{catalog: catalog, store: store, logger: logger}
}

// Execute runs the import and returns the event stream. The channel is
// unbuffered: emission blocks until the single consumer reads, so the executor
// never runs ahead of a slow caller. Cancellation is observed at row
// boundaries; the row in flight completes normally. The stream ends with
// exactly one CompleteEvent and is then closed.
func (e *Executor) Execute(ctx context.Context, verdicts []models.ValidationVerdict, opts models.ImportOptions) <-chan ImportEvent {
	events := make(chan ImportEvent)
	go e.run(ctx, verdicts, opts, events)
	return events
}

func (e *Executor) run(ctx context.Context, verdicts []models.ValidationVerdict, opts models.ImportOptions, events chan<- ImportEvent) {
	defer close(events)

	stats := models.ImportStats{Total: len(verdicts)}

	for i, verdict := range verdicts {
		if ctx.Err() != nil {
			e.logger.WithField("processed", i).Warn("import cancelled, stopping before next row")
			return
		}

		outcome := e.importRow(ctx, verdict, opts, &stats)
		if !e.emit(ctx, events, outcome) {
			return
		}
		if !e.emit(ctx, events, ProgressEvent{Current: i + 1, Total: len(verdicts), Slug: verdict.Row.Slug}) {
			return
		}
	}

	e.emit(ctx, events, CompleteEvent{Stats: stats})
}

// importRow runs one row to its terminal state. Any failure while resolving
// references, uploading images or writing the product is caught here and
// reported as an ErrorEvent; it never aborts the batch.
func (e *Executor) importRow(ctx context.Context, verdict models.ValidationVerdict, opts models.ImportOptions, stats *models.ImportStats) ImportEvent {
	slug := verdict.Row.Slug

	// Rows still carrying validation errors are never written. The
	// skipErrors option governs whether such rows reach the executor at
	// all; here they only count as skipped.
	if verdict.Status == models.VerdictError {
		stats.Skipped++
		return SkippedEvent{Slug: slug, Reason: strings.Join(verdict.Errors, "; ")}
	}

	fail := func(err error) ImportEvent {
		stats.Failed++
		stats.Failures = append(stats.Failures, models.ImportRowFailure{Slug: slug, Error: err.Error()})
		e.logger.WithFields(logrus.Fields{"slug": slug, "row": verdict.Row.Index}).WithError(err).Error("import row failed")
		return ErrorEvent{Slug: slug, Message: err.Error()}
	}

	if err := e.ensureCategory(ctx, verdict.Row.CategorySlug); err != nil {
		return fail(fmt.Errorf("resolve category %q: %w", verdict.Row.CategorySlug, err))
	}
	if err := e.ensureBrand(ctx, verdict.Row.BrandSlug); err != nil {
		return fail(fmt.Errorf("resolve brand %q: %w", verdict.Row.BrandSlug, err))
	}

	mainImage, gallery, err := e.uploadImages(ctx, slug, verdict.Images)
	if err != nil {
		return fail(fmt.Errorf("upload images: %w", err))
	}

	exists, err := e.catalog.Exists(ctx, models.KindProduct, slug)
	if err != nil {
		return fail(fmt.Errorf("check product: %w", err))
	}

	product := productFromRow(verdict.Row, mainImage, gallery)

	if !exists {
		if err := e.catalog.CreateProduct(ctx, product); err != nil {
			return fail(fmt.Errorf("create product: %w", err))
		}
		stats.Created++
		return SuccessEvent{Slug: slug, Action: ActionCreated}
	}

	if !opts.OverwriteExisting {
		stats.Skipped++
		return SkippedEvent{Slug: slug, Reason: "already exists"}
	}

	if err := e.catalog.UpdateProduct(ctx, slug, product); err != nil {
		return fail(fmt.Errorf("update product: %w", err))
	}
	stats.Updated++
	return SuccessEvent{Slug: slug, Action: ActionUpdated}
}

// AttachImages is the image-only mode: for every slug folder in the archive,
// replace the images of the existing product with that slug, or report the
// group as orphaned when no such product exists. No products are created.
func (e *Executor) AttachImages(ctx context.Context, images map[string]models.ImageGroup) <-chan ImportEvent {
	events := make(chan ImportEvent)

	// map order is randomized; sort for a deterministic stream
	slugs := make([]string, 0, len(images))
	for slug := range images {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	go func() {
		defer close(events)

		stats := models.ImportStats{Total: len(slugs)}

		for i, slug := range slugs {
			if ctx.Err() != nil {
				e.logger.WithField("processed", i).Warn("image import cancelled, stopping before next slug")
				return
			}

			outcome := e.attachSlug(ctx, slug, images[slug], &stats)
			if !e.emit(ctx, events, outcome) {
				return
			}
			if !e.emit(ctx, events, ProgressEvent{Current: i + 1, Total: len(slugs), Slug: slug}) {
				return
			}
		}

		e.emit(ctx, events, CompleteEvent{Stats: stats})
	}()

	return events
}

func (e *Executor) attachSlug(ctx context.Context, slug string, group models.ImageGroup, stats *models.ImportStats) ImportEvent {
	fail := func(err error) ImportEvent {
		stats.Failed++
		stats.Failures = append(stats.Failures, models.ImportRowFailure{Slug: slug, Error: err.Error()})
		e.logger.WithField("slug", slug).WithError(err).Error("image attach failed")
		return ErrorEvent{Slug: slug, Message: err.Error()}
	}

	exists, err := e.catalog.Exists(ctx, models.KindProduct, slug)
	if err != nil {
		return fail(fmt.Errorf("check product: %w", err))
	}
	if !exists {
		stats.Skipped++
		return SkippedEvent{Slug: slug, Reason: "orphaned image group: no product with this slug"}
	}

	mainImage, gallery, err := e.uploadImages(ctx, slug, group)
	if err != nil {
		return fail(fmt.Errorf("upload images: %w", err))
	}
	if err := e.catalog.UpdateProductImages(ctx, slug, mainImage, gallery); err != nil {
		return fail(fmt.Errorf("update product images: %w", err))
	}

	stats.Updated++
	return SuccessEvent{Slug: slug, Action: ActionUpdated}
}

// ensureCategory creates a placeholder category unless one already exists.
// Existence is re-checked right before creating, and a duplicate-key create
// means another writer won the race, which is fine.
func (e *Executor) ensureCategory(ctx context.Context, slug string) error {
	exists, err := e.catalog.Exists(ctx, models.KindCategory, slug)
	if err != nil || exists {
		return err
	}
	err = e.catalog.CreateCategory(ctx, &models.Category{
		Slug: slug,
		Name: placeholderName(slug),
	})
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	if err == nil {
		e.logger.WithField("slug", slug).Info("auto-created placeholder category")
	}
	return err
}

func (e *Executor) ensureBrand(ctx context.Context, slug string) error {
	exists, err := e.catalog.Exists(ctx, models.KindBrand, slug)
	if err != nil || exists {
		return err
	}
	err = e.catalog.CreateBrand(ctx, &models.Brand{
		Slug: slug,
		Name: placeholderName(slug),
	})
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	if err == nil {
		e.logger.WithField("slug", slug).Info("auto-created placeholder brand")
	}
	return err
}

// uploadImages stores each blob under products/<slug>/ in resolved order.
// The first uploaded URL becomes the main image, the rest the gallery.
func (e *Executor) uploadImages(ctx context.Context, slug string, group models.ImageGroup) (string, models.StringList, error) {
	var mainImage string
	gallery := make(models.StringList, 0)

	for i, img := range group {
		name := fmt.Sprintf("%s/%d%s", slug, i+1, strings.ToLower(path.Ext(img.Path)))
		url, err := e.store.Upload(ctx, "products", name, img.Data)
		if err != nil {
			return "", nil, fmt.Errorf("image %s: %w", img.Path, err)
		}
		if i == 0 {
			mainImage = url
		} else {
			gallery = append(gallery, url)
		}
	}

	return mainImage, gallery, nil
}

func (e *Executor) emit(ctx context.Context, events chan<- ImportEvent, ev ImportEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func productFromRow(row models.ParsedRow, mainImage string, gallery models.StringList) *models.Product {
	return &models.Product{
		Slug:             row.Slug,
		Name:             row.Name,
		ShortDescription: row.ShortDescription,
		Description:      row.Description,
		CategorySlug:     row.CategorySlug,
		BrandSlug:        row.BrandSlug,
		Featured:         row.Featured,
		SortOrder:        row.SortOrder,
		MainImage:        mainImage,
		GalleryImages:    gallery,
		Specifications:   row.Specifications,
		Features:         row.Features,
	}
}

// placeholderName derives the minimal localized name for an auto-created
// record: the title-cased slug as the English name, empty Thai.
func placeholderName(slug string) models.LocalizedText {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return models.LocalizedText{En: strings.Join(words, " ")}
}
