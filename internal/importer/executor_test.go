package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory Catalog so tests can assert final record state.
type fakeCatalog struct {
	products   map[string]*models.Product
	brands     map[string]*models.Brand
	categories map[string]*models.Category

	failCreateProduct map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:   make(map[string]*models.Product),
		brands:     make(map[string]*models.Brand),
		categories: make(map[string]*models.Category),
	}
}

func (f *fakeCatalog) Exists(_ context.Context, kind models.RecordKind, slug string) (bool, error) {
	switch kind {
	case models.KindProduct:
		_, ok := f.products[slug]
		return ok, nil
	case models.KindBrand:
		_, ok := f.brands[slug]
		return ok, nil
	case models.KindCategory:
		_, ok := f.categories[slug]
		return ok, nil
	}
	return false, fmt.Errorf("unknown kind %q", kind)
}

func (f *fakeCatalog) CreateBrand(_ context.Context, brand *models.Brand) error {
	if _, ok := f.brands[brand.Slug]; ok {
		return fmt.Errorf("create brand %q: %w", brand.Slug, ErrDuplicateKey)
	}
	f.brands[brand.Slug] = brand
	return nil
}

func (f *fakeCatalog) CreateCategory(_ context.Context, category *models.Category) error {
	if _, ok := f.categories[category.Slug]; ok {
		return fmt.Errorf("create category %q: %w", category.Slug, ErrDuplicateKey)
	}
	f.categories[category.Slug] = category
	return nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, product *models.Product) error {
	if err := f.failCreateProduct[product.Slug]; err != nil {
		return err
	}
	if _, ok := f.products[product.Slug]; ok {
		return fmt.Errorf("create product %q: %w", product.Slug, ErrDuplicateKey)
	}
	f.products[product.Slug] = product
	return nil
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, slug string, product *models.Product) error {
	if _, ok := f.products[slug]; !ok {
		return fmt.Errorf("update product %q: not found", slug)
	}
	f.products[slug] = product
	return nil
}

func (f *fakeCatalog) UpdateProductImages(_ context.Context, slug string, mainImage string, gallery models.StringList) error {
	p, ok := f.products[slug]
	if !ok {
		return fmt.Errorf("update product images %q: not found", slug)
	}
	p.MainImage = mainImage
	p.GalleryImages = gallery
	return nil
}

// fakeStore records uploads and can fail for selected slugs.
type fakeStore struct {
	uploads []string
	failFor map[string]error
}

func (f *fakeStore) Upload(_ context.Context, folder, name string, data []byte) (string, error) {
	slug := strings.SplitN(name, "/", 2)[0]
	if err := f.failFor[slug]; err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, folder+"/"+name)
	return "https://cdn.example.com/" + folder + "/" + name, nil
}

func validVerdict(index int, slug string) models.ValidationVerdict {
	return models.ValidationVerdict{
		Row:    validRow(index, slug),
		Status: models.VerdictValid,
	}
}

func collect(t *testing.T, events <-chan ImportEvent) []ImportEvent {
	t.Helper()
	var out []ImportEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func finalStats(t *testing.T, events []ImportEvent) models.ImportStats {
	t.Helper()
	require.NotEmpty(t, events)
	complete, ok := events[len(events)-1].(CompleteEvent)
	require.True(t, ok, "last event must be complete, got %T", events[len(events)-1])
	return complete.Stats
}

func TestExecuteCreatesProductWithPlaceholders(t *testing.T) {
	catalog := newFakeCatalog()
	store := &fakeStore{}
	exec := NewExecutor(catalog, store, nil)

	v := validVerdict(1, "pump-1")
	v.Row.CategorySlug = "new-cat"
	v.Row.BrandSlug = "new-brand"
	v.Status = models.VerdictWarning

	events := collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{}))

	require.Len(t, events, 3)
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionCreated}, events[0])
	assert.Equal(t, ProgressEvent{Current: 1, Total: 1, Slug: "pump-1"}, events[1])

	stats := finalStats(t, events)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Failed)

	// placeholder records created with title-cased English names
	require.Contains(t, catalog.categories, "new-cat")
	assert.Equal(t, "New Cat", catalog.categories["new-cat"].Name.En)
	assert.Equal(t, "", catalog.categories["new-cat"].Name.Th)
	require.Contains(t, catalog.brands, "new-brand")
	assert.Equal(t, "New Brand", catalog.brands["new-brand"].Name.En)

	require.Contains(t, catalog.products, "pump-1")
	assert.Equal(t, "Pump", catalog.products["pump-1"].Name.En)
}

func TestExecuteUploadsImagesInOrder(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	catalog.categories["water-pumps"] = &models.Category{Slug: "water-pumps"}
	store := &fakeStore{}
	exec := NewExecutor(catalog, store, nil)

	v := validVerdict(1, "pump-1")
	v.Images = models.ImageGroup{
		{Path: "products/pump-1/1.jpg", Data: []byte("a")},
		{Path: "products/pump-1/2.PNG", Data: []byte("b")},
	}

	events := collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{}))
	stats := finalStats(t, events)
	assert.Equal(t, 1, stats.Created)

	p := catalog.products["pump-1"]
	assert.Equal(t, "https://cdn.example.com/products/pump-1/1.jpg", p.MainImage)
	require.Len(t, p.GalleryImages, 1)
	assert.Equal(t, "https://cdn.example.com/products/pump-1/2.png", p.GalleryImages[0])
	assert.Equal(t, []string{"products/pump-1/1.jpg", "products/pump-1/2.png"}, store.uploads)
}

func TestExecuteSkipsErrorRows(t *testing.T) {
	catalog := newFakeCatalog()
	exec := NewExecutor(catalog, &fakeStore{}, nil)

	v := models.ValidationVerdict{
		Row:    models.ParsedRow{Index: 1, Slug: "pump-1"},
		Status: models.VerdictError,
		Errors: []string{"name_en: required", "brand_slug: required"},
	}

	// skipErrors only filters upstream; rows with errors that reach the
	// executor are skipped either way
	for _, skipErrors := range []bool{false, true} {
		events := collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{SkipErrors: skipErrors}))

		require.Len(t, events, 3)
		skipped, ok := events[0].(SkippedEvent)
		require.True(t, ok)
		assert.Equal(t, "pump-1", skipped.Slug)
		assert.Contains(t, skipped.Reason, "name_en: required")
		assert.Contains(t, skipped.Reason, "brand_slug: required")

		stats := finalStats(t, events)
		assert.Equal(t, 1, stats.Skipped)
		assert.Empty(t, catalog.products)
	}
}

func TestExecuteOverwritePolicy(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	catalog.categories["water-pumps"] = &models.Category{Slug: "water-pumps"}
	exec := NewExecutor(catalog, &fakeStore{}, nil)

	v := validVerdict(1, "pump-1")

	// first run creates
	events := collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{OverwriteExisting: true}))
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionCreated}, events[0])
	assert.Equal(t, 1, finalStats(t, events).Created)
	after1 := *catalog.products["pump-1"]

	// second run with overwrite updates, not creates
	events = collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{OverwriteExisting: true}))
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionUpdated}, events[0])
	stats := finalStats(t, events)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, stats.Updated)

	// final catalog state identical after either run
	assert.Equal(t, after1, *catalog.products["pump-1"])

	// without overwrite the existing product is left alone
	events = collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v}, models.ImportOptions{OverwriteExisting: false}))
	skipped, ok := events[0].(SkippedEvent)
	require.True(t, ok)
	assert.Equal(t, "already exists", skipped.Reason)
	assert.Equal(t, 1, finalStats(t, events).Skipped)
}

func TestExecuteFailureIsolation(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	catalog.categories["water-pumps"] = &models.Category{Slug: "water-pumps"}
	store := &fakeStore{failFor: map[string]error{"pump-2": errors.New("upload timeout")}}
	exec := NewExecutor(catalog, store, nil)

	verdicts := []models.ValidationVerdict{
		validVerdict(1, "pump-1"),
		validVerdict(2, "pump-2"),
		validVerdict(3, "pump-3"),
	}
	for i := range verdicts {
		slug := verdicts[i].Row.Slug
		verdicts[i].Images = models.ImageGroup{{Path: "products/" + slug + "/1.jpg", Data: []byte("x")}}
	}

	events := collect(t, exec.Execute(context.Background(), verdicts, models.ImportOptions{}))

	// outcome + progress per row, then complete
	require.Len(t, events, 7)
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionCreated}, events[0])
	assert.Equal(t, ProgressEvent{Current: 1, Total: 3, Slug: "pump-1"}, events[1])

	errEv, ok := events[2].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "pump-2", errEv.Slug)
	assert.Contains(t, errEv.Message, "upload timeout")
	assert.Equal(t, ProgressEvent{Current: 2, Total: 3, Slug: "pump-2"}, events[3])

	assert.Equal(t, SuccessEvent{Slug: "pump-3", Action: ActionCreated}, events[4])
	assert.Equal(t, ProgressEvent{Current: 3, Total: 3, Slug: "pump-3"}, events[5])

	stats := finalStats(t, events)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "pump-2", stats.Failures[0].Slug)

	assert.Contains(t, catalog.products, "pump-1")
	assert.NotContains(t, catalog.products, "pump-2")
	assert.Contains(t, catalog.products, "pump-3")
}

func TestExecuteDuplicateKeyOnPlaceholderIsNotFatal(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	exec := NewExecutor(catalog, &fakeStore{}, nil)

	// two rows referencing the same new category; the second ensure sees it
	// already created
	v1 := validVerdict(1, "pump-1")
	v1.Row.CategorySlug = "new-cat"
	v2 := validVerdict(2, "pump-2")
	v2.Row.CategorySlug = "new-cat"

	events := collect(t, exec.Execute(context.Background(), []models.ValidationVerdict{v1, v2}, models.ImportOptions{}))

	stats := finalStats(t, events)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 0, stats.Failed)
	assert.Len(t, catalog.categories, 1)
}

func TestExecuteEndToEndScenario(t *testing.T) {
	// one valid row, category new-cat not yet existing, no archive,
	// options {overwriteExisting:false, skipErrors:true}
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	exec := NewExecutor(catalog, &fakeStore{}, nil)

	row := validRow(1, "pump-1")
	row.CategorySlug = "new-cat"

	verdicts, summary := Validate([]models.ParsedRow{row}, nil, NewKnownRefs([]string{"laemthong"}, nil))
	require.Equal(t, models.ValidationSummary{Total: 1, Warning: 1}, summary)
	require.Equal(t, models.VerdictWarning, verdicts[0].Status)

	events := collect(t, exec.Execute(context.Background(), verdicts, models.ImportOptions{OverwriteExisting: false, SkipErrors: true}))

	require.Len(t, events, 3)
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionCreated}, events[0])
	assert.Equal(t, ProgressEvent{Current: 1, Total: 1, Slug: "pump-1"}, events[1])
	assert.Equal(t, 1, finalStats(t, events).Created)

	assert.Contains(t, catalog.categories, "new-cat")
	assert.Contains(t, catalog.products, "pump-1")
}

func TestExecuteCancellationStopsAtRowBoundary(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brands["laemthong"] = &models.Brand{Slug: "laemthong"}
	catalog.categories["water-pumps"] = &models.Category{Slug: "water-pumps"}
	exec := NewExecutor(catalog, &fakeStore{}, nil)

	verdicts := []models.ValidationVerdict{
		validVerdict(1, "pump-1"),
		validVerdict(2, "pump-2"),
		validVerdict(3, "pump-3"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := exec.Execute(ctx, verdicts, models.ImportOptions{})

	// consume the first row's outcome and progress, then walk away
	first, ok := <-events
	require.True(t, ok)
	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionCreated}, first)
	<-events
	cancel()

	var sawComplete bool
	for ev := range events {
		if _, ok := ev.(CompleteEvent); ok {
			sawComplete = true
		}
	}
	assert.False(t, sawComplete, "cancelled run must not emit complete")
	assert.Contains(t, catalog.products, "pump-1")
	assert.NotContains(t, catalog.products, "pump-3")
}

func TestAttachImagesReplacesAndReportsOrphans(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.products["pump-1"] = &models.Product{Slug: "pump-1", MainImage: "old.jpg"}
	store := &fakeStore{}
	exec := NewExecutor(catalog, store, nil)

	images := map[string]models.ImageGroup{
		"pump-1":   {{Path: "products/pump-1/1.jpg", Data: []byte("a")}},
		"orphan-x": {{Path: "products/orphan-x/1.jpg", Data: []byte("b")}},
	}

	events := collect(t, exec.AttachImages(context.Background(), images))
	require.Len(t, events, 5)

	// slugs are processed in sorted order: orphan-x first
	skipped, ok := events[0].(SkippedEvent)
	require.True(t, ok)
	assert.Equal(t, "orphan-x", skipped.Slug)
	assert.Contains(t, skipped.Reason, "orphaned")

	assert.Equal(t, SuccessEvent{Slug: "pump-1", Action: ActionUpdated}, events[2])

	stats := finalStats(t, events)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)

	assert.Equal(t, "https://cdn.example.com/products/pump-1/1.jpg", catalog.products["pump-1"].MainImage)
	assert.NotContains(t, catalog.products, "orphan-x")
}
