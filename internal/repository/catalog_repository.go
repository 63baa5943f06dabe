package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ExistsCacheTTL = 2 * time.Minute // slug existence checks during imports
	SlugsCacheTTL  = 5 * time.Minute // brand/category slug snapshots
)

// CatalogRepository is the gorm-backed catalog record store with redis
// cache-aside for existence checks. A nil redis client disables caching.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ importer.Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

func existsCacheKey(kind models.RecordKind, slug string) string {
	return fmt.Sprintf("catalog:exists:%s:%s", kind, slug)
}

// Exists reports whether a record with the given slug exists.
func (r *CatalogRepository) Exists(ctx context.Context, kind models.RecordKind, slug string) (bool, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, existsCacheKey(kind, slug)).Result(); err == nil {
			return cached == "1", nil
		}
	}

	var count int64
	query := r.db.WithContext(ctx)
	switch kind {
	case models.KindProduct:
		query = query.Model(&models.Product{})
	case models.KindBrand:
		query = query.Model(&models.Brand{})
	case models.KindCategory:
		query = query.Model(&models.Category{})
	default:
		return false, fmt.Errorf("unknown record kind %q", kind)
	}
	if err := query.Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s %q: %w", kind, slug, err)
	}

	exists := count > 0
	if r.redis != nil {
		value := "0"
		if exists {
			value = "1"
		}
		_ = r.redis.Set(ctx, existsCacheKey(kind, slug), value, ExistsCacheTTL).Err()
	}
	return exists, nil
}

// CreateProduct inserts a new product.
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return mapDuplicate(err, fmt.Sprintf("create product %q", product.Slug))
	}
	r.invalidateExists(ctx, models.KindProduct, product.Slug)
	return nil
}

// UpdateProduct replaces all importable fields of the product with the given
// slug. Identity and creation timestamp are preserved.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, slug string, product *models.Product) error {
	updates := map[string]interface{}{
		"name":              product.Name,
		"short_description": product.ShortDescription,
		"description":       product.Description,
		"category_slug":     product.CategorySlug,
		"brand_slug":        product.BrandSlug,
		"featured":          product.Featured,
		"sort_order":        product.SortOrder,
		"main_image":        product.MainImage,
		"gallery_images":    product.GalleryImages,
		"specifications":    product.Specifications,
		"features":          product.Features,
		"updated_at":        time.Now(),
	}
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update product %q: %w", slug, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update product %q: not found", slug)
	}
	return nil
}

// UpdateProductImages replaces only the image fields of an existing product.
func (r *CatalogRepository) UpdateProductImages(ctx context.Context, slug string, mainImage string, gallery models.StringList) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Updates(map[string]interface{}{
		"main_image":     mainImage,
		"gallery_images": gallery,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("update product images %q: %w", slug, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update product images %q: not found", slug)
	}
	return nil
}

// CreateBrand inserts a new brand.
func (r *CatalogRepository) CreateBrand(ctx context.Context, brand *models.Brand) error {
	brand.CreatedAt = time.Now()
	brand.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(brand).Error; err != nil {
		return mapDuplicate(err, fmt.Sprintf("create brand %q", brand.Slug))
	}
	r.invalidateExists(ctx, models.KindBrand, brand.Slug)
	return nil
}

// CreateCategory inserts a new category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	category.CreatedAt = time.Now()
	category.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return mapDuplicate(err, fmt.Sprintf("create category %q", category.Slug))
	}
	r.invalidateExists(ctx, models.KindCategory, category.Slug)
	return nil
}

// BrandSlugs returns all brand slugs, for the validator's catalog snapshot.
func (r *CatalogRepository) BrandSlugs(ctx context.Context) ([]string, error) {
	return r.slugSnapshot(ctx, "catalog:brand-slugs", &models.Brand{})
}

// CategorySlugs returns all category slugs, for the validator's catalog snapshot.
func (r *CatalogRepository) CategorySlugs(ctx context.Context) ([]string, error) {
	return r.slugSnapshot(ctx, "catalog:category-slugs", &models.Category{})
}

func (r *CatalogRepository) slugSnapshot(ctx context.Context, cacheKey string, model interface{}) ([]string, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var slugs []string
			if err := json.Unmarshal([]byte(cached), &slugs); err == nil {
				return slugs, nil
			}
		}
	}

	var slugs []string
	if err := r.db.WithContext(ctx).Model(model).Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(slugs); err == nil {
			_ = r.redis.Set(ctx, cacheKey, data, SlugsCacheTTL).Err()
		}
	}
	return slugs, nil
}

// invalidateExists drops the cached existence flag for the slug plus the slug
// snapshot for its kind, so an auto-created record is visible to the next
// validation immediately.
func (r *CatalogRepository) invalidateExists(ctx context.Context, kind models.RecordKind, slug string) {
	if r.redis == nil {
		return
	}
	keys := []string{existsCacheKey(kind, slug)}
	switch kind {
	case models.KindBrand:
		keys = append(keys, "catalog:brand-slugs")
	case models.KindCategory:
		keys = append(keys, "catalog:category-slugs")
	}
	_ = r.redis.Del(ctx, keys...).Err()
}

// mapDuplicate wraps unique-constraint violations with importer.ErrDuplicateKey
// so callers can treat them as already-satisfied.
func mapDuplicate(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "SQLSTATE 23505") ||
		strings.Contains(err.Error(), "duplicate key") {
		return fmt.Errorf("%s: %w", op, importer.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
