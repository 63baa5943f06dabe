package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordKind identifies a catalog record type
type RecordKind string

const (
	KindProduct  RecordKind = "product"
	KindBrand    RecordKind = "brand"
	KindCategory RecordKind = "category"
)

// LocalizedText holds a Thai/English text pair, stored as JSONB
type LocalizedText struct {
	Th string `json:"th"`
	En string `json:"en"`
}

func (l LocalizedText) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LocalizedText) Scan(value interface{}) error {
	if value == nil {
		*l = LocalizedText{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// SpecEntry is one label/value specification line on a product
type SpecEntry struct {
	Label LocalizedText `json:"label"`
	Value LocalizedText `json:"value"`
}

// SpecList is the ordered specification table, stored as JSONB
type SpecList []SpecEntry

func (s SpecList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SpecList) Scan(value interface{}) error {
	if value == nil {
		*s = make(SpecList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// FeatureList is the ordered list of localized feature lines, stored as JSONB
type FeatureList []LocalizedText

func (f FeatureList) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *FeatureList) Scan(value interface{}) error {
	if value == nil {
		*f = make(FeatureList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, f)
}

// StringList is a JSONB string array (gallery image URLs)
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = make(StringList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Product is a catalog product
type Product struct {
	ID               uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	Slug             string        `json:"slug" gorm:"uniqueIndex;not null"`
	Name             LocalizedText `json:"name" gorm:"type:jsonb"`
	ShortDescription LocalizedText `json:"shortDescription" gorm:"type:jsonb"`
	Description      LocalizedText `json:"description" gorm:"type:jsonb"`
	CategorySlug     string        `json:"categorySlug" gorm:"index"`
	BrandSlug        string        `json:"brandSlug" gorm:"index"`
	Featured         bool          `json:"featured" gorm:"default:false"`
	SortOrder        int           `json:"sortOrder" gorm:"default:0"`
	MainImage        string        `json:"mainImage"`
	GalleryImages    StringList    `json:"galleryImages" gorm:"type:jsonb"`
	Specifications   SpecList      `json:"specifications" gorm:"type:jsonb"`
	Features         FeatureList   `json:"features" gorm:"type:jsonb"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Brand is a product brand
type Brand struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	Slug        string        `json:"slug" gorm:"uniqueIndex;not null"`
	Name        LocalizedText `json:"name" gorm:"type:jsonb"`
	Description LocalizedText `json:"description" gorm:"type:jsonb"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Category is a product category
type Category struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	Slug        string        `json:"slug" gorm:"uniqueIndex;not null"`
	Name        LocalizedText `json:"name" gorm:"type:jsonb"`
	Description LocalizedText `json:"description" gorm:"type:jsonb"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

// Error contains error details
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
