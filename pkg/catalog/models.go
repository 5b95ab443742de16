package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// Record is one catalog entry in the spirits collection. Identity fields are
// populated at ingestion; enrichment byproducts (descriptions, flavor tags,
// pairing guides) live in the open Metadata map.
type Record struct {
	ID          string  `json:"id" gorm:"primaryKey;column:id"`
	Name        string  `json:"name" gorm:"column:name"`
	NameEN      string  `json:"name_en,omitempty" gorm:"column:name_en"`
	Category    string  `json:"category" gorm:"column:category"`
	Subcategory string  `json:"subcategory,omitempty" gorm:"column:subcategory"`
	Distillery  string  `json:"distillery,omitempty" gorm:"column:distillery"`
	Bottler     string  `json:"bottler,omitempty" gorm:"column:bottler"`
	ABV         float64 `json:"abv,omitempty" gorm:"column:abv"`
	Volume      float64 `json:"volume,omitempty" gorm:"column:volume"`
	Country     string  `json:"country,omitempty" gorm:"column:country"`
	Region      string  `json:"region,omitempty" gorm:"column:region"`

	ImageURL     string `json:"imageUrl,omitempty" gorm:"column:image_url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" gorm:"column:thumbnail_url"`

	// Data source tracking
	Source     string `json:"source,omitempty" gorm:"column:source"`
	ExternalID string `json:"externalId,omitempty" gorm:"column:external_id"`

	// Workflow state. Status drives pipeline stage membership; IsPublished
	// is the visibility flag the consuming layer reads. The two are kept
	// consistent by the publish path and repaired by the sync audit.
	Status      Status `json:"status" gorm:"column:status"`
	IsPublished bool   `json:"isPublished" gorm:"column:is_published"`
	IsReviewed  bool   `json:"isReviewed" gorm:"column:is_reviewed"`

	ReviewedBy string     `json:"reviewedBy,omitempty" gorm:"column:reviewed_by"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty" gorm:"column:reviewed_at"`

	Metadata datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`

	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

func (Record) TableName() string {
	return "spirits"
}

// TagList reads a []string enrichment field out of the metadata map,
// tolerating the []interface{} shape JSON decoding produces.
func (r *Record) TagList(key string) []string {
	if r.Metadata == nil {
		return nil
	}
	switch v := r.Metadata[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
