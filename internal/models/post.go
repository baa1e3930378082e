package models

import (
	"time"
)

type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Slug       string    `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Tags       []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Body       string    `gorm:"type:text;not null" json:"body"` // Markdown
	ImageURL   string    `json:"image_url,omitempty"`
	Score      int       `gorm:"not null;default:0;index" json:"score"`
	Views      int       `gorm:"not null;default:1;index" json:"views"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// filled by queries, not stored
	CommentCount int `gorm:"-" json:"comment_count"`
}

// TagSlugs returns the slugs of the tags loaded on p.
func (p *Post) TagSlugs() []string {
	slugs := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		slugs[i] = t.Slug
	}
	return slugs
}
