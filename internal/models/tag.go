package models

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Slug string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
}
