package models

import (
	"time"
)

type Group struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:10;not null;uniqueIndex" json:"name"`
}

// User is the identity record. Credentials and profile attributes live in their own
// tables keyed by the user id.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Slug      string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Rating    float64   `gorm:"not null;default:0" json:"rating"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	Group     Group     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"group"`
	IsBlocked bool      `gorm:"not null;default:false" json:"is_blocked"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	Profile   *Profile  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Credential struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Profile struct {
	UserID      uint       `gorm:"primaryKey" json:"user_id"`
	FullName    string     `gorm:"size:50;not null;uniqueIndex" json:"full_name"`
	Birthdate   *time.Time `json:"birthdate,omitempty"`
	Telegram    string     `gorm:"size:50" json:"telegram,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
