package models

import (
	"time"
)

// Post represents a text entry, optionally filed under a group and carrying an image.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Image     string    `json:"image,omitempty"`
	ImageWebP string    `gorm:"column:image_webp" json:"image_webp,omitempty"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	Comments      []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// Excerpt returns the first 15 characters of the text, the form used for admin listings.
func (p *Post) Excerpt() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}

// PostPage is one page of a feed.
type PostPage struct {
	Posts       []Post `json:"posts"`
	Number      int    `json:"number"`
	NumPages    int    `json:"num_pages"`
	Count       int64  `json:"count"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
}
