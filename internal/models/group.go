package models

// Group is a community posts can optionally be filed under.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;uniqueIndex;not null" json:"title"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Posts       []Post `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"-"`
}

func (g Group) String() string {
	return g.Title
}
