package models

// Tag represents a label that can be applied to any number of links.
// Tags are global; names are stored normalized (see store.NormalizeTagName).
type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// LinkTag is the association row between a link and a tag
type LinkTag struct {
	LinkID uint `gorm:"primaryKey;autoIncrement:false" json:"link_id"`
	TagID  uint `gorm:"primaryKey;autoIncrement:false;index" json:"tag_id"`

	Link *Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
	Tag  *Tag  `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the association table name stable
func (LinkTag) TableName() string {
	return "link_tags"
}
