package models

// Badge is a distinguishing mark attached to scenes by moderators.
// Badge count is the primary key when ranking a scene's children.
type Badge struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name        string `gorm:"type:varchar(32);not null;column:name"`
	BgColor     string `gorm:"type:varchar(16);not null;column:bg_color"`
	Description string `gorm:"type:varchar(255);not null;column:description"`
	DataURI     string `gorm:"type:text;column:data_uri"`

	// Relationships
	Scenes []Scene `gorm:"many2many:scene_badges"`
}

// TableName specifies the table name for Badge
func (Badge) TableName() string {
	return "badges"
}
