package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Report represents the reports table - a post-event write-up with photos
type Report struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID references the event this report covers (not enforced as a FK
	// so reports can outlive deleted events)
	EventID *uint64 `gorm:"column:event_id;index"`
	Title   string  `gorm:"column:title;not null;type:text"`
	Body    string  `gorm:"column:body;type:text"`
	// PhotoURLs is a JSON array of image delivery URLs
	PhotoURLs datatypes.JSON `gorm:"column:photo_urls;type:jsonb"`
	Published bool           `gorm:"column:published;not null;default:false;index"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "reports"
}
