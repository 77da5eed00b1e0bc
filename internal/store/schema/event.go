package schema

import (
	"time"
)

// Event represents the events table - a community event shown on the public site
type Event struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Title is the event's display title
	Title string `gorm:"column:title;not null;type:text"`
	// Description is the long-form event description
	Description string `gorm:"column:description;type:text"`
	// Venue is the human-readable location of the event
	Venue string `gorm:"column:venue;type:text"`
	// StartsAt and EndsAt bound the event in time
	StartsAt time.Time  `gorm:"column:starts_at;not null;index;type:timestamptz"`
	EndsAt   *time.Time `gorm:"column:ends_at;type:timestamptz"`
	// Capacity is the maximum number of participants (0 = unlimited)
	Capacity int `gorm:"column:capacity;not null;default:0"`
	// FeeYen is the participation fee in yen (0 = free)
	FeeYen int `gorm:"column:fee_yen;not null;default:0"`
	// ImageURL points at the uploaded cover image, when one exists
	ImageURL *string `gorm:"column:image_url;type:text"`
	// Published controls visibility on the public site
	Published bool      `gorm:"column:published;not null;default:false;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}
