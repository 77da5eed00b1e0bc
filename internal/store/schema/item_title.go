package schema

import (
	"time"

	"github.com/kizunalab/machiba/internal/domain"
)

// ItemTitle represents the item_titles table - a best-effort, last-write-wins
// mapping from (type, item) to a display title, populated opportunistically
// when an access is recorded together with a title.
type ItemTitle struct {
	ID         uint64             `gorm:"column:id;primaryKey;autoIncrement"`
	RecordType domain.ContentType `gorm:"column:record_type;not null;type:varchar(16);uniqueIndex:idx_item_titles_type_item"`
	ItemID     string             `gorm:"column:item_id;not null;type:varchar(64);uniqueIndex:idx_item_titles_type_item"`
	Title      string             `gorm:"column:title;not null;type:text"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ItemTitle model
func (ItemTitle) TableName() string {
	return "item_titles"
}
