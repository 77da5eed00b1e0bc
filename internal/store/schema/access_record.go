package schema

import (
	"time"

	"github.com/kizunalab/machiba/internal/domain"
)

// AccessRecord represents the access_records table - one logged view event per row.
// Records are append-only: they are never updated or deleted in normal operation.
type AccessRecord struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// RecordID is a ULID assigned at record time (sortable, opaque to clients)
	RecordID string `gorm:"column:record_id;not null;unique;type:varchar(26)"`
	// RecordType is the kind of content viewed (event or report)
	RecordType domain.ContentType `gorm:"column:record_type;not null;type:varchar(16);index:idx_access_records_type_item"`
	// ItemID identifies the viewed content item; no foreign key is enforced
	ItemID string `gorm:"column:item_id;not null;type:varchar(64);index:idx_access_records_type_item"`
	// UserID is the viewer's identifier, when known
	UserID *string `gorm:"column:user_id;type:varchar(64)"`
	// UserAgent, Referrer and IP are free-form request metadata, stored verbatim
	UserAgent *string `gorm:"column:user_agent;type:text"`
	Referrer  *string `gorm:"column:referrer;type:text"`
	IP        *string `gorm:"column:ip;type:varchar(64)"`
	// RecordedAt is the server-side UTC timestamp set at insertion
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index;type:timestamptz"`
}

// TableName specifies the table name for the AccessRecord model
func (AccessRecord) TableName() string {
	return "access_records"
}
