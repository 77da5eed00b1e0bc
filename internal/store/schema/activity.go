package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/kizunalab/machiba/internal/domain"
)

// Activity represents the activities table - an audit entry for an admin action
type Activity struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Actor is the username of the admin who performed the action
	Actor string `gorm:"column:actor;not null;type:varchar(64)"`
	// Action is what was done (create, update, delete, login, send, upload)
	Action domain.ActivityAction `gorm:"column:action;not null;type:varchar(16)"`
	// EntityType names the kind of entity acted on (event, report, template, user, message)
	EntityType string `gorm:"column:entity_type;not null;type:varchar(32)"`
	// EntityID identifies the entity acted on, when applicable
	EntityID *string `gorm:"column:entity_id;type:varchar(64)"`
	// Detail carries free-form structured context about the action
	Detail    datatypes.JSON `gorm:"column:detail;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();index;type:timestamptz"`
}

// TableName specifies the table name for the Activity model
func (Activity) TableName() string {
	return "activities"
}
