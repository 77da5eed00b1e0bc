package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MessageTemplate represents the message_templates table - a reusable LINE
// message body with {placeholder} variables
type MessageTemplate struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TemplateID is a unique identifier for the template (UUID)
	TemplateID string `gorm:"column:template_id;not null;unique;type:varchar(36)"`
	Name       string `gorm:"column:name;not null;type:text"`
	Body       string `gorm:"column:body;not null;type:text"`
	// Variables is a JSON array of placeholder names referenced by the body
	Variables datatypes.JSON `gorm:"column:variables;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the MessageTemplate model
func (MessageTemplate) TableName() string {
	return "message_templates"
}
