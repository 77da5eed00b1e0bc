package schema

import (
	"time"

	"github.com/kizunalab/machiba/internal/domain"
)

// AdminUser represents the admin_users table - back-office accounts
type AdminUser struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID is a unique identifier for the user (UUID)
	UserID string `gorm:"column:user_id;not null;unique;type:varchar(36)"`
	// Username is the login name
	Username string `gorm:"column:username;not null;unique;type:varchar(64)"`
	// DisplayName is shown in the admin UI and activity log
	DisplayName string `gorm:"column:display_name;not null;type:text"`
	// PasswordHash is a bcrypt hash of the user's password
	PasswordHash string `gorm:"column:password_hash;not null;type:text"`
	// Role controls what the user may do in the back office
	Role      domain.UserRole `gorm:"column:role;not null;type:varchar(16);default:'editor'"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AdminUser model
func (AdminUser) TableName() string {
	return "admin_users"
}
