package domain

import "fmt"

// ContentType identifies the kind of content an access record refers to.
type ContentType string

const (
	ContentTypeEvent  ContentType = "event"
	ContentTypeReport ContentType = "report"
)

// Valid reports whether the content type is one of the supported kinds.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeEvent, ContentTypeReport:
		return true
	}
	return false
}

func (t ContentType) String() string {
	return string(t)
}

// PlaceholderTitle returns the synthesized display title used when no title
// was ever recorded for an item.
func (t ContentType) PlaceholderTitle(itemID string) string {
	return fmt.Sprintf("%s %s", t, itemID)
}

// UserRole identifies the privilege level of an admin user.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleEditor UserRole = "editor"
)

// Valid reports whether the role is a known one.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleEditor
}

// ActivityAction describes what an admin did to an entity.
type ActivityAction string

const (
	ActivityCreate ActivityAction = "create"
	ActivityUpdate ActivityAction = "update"
	ActivityDelete ActivityAction = "delete"
	ActivityLogin  ActivityAction = "login"
	ActivitySend   ActivityAction = "send"
	ActivityUpload ActivityAction = "upload"
)

// AccessEvent is the message published to the firehose when a view is recorded.
type AccessEvent struct {
	RecordID   string      `json:"record_id"`
	Type       ContentType `json:"type"`
	ItemID     string      `json:"item_id"`
	RecordedAt string      `json:"recorded_at"`
}
