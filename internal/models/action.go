package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Tool names the analysis gateway may suggest for an action item. Anything
// outside this set is treated as "no action determined".
const (
	ToolCalendarEvent = "create_calendar_event"
	ToolDraftEmail    = "draft_email"
	ToolInvoiceEmail  = "draft_invoice_email"
	ToolPhoneCall     = "initiate_phone_call"
	ToolDocument      = "create_document"
)

// ActionInvocation records every one-click action suggestion, including the
// ones where the gateway determined nothing usable.
type ActionInvocation struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	SessionID  string         `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	ActionItem string         `gorm:"column:action_item;type:text" json:"action_item"`
	ToolName   string         `gorm:"column:tool_name;type:text" json:"tool_name"` // empty when no action determined
	Arguments  datatypes.JSON `gorm:"column:arguments;type:jsonb" json:"arguments"`
	Timestamp  time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
}

func (ActionInvocation) TableName() string { return "action_invocations" }

// MeetingDigest is a Postgres read model written when analysis completes,
// used for cross-meeting listing without touching Mongo.
type MeetingDigest struct {
	SessionID   string         `gorm:"column:session_id;type:uuid;primaryKey" json:"session_id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Title       string         `gorm:"column:title;type:text" json:"title"`
	Summary     string         `gorm:"column:summary;type:text" json:"summary"`
	ActionItems pq.StringArray `gorm:"column:action_items;type:text[]" json:"action_items"`
	Speakers    datatypes.JSON `gorm:"column:speakers;type:jsonb" json:"speakers"`
	CompletedAt time.Time      `gorm:"column:completed_at;type:timestamptz;index" json:"completed_at"`
}

func (MeetingDigest) TableName() string { return "meeting_digests" }
