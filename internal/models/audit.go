package models

import "time"

// AuditAction names a recorded user-visible mutation.
type AuditAction string

const (
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionSelectDegree AuditAction = "DEGREE_SELECT"
	AuditActionAddCourse    AuditAction = "DEGREE_COURSE_ADD"
	AuditActionRemoveCourse AuditAction = "DEGREE_COURSE_REMOVE"
	AuditActionForceToggle  AuditAction = "DEGREE_FORCE_TOGGLE"
)

// AuditLog records who changed what.
type AuditLog struct {
	ID         int64       `db:"id" json:"id"`
	UserID     *int64      `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"-"`
	UserAgent  string      `db:"user_agent" json:"-"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
