package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// NewAuditFields stamps a freshly created entity.
func NewAuditFields(userID string, now time.Time) AuditFields {
	now = NormalizeTime(now)
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

// Touch records a modification by userID.
func (a *AuditFields) Touch(userID string, now time.Time) {
	a.LastUpdatedAt = NormalizeTime(now)
	a.LastUpdatedBy = userID
}

// NormalizeTime converts t to UTC at microsecond precision so that every
// store round-trips the same instant and keyset ordering is stable.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
