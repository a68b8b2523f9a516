package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type ParticipantStatus string

const (
	ParticipantStatusActive    ParticipantStatus = "ACTIVE"
	ParticipantStatusInactive  ParticipantStatus = "INACTIVE"
	ParticipantStatusSuspended ParticipantStatus = "SUSPENDED"
)

// Participant is a member of the team tree.
//
// ParentID is the team upline used for purchase relationships; ReferrerID is the
// commission upline and may point elsewhere. TeamPath, when present, lists the
// ancestor ids from the most distant down to the direct parent.
type Participant struct {
	ID         string            `gorm:"primaryKey;size:64" json:"id"`
	Name       string            `gorm:"size:120" json:"name"`
	Rank       Rank              `gorm:"size:16;not null;index" json:"rank"`
	Status     ParticipantStatus `gorm:"size:16;not null;index" json:"status"`
	ParentID   *string           `gorm:"column:parent_id;size:64;index" json:"parentId,omitempty"`
	ReferrerID *string           `gorm:"column:referrer_id;size:64;index" json:"referrerId,omitempty"`
	TeamPath   IDPath            `gorm:"column:team_path;type:text" json:"teamPath,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Participant) TableName() string {
	return "participants"
}

func (p *Participant) IsActive() bool {
	return p != nil && p.Status == ParticipantStatusActive
}

// CommissionUplineID returns the referrer, falling back to the team parent.
func (p *Participant) CommissionUplineID() string {
	if p.ReferrerID != nil && *p.ReferrerID != "" {
		return *p.ReferrerID
	}
	if p.ParentID != nil {
		return *p.ParentID
	}
	return ""
}

func (p *Participant) ParentIDValue() string {
	if p.ParentID == nil {
		return ""
	}
	return *p.ParentID
}

// IDPath is an ordered list of participant ids persisted as a slash separated string.
type IDPath []string

const idPathSep = "/"

func (p IDPath) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "", nil
	}
	return strings.Join(p, idPathSep), nil
}

func (p *IDPath) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("IDPath: unsupported scan type %T", src)
	}
	s = strings.Trim(s, idPathSep)
	if s == "" {
		*p = nil
		return nil
	}
	*p = strings.Split(s, idPathSep)
	return nil
}

// Last returns at most n trailing entries, i.e. the n nearest ancestors.
func (p IDPath) Last(n int) IDPath {
	if n <= 0 || len(p) == 0 {
		return nil
	}
	if n >= len(p) {
		return p
	}
	return p[len(p)-n:]
}
