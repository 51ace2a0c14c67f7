package model

import (
	"time"

	"gorm.io/gorm"
)

// 处罚原因
const SanctionReasonMissing = "missing"

// 封禁原因
const BlockReasonCitationAbsences = "citation_absences"

// SanctionRecord 司机处罚汇总 对应 sanction_records，每个司机一条
//   - TotalSanctions 只增不减
//   - HasCitation 在累计达到 3 次时置位，约谈结案后清除
//   - MissedCitations 累计缺席约谈次数，解封不清零
type SanctionRecord struct {
	UserID           string     `gorm:"size:64;primaryKey"     json:"user_id"`
	UserName         string     `gorm:"size:150;not null"      json:"user_name"`
	TotalSanctions   int        `gorm:"not null;default:0"     json:"total_sanctions"`
	LastSanctionDate *time.Time `json:"last_sanction_date,omitempty"`
	HasCitation      bool       `gorm:"not null;default:false" json:"has_citation"`
	CitationDate     *time.Time `json:"citation_date,omitempty"`
	IsBlocked        bool       `gorm:"not null;default:false" json:"is_blocked"`
	BlockReason      *string    `gorm:"size:40"                json:"block_reason,omitempty"`
	BlockedAt        *time.Time `json:"blocked_at,omitempty"`
	BlockedBy        *string    `gorm:"size:128"               json:"blocked_by,omitempty"`
	MissedCitations  int        `gorm:"column:missed_citations_count;not null;default:0" json:"missed_citations_count"`
	VersionedModel

	// 关联
	History               []SanctionEntry       `gorm:"foreignKey:UserID;references:UserID" json:"sanction_history,omitempty"`
	MissedCitationHistory []MissedCitationEntry `gorm:"foreignKey:UserID;references:UserID" json:"missed_citation_history,omitempty"`
	UnblockHistory        []UnblockEntry        `gorm:"foreignKey:UserID;references:UserID" json:"unblock_history,omitempty"`
}

// TableName 指定表名
func (SanctionRecord) TableName() string { return "sanction_records" }

// SanctionEntry 单次处罚 对应 sanction_entries
// (user_id, date) 唯一保证同一天只处罚一次；(user_id, sanction_number) 唯一保证序号连续不重复
type SanctionEntry struct {
	EntryID        string    `gorm:"size:36;primaryKey"                                                     json:"id"`
	UserID         string    `gorm:"size:64;not null;uniqueIndex:uk_sanction_user_date;uniqueIndex:uk_sanction_user_number" json:"user_id"`
	Date           string    `gorm:"size:10;not null;uniqueIndex:uk_sanction_user_date"                     json:"date"`
	Reason         string    `gorm:"size:20;not null"                                                       json:"reason"`
	SanctionNumber int       `gorm:"not null;uniqueIndex:uk_sanction_user_number"                           json:"sanction_number"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                                     json:"created_at"`
}

// TableName 指定表名
func (SanctionEntry) TableName() string { return "sanction_entries" }

func (e *SanctionEntry) BeforeCreate(_ *gorm.DB) error {
	newID(&e.EntryID)
	return nil
}

// MissedCitationEntry 缺席约谈记录 对应 missed_citation_entries
type MissedCitationEntry struct {
	EntryID      string    `gorm:"size:36;primaryKey"                 json:"id"`
	UserID       string    `gorm:"size:64;not null;index"             json:"user_id"`
	CitationID   string    `gorm:"size:36;not null"                   json:"citation_id"`
	CitationDate time.Time `gorm:"not null"                           json:"citation_date"`
	MarkedBy     string    `gorm:"size:128;not null"                  json:"marked_by"`
	Notes        string    `gorm:"type:text"                          json:"notes,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (MissedCitationEntry) TableName() string { return "missed_citation_entries" }

func (e *MissedCitationEntry) BeforeCreate(_ *gorm.DB) error {
	newID(&e.EntryID)
	return nil
}

// UnblockEntry 解封记录 对应 unblock_entries
type UnblockEntry struct {
	EntryID         string    `gorm:"size:36;primaryKey"                 json:"id"`
	UserID          string    `gorm:"size:64;not null;index"             json:"user_id"`
	UnblockedBy     string    `gorm:"size:128;not null"                  json:"unblocked_by"`
	Reason          string    `gorm:"type:text"                          json:"reason,omitempty"`
	Note            string    `gorm:"type:text"                          json:"note"`
	MissedCitations int       `gorm:"not null"                           json:"missed_citations_count"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (UnblockEntry) TableName() string { return "unblock_entries" }

func (e *UnblockEntry) BeforeCreate(_ *gorm.DB) error {
	newID(&e.EntryID)
	return nil
}
