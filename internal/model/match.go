package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MatchTypeSolo  = "Solo"
	MatchTypeDuo   = "Duo"
	MatchTypeSquad = "Squad"
)

const (
	MatchMapBermuda   = "Bermuda"
	MatchMapPurgatory = "Purgatory"
	MatchMapKalahari  = "Kalahari"
	MatchMapAlpine    = "Alpine"
)

const (
	MatchVersionMobile = "Mobile"
	MatchVersionPC     = "PC/Emulator"
)

// DefaultMatchRules 管理员未填写规则时使用
var DefaultMatchRules = []string{"No Emulators", "No Teaming"}

// DefaultPositionPoints 积分赛默认名次积分表
func DefaultPositionPoints() map[int]int64 {
	return map[int]int64{1: 12, 2: 9, 3: 8, 4: 7, 5: 6, 6: 5, 7: 4, 8: 3, 9: 2, 10: 1}
}

// Match 比赛
type Match struct {
	ID                string                            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title             string                            `gorm:"type:varchar(128);not null" json:"title"`
	StartTime         time.Time                         `gorm:"index" json:"start_time"`
	Type              string                            `gorm:"type:varchar(16);not null" json:"type"`
	Map               string                            `gorm:"type:varchar(16);not null" json:"map"`
	Version           string                            `gorm:"type:varchar(16);not null" json:"version"`
	EntryFee          int64                             `gorm:"not null;default:0" json:"entry_fee"`
	PrizePool         int64                             `gorm:"not null;default:0" json:"prize_pool"`
	PrizePerKill      int64                             `gorm:"not null;default:0" json:"prize_per_kill"`
	TotalSlots        int                               `gorm:"not null" json:"total_slots"`
	Rules             datatypes.JSONType[[]string]      `json:"rules"`
	RoomID            string                            `gorm:"type:varchar(64)" json:"room_id,omitempty"`
	RoomPass          string                            `gorm:"type:varchar(64)" json:"room_pass,omitempty"`
	IsCompleted       bool                              `gorm:"not null;default:false;index" json:"is_completed"`
	ImageURL          string                            `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	IsPointSystem     bool                              `gorm:"not null;default:false" json:"is_point_system"`
	PointsPerKill     int64                             `gorm:"not null;default:0" json:"points_per_kill"`
	TotalMatchesCount int                               `gorm:"not null;default:1" json:"total_matches_count"`
	PositionPoints    datatypes.JSONType[map[int]int64] `json:"position_points"`
	CreatedAt         time.Time                         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                         `gorm:"autoUpdateTime" json:"updated_at"`

	// JoinedSlots 按报名顺序排列的账户ID，来自 match_slot 表
	JoinedSlots []string `gorm:"-" json:"joined_slots"`
}

func (Match) TableName() string {
	return "game_match"
}

// HasRoomCredentials 房间号和密码都已发布，已报名用户会据此收到通知
func (m *Match) HasRoomCredentials() bool {
	return m.RoomID != "" && m.RoomPass != ""
}

func (m *Match) HasJoined(accountID string) bool {
	for _, id := range m.JoinedSlots {
		if id == accountID {
			return true
		}
	}
	return false
}

func (m *Match) IsFull() bool {
	return m.TotalSlots > 0 && len(m.JoinedSlots) >= m.TotalSlots
}

// KillPayout 击杀奖金
func (m *Match) KillPayout(kills int64) int64 {
	return kills * m.PrizePerKill
}

// PointTotal 积分赛得分 = 击杀积分 + 名次积分，名次不在积分表中按 0 计
func (m *Match) PointTotal(kills int64, rank int) int64 {
	if !m.IsPointSystem {
		return 0
	}
	return kills*m.PointsPerKill + m.PositionPoints.Data()[rank]
}

// MatchSlot 比赛报名席位，(match_id, user_id) 唯一，seq 记录报名顺序
type MatchSlot struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID   string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_match_user;index:idx_match_seq,priority:1" json:"match_id"`
	UserID    string    `gorm:"type:varchar(128);not null;uniqueIndex:uk_match_user;index" json:"user_id"`
	Seq       int       `gorm:"not null;index:idx_match_seq,priority:2" json:"seq"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MatchSlot) TableName() string {
	return "match_slot"
}
