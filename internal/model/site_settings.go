package model

import (
	"time"

	"gorm.io/datatypes"
)

// SiteSettingsID 站点配置是单例，固定主键
const SiteSettingsID = 1

// SiteSettings 站点配置，只有管理员可修改，提现校验依赖其中的开关和最低金额
type SiteSettings struct {
	ID                  int                          `gorm:"primaryKey" json:"-"`
	Notice              string                       `gorm:"type:varchar(512)" json:"notice"`
	PopupNotice         string                       `gorm:"type:varchar(512)" json:"popup_notice"`
	IsPopupActive       bool                         `json:"is_popup_active"`
	BKashNumber         string                       `gorm:"column:bkash_number;type:varchar(32)" json:"bkash_number"`
	NagadNumber         string                       `gorm:"type:varchar(32)" json:"nagad_number"`
	RocketNumber        string                       `gorm:"type:varchar(32)" json:"rocket_number"`
	PaymentInstructions string                       `gorm:"type:varchar(512)" json:"payment_instructions"`
	IsMaintenance       bool                         `json:"is_maintenance"`
	GlobalRules         datatypes.JSONType[[]string] `json:"global_rules"`
	MinWithdrawAmount   int64                        `gorm:"not null" json:"min_withdraw_amount"`
	IsWithdrawEnabled   bool                         `json:"is_withdraw_enabled"`
	LeaderboardTitle    string                       `gorm:"type:varchar(128)" json:"leaderboard_title"`
	LeaderboardSubtitle string                       `gorm:"type:varchar(256)" json:"leaderboard_subtitle"`
	UpdatedAt           time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SiteSettings) TableName() string {
	return "site_settings"
}

// PaymentNumber 返回收款渠道对应的平台收款号
func (s *SiteSettings) PaymentNumber(method string) string {
	switch method {
	case MethodBKash:
		return s.BKashNumber
	case MethodNagad:
		return s.NagadNumber
	case MethodRocket:
		return s.RocketNumber
	}
	return ""
}

func DefaultSiteSettings() *SiteSettings {
	return &SiteSettings{
		ID:                  SiteSettingsID,
		Notice:              "Welcome to STB FF TOURNAMENT! Best of luck to all fighters.",
		PopupNotice:         "Register for the upcoming Elite Battle and win ৳2000! Join now.",
		IsPopupActive:       true,
		BKashNumber:         "017XXXXXXXX",
		NagadNumber:         "018XXXXXXXX",
		RocketNumber:        "019XXXXXXXX",
		PaymentInstructions: "Please send money as PERSONAL only. Use your numeric ID as reference.",
		GlobalRules: datatypes.NewJSONType([]string{
			"Room ID & Pass will be given 15 mins before match.",
			"Emulator not allowed unless specified.",
			"Hacking or teaming results in instant ban without refund.",
		}),
		MinWithdrawAmount:   100,
		IsWithdrawEnabled:   true,
		LeaderboardTitle:    "HALL OF FAME",
		LeaderboardSubtitle: "The elite legends of STB battlefield.",
	}
}
