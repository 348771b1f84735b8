package models

import "time"

// Session is the persisted signed-in principal of a device (PostgreSQL)
type Session struct {
	Device      string    `json:"device" gorm:"primaryKey;size:64"`
	UID         string    `json:"uid" gorm:"size:128;index"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	Token       string    `json:"-" gorm:"type:text"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}
