package models

import (
	"fmt"
	"time"
)

const MaxAvatarBytes = 2 * 1024 * 1024

type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvatarPath caminho relativo ao MEDIA_PATH: avatars/user_{id}_avatar.{ext}
func AvatarPath(userID uint, ext string) string {
	return fmt.Sprintf("avatars/user_%d_avatar.%s", userID, ext)
}

// AvatarURL nil quando o usuário não enviou foto.
func (p *UserProfile) AvatarURL() *string {
	if p == nil || p.Avatar == "" {
		return nil
	}
	url := "/media/" + p.Avatar
	return &url
}
