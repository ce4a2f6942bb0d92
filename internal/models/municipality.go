package models

import "time"

type Municipality struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"nome"`
	State     string    `gorm:"size:2;not null" json:"estado"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const DefaultState = "MS"

func (m *Municipality) FullText() string {
	return m.Name + " - " + m.State
}
