package model

import (
	"time"

	"github.com/google/uuid"
)

type UserPreference struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Language    string    `gorm:"type:varchar(5)"`
	AnswerStyle string    `gorm:"type:varchar(20)"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
