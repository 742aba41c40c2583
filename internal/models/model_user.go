package models

import "time"

// User is the minimal registry row the bot creates when a chat starts.
// The complete callback refuses payments for users it cannot resolve here.
type User struct {
	// ID is the Telegram chat id.
	ID        int64     `gorm:"column:id;primary_key" json:"id"`
	Phone     string    `gorm:"column:phone;type:varchar(32)" json:"phone"`
	CardToken string    `gorm:"column:card_token;type:varchar(128)" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
