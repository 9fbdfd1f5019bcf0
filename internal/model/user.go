package model

import "time"

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(150);not null;uniqueIndex:idx_user_username"`
	Email     string `gorm:"type:varchar(254);not null;uniqueIndex:idx_user_email"`
	FirstName string `gorm:"type:varchar(150)"`
	LastName  string `gorm:"type:varchar(150)"`
	Password  string `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName falls back to the username when no name was given at signup.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}
