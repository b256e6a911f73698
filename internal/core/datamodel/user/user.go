package user

import "time"

type User struct {
	ID                 int64     `gorm:"primaryKey"`
	Username           string    `gorm:"column:username;uniqueIndex;not null"`
	FullName           string    `gorm:"column:full_name;not null"`
	Role               string    `gorm:"column:role;not null;index"`
	IsActive           bool      `gorm:"column:is_active;default:true"`
	PasswordHash       []byte    `gorm:"column:password_hash"`
	PasswordSalt       []byte    `gorm:"column:password_salt"`
	PasswordIterations int       `gorm:"column:password_iterations"`
	PasswordAlgorithm  string    `gorm:"column:password_algorithm"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
