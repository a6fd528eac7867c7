package models

import (
	"time"
)

// Hospital owns its patients. The core never deletes hospitals.
type Hospital struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Address   string    `gorm:"column:address" json:"address"`
	Email     string    `gorm:"size:255;column:email;not null;uniqueIndex" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Password  string    `gorm:"size:255;column:password;not null" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Patients  []Patient `gorm:"foreignKey:HospitalID;references:ID" json:"-"`
}

func (Hospital) TableName() string {
	return "hospitals"
}
