package model

import "time"

// Client is a taxpayer served by the practice.
type Client struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	TaxID     string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"tax_id"`
	Email     string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
