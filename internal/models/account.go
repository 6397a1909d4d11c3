package models

import "time"

// Account is a pre-provisioned identity. Email is the provisioning handle, GoogleSub the
// authentication handle once bound on first login.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Email     string    `gorm:"size:256;uniqueIndex;not null" json:"email"`
	GoogleSub *string   `gorm:"size:128;uniqueIndex" json:"google_sub"`
	Role      Role      `gorm:"size:16;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the historical table name.
func (Account) TableName() string {
	return "users"
}

// IsBound reports whether an external identity has been attached.
func (a Account) IsBound() bool {
	return a.GoogleSub != nil && *a.GoogleSub != ""
}

// HasRole reports whether the account holds exactly the given role.
func (a Account) HasRole(role Role) bool {
	return a.Role == role
}
