package models

import (
	"time"

	"gorm.io/gorm"
)

type Driver struct {
	gorm.Model
	TransportadoraID uint   `json:"transportadora_id" gorm:"index"`
	Nome             string `json:"nome" binding:"required"`
	CPF              string `json:"cpf" gorm:"unique"`
	Phone            string `json:"phone"`

	// CNH (driver's license)
	CNH         string     `json:"cnh"`
	CNHCategory string     `json:"cnh_category"` // "A".."E"
	CNHExpiry   *time.Time `json:"cnh_expiry"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// CNHIsValid reports whether the license is non-expired at the given instant.
func (d *Driver) CNHIsValid(now time.Time) bool {
	if d.CNHExpiry == nil {
		return false
	}
	return d.CNHExpiry.After(now)
}
