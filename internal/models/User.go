package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // "transportadora", "admin"

	// Transportadora profile fields (empty for admins)
	CompanyName string `json:"company_name"`
	CNPJ        string `json:"cnpj"`

	Drivers  []Driver  `gorm:"foreignKey:TransportadoraID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"drivers,omitempty"`
	Vehicles []Vehicle `gorm:"foreignKey:TransportadoraID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"vehicles,omitempty"`
	Routes   []Route   `gorm:"foreignKey:TransportadoraID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"routes,omitempty"`
}
