package models

import "gorm.io/gorm"

// Vehicle status values.
const (
	VehicleAvailable   = "DISPONIVEL"
	VehicleOnTrip      = "EM_VIAGEM"
	VehicleMaintenance = "MANUTENCAO"
	VehicleInactive    = "INATIVO"
)

type Vehicle struct {
	gorm.Model
	TransportadoraID uint   `json:"transportadora_id" gorm:"index"`
	Placa            string `json:"placa" gorm:"unique" binding:"required"`
	Modelo           string `json:"modelo"`
	Marca            string `json:"marca"`
	Ano              int    `json:"ano"`
	Status           string `json:"status" gorm:"default:DISPONIVEL"`

	Device *Device `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"device,omitempty"`
}
