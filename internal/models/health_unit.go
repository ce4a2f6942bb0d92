package models

import "time"

type UnitType string

const (
	UnitExecutante            UnitType = "UNIDADE_EXECUTANTE"
	UnitSolicitante           UnitType = "UNIDADE_SOLICITANTE"
	UnitExecutanteSolicitante UnitType = "EXECUTANTE_SOLICITANTE"
)

const DefaultMunicipality = "Não informado"

// UnitTypes mantém a ordem de exibição dos tipos.
var UnitTypes = []Choice{
	{Code: string(UnitExecutante), Label: "Unidade Executante"},
	{Code: string(UnitSolicitante), Label: "Unidade Solicitante"},
	{Code: string(UnitExecutanteSolicitante), Label: "Executante/Solicitante"},
}

func (t UnitType) Label() string {
	return labelOf(UnitTypes, string(t))
}

func (t UnitType) Valid() bool {
	return validChoice(UnitTypes, string(t))
}

type HealthUnit struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"size:200;not null;index"`
	Municipality      string    `gorm:"size:100;not null"`
	CNES              *string   `gorm:"size:7;uniqueIndex"`
	Type              UnitType  `gorm:"size:30;not null"`
	PhoneContact      string    `gorm:"size:20"`
	Address           string    `gorm:"type:text"`
	Phone             string    `gorm:"size:20"`
	Manager           string    `gorm:"size:100"`
	Email             string    `gorm:"size:254"`
	OpeningHours      string    `gorm:"size:100"`
	EmergencyServices bool      `gorm:"not null"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time

	CreatedByID *uint
	CreatedBy   *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
}

// CNESValue devolve "" quando não há CNES.
func (u *HealthUnit) CNESValue() string {
	if u.CNES == nil {
		return ""
	}
	return *u.CNES
}

// CreatorName "Sistema" quando a unidade não tem cadastrante.
func (u *HealthUnit) CreatorName() string {
	if u.CreatedBy == nil {
		return "Sistema"
	}
	return u.CreatedBy.Username
}
