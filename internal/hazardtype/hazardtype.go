package hazardtype

import (
	"time"

	hazardTypeDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/hazardtype"
)

// General is the fallback type for hazards that fit no other category.
const General = "General"

// DefaultTypes is the catalogue a fresh database is seeded with.
var DefaultTypes = []HazardType{
	{Name: "Fire", Description: "Fire, smoke and ignition sources"},
	{Name: "Electrical", Description: "Exposed wiring, shorts and electrical equipment"},
	{Name: "Chemical", Description: "Spills, gas leaks, fumes and corrosive substances"},
	{Name: "Equipment", Description: "Machinery, forklifts and tooling"},
	{Name: "Physical", Description: "Slips, trips, falls and obstructions"},
	{Name: General, Description: "Anything else"},
}

type HazardType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *HazardType) ToResponse() HazardTypeResponse {
	return HazardTypeResponse{
		Name:        t.Name,
		Description: t.Description,
	}
}

func ToDataModel(t *HazardType) *hazardTypeDatamodel.HazardType {
	return &hazardTypeDatamodel.HazardType{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModel(t *hazardTypeDatamodel.HazardType) *HazardType {
	return &HazardType{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
