package hazardtype

type HazardTypeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HazardTypesResponse struct {
	HazardTypes []HazardTypeResponse `json:"hazard_types"`
}
