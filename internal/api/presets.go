package api

import "github.com/Logic06183/Climate-API/internal/models"

// presetLocations is the fixed set of study locations offered by the API:
// the South African case-study sites plus major African cities for regional
// comparison work.
var presetLocations = []models.PresetLocation{
	{Name: "Soweto, Johannesburg", Latitude: -26.2678, Longitude: 27.8607, Description: "Major township in Johannesburg - Case study location"},
	{Name: "Johannesburg CBD", Latitude: -26.2041, Longitude: 28.0473, Description: "Johannesburg Central Business District"},
	{Name: "Cape Town", Latitude: -33.9249, Longitude: 18.4241, Description: "Cape Town metropolitan area"},
	{Name: "Durban", Latitude: -29.8587, Longitude: 31.0218, Description: "Durban metropolitan area"},
	{Name: "Pretoria", Latitude: -25.7479, Longitude: 28.2293, Description: "Pretoria/Tshwane metropolitan area"},
	{Name: "Nairobi", Latitude: -1.2864, Longitude: 36.8172, Description: "Nairobi, Kenya"},
	{Name: "Lagos", Latitude: 6.5244, Longitude: 3.3792, Description: "Lagos, Nigeria"},
	{Name: "Accra", Latitude: 5.6037, Longitude: -0.1870, Description: "Accra, Ghana"},
	{Name: "Kampala", Latitude: 0.3476, Longitude: 32.5825, Description: "Kampala, Uganda"},
	{Name: "Dar es Salaam", Latitude: -6.7924, Longitude: 39.2083, Description: "Dar es Salaam, Tanzania"},
	{Name: "Harare", Latitude: -17.8292, Longitude: 31.0522, Description: "Harare, Zimbabwe"},
	{Name: "Lusaka", Latitude: -15.3875, Longitude: 28.3228, Description: "Lusaka, Zambia"},
}

// PresetLocations returns the preset study locations in display order.
func PresetLocations() []models.PresetLocation {
	out := make([]models.PresetLocation, len(presetLocations))
	copy(out, presetLocations)
	return out
}
