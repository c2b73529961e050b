package association

import (
	"safesite-worker-go/internal/models"
)

// Required equipment per work sector. Static lookup data fed from channel
// configuration; every sector requires at least headwear and torso protection.
var sectorRequirements = map[string][]models.EquipmentKind{
	"construction":  {models.EquipmentHeadwear, models.EquipmentTorso, models.EquipmentFeet},
	"manufacturing": {models.EquipmentHeadwear, models.EquipmentTorso, models.EquipmentFeet},
	"warehouse":     {models.EquipmentHeadwear, models.EquipmentTorso},
	"logistics":     {models.EquipmentHeadwear, models.EquipmentTorso},
}

var defaultRequirements = []models.EquipmentKind{models.EquipmentHeadwear, models.EquipmentTorso}

// RequiredEquipment returns the equipment kinds required for a sector,
// falling back to the headwear+torso minimum for unknown sectors.
func RequiredEquipment(sector string) []models.EquipmentKind {
	if req, ok := sectorRequirements[sector]; ok {
		return req
	}
	return defaultRequirements
}
