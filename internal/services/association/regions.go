package association

import (
	"safesite-worker-go/internal/models"
)

// Anatomical region fractions, relative to the person's own box. Using
// person-relative regions keeps the heuristic correct across camera distance
// and person size.
const (
	headHeightFrac = 0.24
	headWidthFrac  = 0.40

	torsoTopFrac    = 0.20
	torsoBottomFrac = 0.65
	torsoWidthFrac  = 0.70

	feetHeightFrac     = 0.15
	feetStripWidthFrac = 0.25
)

// HeadRegion is the top slice of the person box where headwear is expected:
// top 24% of height, centered 40% of width.
func HeadRegion(person models.BBox) models.BBox {
	cx, _ := person.Center()
	halfW := person.Width() * headWidthFrac / 2
	return models.BBox{
		X1: cx - halfW,
		Y1: person.Y1,
		X2: cx + halfW,
		Y2: person.Y1 + person.Height()*headHeightFrac,
	}
}

// TorsoRegion covers 20-65% of the person's height at 70% of their width.
func TorsoRegion(person models.BBox) models.BBox {
	cx, _ := person.Center()
	halfW := person.Width() * torsoWidthFrac / 2
	return models.BBox{
		X1: cx - halfW,
		Y1: person.Y1 + person.Height()*torsoTopFrac,
		X2: cx + halfW,
		Y2: person.Y1 + person.Height()*torsoBottomFrac,
	}
}

// FeetRegions returns the two footwear strips in the bottom 15% of the person
// box, one 25%-width strip at each side.
func FeetRegions(person models.BBox) [2]models.BBox {
	top := person.Y2 - person.Height()*feetHeightFrac
	stripW := person.Width() * feetStripWidthFrac
	return [2]models.BBox{
		{X1: person.X1, Y1: top, X2: person.X1 + stripW, Y2: person.Y2},
		{X1: person.X2 - stripW, Y1: top, X2: person.X2, Y2: person.Y2},
	}
}

// regionsFor returns the anatomical boxes for a kind; feet contributes two.
func regionsFor(kind models.EquipmentKind, person models.BBox) []models.BBox {
	switch kind {
	case models.EquipmentHeadwear:
		return []models.BBox{HeadRegion(person)}
	case models.EquipmentTorso:
		return []models.BBox{TorsoRegion(person)}
	case models.EquipmentFeet:
		strips := FeetRegions(person)
		return []models.BBox{strips[0], strips[1]}
	}
	return nil
}

// captureZone is the looser candidate filter used only to decide whether an
// equipment detection belongs to a person. The drawn box for a present item is
// always the anatomical region, which is more stable than the raw detection.
func captureZone(kind models.EquipmentKind, person models.BBox) models.BBox {
	cx, _ := person.Center()
	w := person.Width()
	h := person.Height()

	switch kind {
	case models.EquipmentHeadwear:
		// Anywhere above the person's vertical midpoint and within 70% of
		// their width of the horizontal center; headwear boxes often poke
		// above the person box.
		return models.BBox{
			X1: cx - w*0.70,
			Y1: person.Y1 - h*0.20,
			X2: cx + w*0.70,
			Y2: person.Y1 + h*0.50,
		}
	case models.EquipmentTorso:
		return models.BBox{
			X1: cx - w*0.70,
			Y1: person.Y1 + h*0.10,
			X2: cx + w*0.70,
			Y2: person.Y1 + h*0.75,
		}
	case models.EquipmentFeet:
		return models.BBox{
			X1: person.X1 - w*0.10,
			Y1: person.Y2 - h*0.25,
			X2: person.X2 + w*0.10,
			Y2: person.Y2 + h*0.10,
		}
	}
	return person
}
