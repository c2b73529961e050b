package association

import (
	"testing"

	"safesite-worker-go/internal/models"
)

// person fixture: 100x300 box so the anatomical regions land at
// head (130,100)-(170,172), torso (115,160)-(185,295), feet strips
// (100,355)-(125,400) and (175,355)-(200,400).
func personDet(conf float32) models.Detection {
	return models.Detection{
		BBox:       models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400},
		ClassName:  models.ClassPerson,
		Confidence: conf,
	}
}

func det(class string, conf float32, box models.BBox) models.Detection {
	return models.Detection{
		BBox:       box,
		ClassName:  class,
		Confidence: conf,
		IsAbsence:  models.IsAbsenceClass(class),
	}
}

var headTorso = []models.EquipmentKind{models.EquipmentHeadwear, models.EquipmentTorso}

func TestAssociateCompliantPerson(t *testing.T) {
	e := NewEngine()

	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassHelmet, 0.8, models.BBox{X1: 135, Y1: 105, X2: 165, Y2: 140}),
		det(models.ClassVest, 0.85, models.BBox{X1: 120, Y1: 170, X2: 180, Y2: 280}),
	}, headTorso)

	if len(result.People) != 1 {
		t.Fatalf("Expected 1 person, got %d", len(result.People))
	}
	p := result.People[0]
	if !p.Compliant {
		t.Errorf("Expected compliant person, missing=%v", p.Missing)
	}
	if len(p.Present) != 2 {
		t.Errorf("Expected 2 present kinds, got %v", p.Present)
	}

	for _, d := range result.Drawables {
		if d.Missing {
			t.Errorf("Compliant person should have no missing drawables, got %s", d.ClassName)
		}
	}
}

func TestAssociateMissingHelmet(t *testing.T) {
	e := NewEngine()

	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassVest, 0.85, models.BBox{X1: 120, Y1: 170, X2: 180, Y2: 280}),
	}, headTorso)

	p := result.People[0]
	if p.Compliant {
		t.Fatal("Person without helmet should not be compliant")
	}
	if len(p.Missing) != 1 || p.Missing[0] != models.EquipmentHeadwear {
		t.Fatalf("Expected missing headwear, got %v", p.Missing)
	}

	var marker *models.DrawableDetection
	for i := range result.Drawables {
		if result.Drawables[i].Missing {
			marker = &result.Drawables[i]
		}
	}
	if marker == nil {
		t.Fatal("Expected a missing-item drawable")
	}
	if marker.ClassName != "no_helmet" {
		t.Errorf("Expected no_helmet marker, got %s", marker.ClassName)
	}

	// The marker is drawn at the anatomical head region.
	head := HeadRegion(models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400})
	if marker.BBox != head {
		t.Errorf("Marker should sit at the head region %v, got %v", head, marker.BBox)
	}
}

func TestAssociateNegativeWinsBeyondMargin(t *testing.T) {
	e := NewEngine()

	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassHelmet, 0.70, models.BBox{X1: 130, Y1: 100, X2: 170, Y2: 160}),
		det(models.ClassNoHelmet, 0.90, models.BBox{X1: 130, Y1: 100, X2: 170, Y2: 160}),
	}, []models.EquipmentKind{models.EquipmentHeadwear})

	p := result.People[0]
	if p.Compliant {
		t.Error("Negative reading above the margin should mark headwear missing")
	}
}

func TestAssociateTieDefaultsToPresent(t *testing.T) {
	e := NewEngine()

	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassHelmet, 0.60, models.BBox{X1: 130, Y1: 100, X2: 170, Y2: 160}),
		det(models.ClassNoHelmet, 0.65, models.BBox{X1: 130, Y1: 100, X2: 170, Y2: 160}),
	}, []models.EquipmentKind{models.EquipmentHeadwear})

	p := result.People[0]
	if !p.Compliant {
		t.Error("A margin-of-error conflict should default to equipment present")
	}
}

func TestAssociateNegativeOffRegionIgnored(t *testing.T) {
	e := NewEngine()

	// The no_helmet box is inside the capture zone but barely touches the
	// anatomical head region, so it must not override the positive.
	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassHelmet, 0.60, models.BBox{X1: 130, Y1: 100, X2: 170, Y2: 160}),
		det(models.ClassNoHelmet, 0.99, models.BBox{X1: 82, Y1: 45, X2: 120, Y2: 85}),
	}, []models.EquipmentKind{models.EquipmentHeadwear})

	p := result.People[0]
	if !p.Compliant {
		t.Error("Off-region negative should be discarded")
	}
}

func TestAssociateEquipmentOutsideZoneNotAttributed(t *testing.T) {
	e := NewEngine()

	// Helmet far from the person (e.g. on a shelf) must not count.
	result := e.Associate([]models.Detection{
		personDet(0.9),
		det(models.ClassHelmet, 0.95, models.BBox{X1: 500, Y1: 500, X2: 540, Y2: 540}),
	}, []models.EquipmentKind{models.EquipmentHeadwear})

	p := result.People[0]
	if p.Compliant {
		t.Error("Distant helmet should not satisfy the requirement")
	}
}

func TestAssociateNoPeople(t *testing.T) {
	e := NewEngine()

	result := e.Associate([]models.Detection{
		det(models.ClassHelmet, 0.9, models.BBox{X1: 10, Y1: 10, X2: 40, Y2: 40}),
	}, headTorso)

	if len(result.People) != 0 {
		t.Errorf("Expected no people, got %d", len(result.People))
	}
	if len(result.Drawables) != 0 {
		t.Errorf("Expected no drawables, got %d", len(result.Drawables))
	}
}

func TestAssociateMultiplePeopleIndependent(t *testing.T) {
	e := NewEngine()

	second := models.Detection{
		BBox:       models.BBox{X1: 600, Y1: 100, X2: 700, Y2: 400},
		ClassName:  models.ClassPerson,
		Confidence: 0.9,
	}

	result := e.Associate([]models.Detection{
		personDet(0.9),
		second,
		// Only the first person wears a helmet.
		det(models.ClassHelmet, 0.8, models.BBox{X1: 135, Y1: 105, X2: 165, Y2: 140}),
	}, []models.EquipmentKind{models.EquipmentHeadwear})

	if len(result.People) != 2 {
		t.Fatalf("Expected 2 people, got %d", len(result.People))
	}

	compliant := 0
	for _, p := range result.People {
		if p.Compliant {
			compliant++
		}
	}
	if compliant != 1 {
		t.Errorf("Exactly one person should be compliant, got %d", compliant)
	}
}

func TestSuppressByClassKeepsHighestConfidence(t *testing.T) {
	box := models.BBox{X1: 100, Y1: 100, X2: 140, Y2: 140}
	shifted := models.BBox{X1: 105, Y1: 105, X2: 145, Y2: 145}
	far := models.BBox{X1: 400, Y1: 400, X2: 440, Y2: 440}

	input := []models.Detection{
		det(models.ClassHelmet, 0.70, box),
		det(models.ClassHelmet, 0.90, shifted),
		det(models.ClassHelmet, 0.80, far),
	}

	kept := SuppressByClass(input, 0.5)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 survivors, got %d", len(kept))
	}
	if kept[0].Confidence != 0.90 {
		t.Errorf("Highest-confidence duplicate should win, got %f", kept[0].Confidence)
	}
}

func TestSuppressByClassSeparatesClasses(t *testing.T) {
	box := models.BBox{X1: 100, Y1: 100, X2: 140, Y2: 140}

	input := []models.Detection{
		det(models.ClassHelmet, 0.9, box),
		det(models.ClassNoHelmet, 0.8, box),
	}

	kept := SuppressByClass(input, 0.5)
	if len(kept) != 2 {
		t.Fatalf("Different classes must not suppress each other, got %d survivors", len(kept))
	}
}

func TestSuppressByClassIdempotent(t *testing.T) {
	input := []models.Detection{
		det(models.ClassHelmet, 0.70, models.BBox{X1: 100, Y1: 100, X2: 140, Y2: 140}),
		det(models.ClassHelmet, 0.90, models.BBox{X1: 105, Y1: 105, X2: 145, Y2: 145}),
		det(models.ClassVest, 0.80, models.BBox{X1: 200, Y1: 200, X2: 260, Y2: 300}),
	}

	once := SuppressByClass(input, 0.5)
	twice := SuppressByClass(once, 0.5)

	if len(once) != len(twice) {
		t.Fatalf("Second pass changed the result: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Position %d differs after second pass", i)
		}
	}
}

func TestRequiredEquipment(t *testing.T) {
	if got := RequiredEquipment("construction"); len(got) != 3 {
		t.Errorf("Construction should require 3 kinds, got %v", got)
	}
	if got := RequiredEquipment("warehouse"); len(got) != 2 {
		t.Errorf("Warehouse should require 2 kinds, got %v", got)
	}
	if got := RequiredEquipment("unknown-sector"); len(got) != 2 {
		t.Errorf("Unknown sector should fall back to the 2-kind minimum, got %v", got)
	}
}

func TestRegionsScaleWithPerson(t *testing.T) {
	small := models.BBox{X1: 0, Y1: 0, X2: 50, Y2: 150}
	large := models.BBox{X1: 0, Y1: 0, X2: 200, Y2: 600}

	smallHead := HeadRegion(small)
	largeHead := HeadRegion(large)

	if smallHead.Height() >= largeHead.Height() {
		t.Error("Head region should scale with person height")
	}

	ratioSmall := smallHead.Height() / small.Height()
	ratioLarge := largeHead.Height() / large.Height()
	if ratioSmall != ratioLarge {
		t.Errorf("Head region fraction should be constant: %f vs %f", ratioSmall, ratioLarge)
	}

	strips := FeetRegions(large)
	if strips[0].X1 != large.X1 || strips[1].X2 != large.X2 {
		t.Error("Feet strips should hug the person box sides")
	}
}
