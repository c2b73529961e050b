package association

import (
	"safesite-worker-go/internal/models"
)

// Engine converts one frame's flat detection list into per-person compliance
// records plus a clean, drawable detection list. Associate is a pure function
// of its inputs; the Engine only carries thresholds.
type Engine struct {
	overlapThreshold float64
	confidenceMargin float64
}

// NewEngine creates an engine with the standard thresholds: 0.5 overlap for
// suppression and conflict detection, 0.1 confidence margin for
// positive/negative conflict resolution.
func NewEngine() *Engine {
	return &Engine{
		overlapThreshold: 0.5,
		confidenceMargin: 0.1,
	}
}

// Result is the output of one association pass.
type Result struct {
	People    []models.PersonRecord
	Drawables []models.DrawableDetection
}

// Associate partitions the detections into people and equipment, suppresses
// duplicate boxes per class, and decides per person and per required kind
// whether the equipment is present. Zero people yields an empty result, not
// an error.
func (e *Engine) Associate(detections []models.Detection, required []models.EquipmentKind) Result {
	var people []models.Detection
	var equipment []models.Detection
	for _, det := range detections {
		if det.ClassName == models.ClassPerson {
			people = append(people, det)
		} else if _, ok := det.Kind(); ok {
			equipment = append(equipment, det)
		}
	}

	people = suppressClass(people, e.overlapThreshold)
	equipment = SuppressByClass(equipment, e.overlapThreshold)

	result := Result{
		People:    make([]models.PersonRecord, 0, len(people)),
		Drawables: make([]models.DrawableDetection, 0, len(people)*len(required)),
	}

	for _, person := range people {
		record := models.PersonRecord{BBox: person.BBox}

		for _, kind := range required {
			present, drawable := e.resolveKind(kind, person.BBox, equipment)
			if present {
				record.Present = append(record.Present, kind)
			} else {
				record.Missing = append(record.Missing, kind)
			}
			result.Drawables = append(result.Drawables, drawable)
		}

		record.Compliant = len(record.Missing) == 0
		result.People = append(result.People, record)
	}

	return result
}

// resolveKind decides presence of one equipment kind for one person,
// resolving positive/negative detection conflicts.
func (e *Engine) resolveKind(kind models.EquipmentKind, person models.BBox, equipment []models.Detection) (bool, models.DrawableDetection) {
	zone := captureZone(kind, person)
	regions := regionsFor(kind, person)

	var positive, negative *models.Detection
	for i := range equipment {
		det := equipment[i]
		detKind, _ := det.Kind()
		if detKind != kind {
			continue
		}
		cx, cy := det.BBox.Center()
		if !zone.Contains(cx, cy) {
			continue
		}
		if det.IsAbsence {
			if negative == nil || det.Confidence > negative.Confidence {
				negative = &equipment[i]
			}
		} else {
			if positive == nil || det.Confidence > positive.Confidence {
				positive = &equipment[i]
			}
		}
	}

	// A negative box only counts as a conflict when it actually covers the
	// anatomical region.
	if negative != nil && bestRegionOverlap(negative.BBox, regions) <= e.overlapThreshold {
		negative = nil
	}

	present := false
	var confidence float32
	switch {
	case positive != nil && negative != nil:
		// The higher-confidence reading wins only beyond the margin; ties and
		// narrow margins default to equipment-present to avoid over-reporting
		// violations on ambiguous frames.
		if float64(negative.Confidence-positive.Confidence) > e.confidenceMargin {
			present = false
			confidence = negative.Confidence
		} else {
			present = true
			confidence = positive.Confidence
		}
	case positive != nil:
		present = true
		confidence = positive.Confidence
	case negative != nil:
		present = false
		confidence = negative.Confidence
	default:
		// Nothing detected near this person: the required item is missing.
		present = false
	}

	region := drawRegion(kind, person, positive, negative, regions)
	className := models.PositiveClassFor(kind)
	if !present {
		className = "no_" + className
	}
	return present, models.DrawableDetection{
		BBox:       region,
		ClassName:  className,
		Confidence: confidence,
		Missing:    !present,
	}
}

// bestRegionOverlap returns the highest overlap ratio between a box and any
// of the kind's anatomical regions (feet has two strips).
func bestRegionOverlap(box models.BBox, regions []models.BBox) float64 {
	best := 0.0
	for _, region := range regions {
		if r := region.OverlapRatio(box); r > best {
			best = r
		}
	}
	return best
}

// drawRegion picks the anatomical box to render. Single-region kinds always
// draw that region; feet draws the strip closest to the deciding detection.
func drawRegion(kind models.EquipmentKind, person models.BBox, positive, negative *models.Detection, regions []models.BBox) models.BBox {
	if len(regions) == 1 {
		return regions[0]
	}

	deciding := positive
	if deciding == nil {
		deciding = negative
	}
	if deciding == nil {
		return regions[0]
	}

	best := regions[0]
	bestOverlap := -1.0
	for _, region := range regions {
		if r := region.OverlapRatio(deciding.BBox); r > bestOverlap {
			bestOverlap = r
			best = region
		}
	}
	return best
}
