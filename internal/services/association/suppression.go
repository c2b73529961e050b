package association

import (
	"sort"

	"safesite-worker-go/internal/models"
)

// SuppressByClass applies greedy highest-confidence-first suppression within
// each class. Positive and negative classes are distinct class names and are
// therefore suppressed separately: a frame legitimately contains several
// people wearing the same equipment class, so suppression is never global.
//
// Running the pass twice on its own output is a no-op.
func SuppressByClass(detections []models.Detection, overlapThreshold float64) []models.Detection {
	byClass := make(map[string][]models.Detection)
	classOrder := make([]string, 0)

	for _, det := range detections {
		if _, seen := byClass[det.ClassName]; !seen {
			classOrder = append(classOrder, det.ClassName)
		}
		byClass[det.ClassName] = append(byClass[det.ClassName], det)
	}

	kept := make([]models.Detection, 0, len(detections))
	for _, class := range classOrder {
		kept = append(kept, suppressClass(byClass[class], overlapThreshold)...)
	}
	return kept
}

func suppressClass(detections []models.Detection, overlapThreshold float64) []models.Detection {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	kept := make([]models.Detection, 0, len(detections))
	for _, cand := range detections {
		suppressed := false
		for _, winner := range kept {
			if winner.BBox.OverlapRatio(cand.BBox) > overlapThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}
