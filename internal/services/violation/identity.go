package violation

import (
	"math"
	"time"

	"safesite-worker-go/internal/models"
)

// TrackedPerson is the tracker's last-known state for one identity within a
// camera.
type TrackedPerson struct {
	PersonID string
	LastBBox models.BBox
	LastSeen time.Time
}

// PersonIdentityResolver matches a frame's person box to an existing identity
// within the same camera. No persistent cross-frame identifier is guaranteed
// by the detector, so the default resolution is spatial; a stronger
// multi-object tracker can be substituted without touching the event state
// machine.
type PersonIdentityResolver interface {
	Match(candidates []TrackedPerson, bbox models.BBox, frameBounds models.BBox) (personID string, ok bool)
}

// SpatialResolver matches by box overlap, falling back to center distance
// relative to the frame diagonal when boxes do not overlap enough.
type SpatialResolver struct {
	// MinIoU is the minimum intersection-over-union for an overlap match.
	MinIoU float64
	// MaxCenterDistance is the fallback threshold, as a fraction of the frame
	// diagonal.
	MaxCenterDistance float64
}

// NewSpatialResolver creates the default resolver.
func NewSpatialResolver(minIoU, maxCenterDistance float64) *SpatialResolver {
	return &SpatialResolver{
		MinIoU:            minIoU,
		MaxCenterDistance: maxCenterDistance,
	}
}

// Match returns the best-overlapping candidate, or the nearest one within the
// distance threshold when nothing overlaps.
func (r *SpatialResolver) Match(candidates []TrackedPerson, bbox models.BBox, frameBounds models.BBox) (string, bool) {
	bestID := ""
	bestIoU := r.MinIoU
	for _, cand := range candidates {
		if iou := cand.LastBBox.IoU(bbox); iou >= bestIoU {
			bestIoU = iou
			bestID = cand.PersonID
		}
	}
	if bestID != "" {
		return bestID, true
	}

	diag := math.Hypot(frameBounds.Width(), frameBounds.Height())
	if diag <= 0 {
		return "", false
	}
	maxDist := r.MaxCenterDistance * diag

	cx, cy := bbox.Center()
	bestDist := maxDist
	for _, cand := range candidates {
		ox, oy := cand.LastBBox.Center()
		if dist := math.Hypot(cx-ox, cy-oy); dist <= bestDist {
			bestDist = dist
			bestID = cand.PersonID
		}
	}
	return bestID, bestID != ""
}
