package models

import (
	"time"
)

// EquipmentKind groups detector classes by the body region they protect.
type EquipmentKind string

const (
	EquipmentHeadwear EquipmentKind = "headwear"
	EquipmentTorso    EquipmentKind = "torso"
	EquipmentFeet     EquipmentKind = "feet"
)

// Detector class names. Negative classes are explicit "equipment absent"
// outputs of the model, not the mere absence of a positive detection.
const (
	ClassPerson = "person"

	ClassHelmet = "helmet"
	ClassVest   = "vest"
	ClassBoots  = "boots"

	ClassNoHelmet = "no_helmet"
	ClassNoVest   = "no_vest"
	ClassNoBoots  = "no_boots"
)

var positiveClassKinds = map[string]EquipmentKind{
	ClassHelmet: EquipmentHeadwear,
	ClassVest:   EquipmentTorso,
	ClassBoots:  EquipmentFeet,
}

var negativeClassKinds = map[string]EquipmentKind{
	ClassNoHelmet: EquipmentHeadwear,
	ClassNoVest:   EquipmentTorso,
	ClassNoBoots:  EquipmentFeet,
}

var positiveClassForKind = map[EquipmentKind]string{
	EquipmentHeadwear: ClassHelmet,
	EquipmentTorso:    ClassVest,
	EquipmentFeet:     ClassBoots,
}

// IsAbsenceClass reports whether a detector class explicitly signals missing
// equipment.
func IsAbsenceClass(className string) bool {
	_, ok := negativeClassKinds[className]
	return ok
}

// KindForClass maps a detector class (positive or negative) to the equipment
// kind it refers to. The person class has no kind.
func KindForClass(className string) (EquipmentKind, bool) {
	if k, ok := positiveClassKinds[className]; ok {
		return k, true
	}
	if k, ok := negativeClassKinds[className]; ok {
		return k, true
	}
	return "", false
}

// PositiveClassFor returns the equipment-present class for a kind.
func PositiveClassFor(kind EquipmentKind) string {
	return positiveClassForKind[kind]
}

// Detection is one bounding box returned by the external detector for a frame.
// Immutable once received.
type Detection struct {
	BBox       BBox    `json:"bbox"`
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
	IsAbsence  bool    `json:"is_absence_class"`
}

// Kind returns the equipment kind this detection refers to, if any.
func (d Detection) Kind() (EquipmentKind, bool) {
	return KindForClass(d.ClassName)
}

// PersonRecord is the per-frame compliance verdict for one detected person.
// Recomputed every detection cycle; input to the violation tracker.
type PersonRecord struct {
	BBox      BBox            `json:"bbox"`
	Present   []EquipmentKind `json:"present_equipment"`
	Missing   []EquipmentKind `json:"missing_equipment"`
	Compliant bool            `json:"compliant"`
}

// MissingViolationTypes maps the missing equipment kinds to violation type
// identifiers consumed by the tracker.
func (p PersonRecord) MissingViolationTypes() []string {
	types := make([]string, 0, len(p.Missing))
	for _, kind := range p.Missing {
		types = append(types, ViolationTypeFor(kind))
	}
	return types
}

// DrawableDetection is a resolved, de-duplicated box suitable for rendering on
// evidence snapshots: kept positive detections redrawn at anatomical regions
// plus missing-item markers.
type DrawableDetection struct {
	BBox       BBox    `json:"bbox"`
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
	Missing    bool    `json:"missing"`
}

// Frame is one encoded (JPEG) video frame taken from a channel's buffer.
type Frame struct {
	CameraID  string    `json:"camera_id"`
	FrameID   int64     `json:"frame_id"`
	Data      []byte    `json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a deep copy so buffer readers never share backing arrays with
// the capture loop.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	dup := *f
	dup.Data = make([]byte, len(f.Data))
	copy(dup.Data, f.Data)
	return &dup
}

// Bounds returns the frame rectangle as a BBox.
func (f *Frame) Bounds() BBox {
	return BBox{X1: 0, Y1: 0, X2: float64(f.Width), Y2: float64(f.Height)}
}
