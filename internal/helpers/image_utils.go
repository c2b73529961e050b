package helpers

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"safesite-worker-go/internal/models"
)

var (
	personColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	presentColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	missingColor  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	labelBgColor  = color.RGBA{R: 0, G: 0, B: 0, A: 200}
	labelFgColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelFontFace = gocv.FontHersheySimplex
)

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// AnnotateSnapshot decodes a JPEG frame, draws person and equipment boxes on
// it, and re-encodes it for evidence storage. Person boxes are white, present
// equipment green, missing equipment red with the violation class as label.
func AnnotateSnapshot(frameData []byte, people []models.PersonRecord, drawables []models.DrawableDetection, quality int) ([]byte, error) {
	if !IsJPEGData(frameData) {
		return nil, fmt.Errorf("frame data is not JPEG")
	}

	mat, err := gocv.IMDecode(frameData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decoded frame is empty")
	}

	for _, p := range people {
		gocv.Rectangle(&mat, bboxToRect(p.BBox), personColor, 2)
	}

	for _, d := range drawables {
		boxColor := presentColor
		if d.Missing {
			boxColor = missingColor
		}
		rect := bboxToRect(d.BBox)
		gocv.Rectangle(&mat, rect, boxColor, 2)
		drawLabel(&mat, d.ClassName, rect.Min.X, rect.Min.Y-6)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// drawLabel draws text with a dark background so it stays readable on any
// scene.
func drawLabel(mat *gocv.Mat, text string, x, y int) {
	fontScale := 0.5
	thickness := 1
	textSize := gocv.GetTextSize(text, labelFontFace, fontScale, thickness)

	if y-textSize.Y < 0 {
		y = textSize.Y + 4
	}

	padding := 3
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, labelBgColor, -1)
	gocv.PutText(mat, text, image.Pt(x, y), labelFontFace, fontScale, labelFgColor, thickness)
}

func bboxToRect(b models.BBox) image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// EvidenceUsable reports whether a person box is good enough for an evidence
// snapshot: fully inside the frame and covering at least minAreaRatio of it.
// Partial or tiny boxes produce snapshots that cannot be reviewed.
func EvidenceUsable(person models.BBox, frameBounds models.BBox, minAreaRatio float64) bool {
	if person.Empty() || frameBounds.Empty() {
		return false
	}
	if !person.Inside(frameBounds) {
		return false
	}
	return person.Area()/frameBounds.Area() >= minAreaRatio
}
