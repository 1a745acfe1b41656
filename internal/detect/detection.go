// Package detect defines the per-frame detection payload consumed by the
// tracker, and the input validation applied before tracking.
package detect

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/occupancy.report/internal/geom"
)

// Class is the closed set of object classes the core understands.
type Class uint8

const (
	ClassOther Class = iota
	ClassPerson
	ClassChair
)

// COCO category ids emitted by the upstream detector.
const (
	COCOPerson = 0
	COCOChair  = 56
)

func (c Class) String() string {
	switch c {
	case ClassPerson:
		return "person"
	case ClassChair:
		return "chair"
	default:
		return "other"
	}
}

// ParseClass maps a label to a Class. Unknown labels are ClassOther.
func ParseClass(s string) Class {
	switch s {
	case "person":
		return ClassPerson
	case "chair":
		return ClassChair
	default:
		return ClassOther
	}
}

// ClassFromCOCO maps a COCO category id to a Class.
func ClassFromCOCO(id int) Class {
	switch id {
	case COCOPerson:
		return ClassPerson
	case COCOChair:
		return ClassChair
	default:
		return ClassOther
	}
}

// MarshalJSON encodes the class as its label.
func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a label or a COCO category id.
func (c *Class) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*c = ParseClass(label)
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("class must be a label or COCO id: %w", err)
	}
	*c = ClassFromCOCO(id)
	return nil
}

// Detection is a single object detection in one frame.
type Detection struct {
	Class      Class     `json:"class"`
	Confidence float64   `json:"confidence"`
	Box        geom.BBox `json:"bbox"`
}

// Person is a convenience constructor for a person detection.
func Person(x1, y1, x2, y2, confidence float64) Detection {
	return Detection{Class: ClassPerson, Confidence: confidence, Box: geom.NewBBox(x1, y1, x2, y2)}
}

// Chair is a convenience constructor for a chair detection.
func Chair(x1, y1, x2, y2, confidence float64) Detection {
	return Detection{Class: ClassChair, Confidence: confidence, Box: geom.NewBBox(x1, y1, x2, y2)}
}

// Validate reports why a detection cannot be tracked, or nil.
func (d Detection) Validate() error {
	if !d.Box.Valid() {
		return fmt.Errorf("degenerate bounding box %s", d.Box)
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", d.Confidence)
	}
	return nil
}
