package detect

import "github.com/banshee-data/occupancy.report/internal/monitoring"

// Counts summarises one frame's detections by class.
type Counts struct {
	Total    int `json:"total"`
	Persons  int `json:"persons"`
	Chairs   int `json:"chairs"`
	Rejected int `json:"rejected"`
}

// Filter drops malformed detections and those below minConfidence.
// Order of the kept detections is preserved. Rejections never affect the
// remaining detections.
func Filter(dets []Detection, minConfidence float64) ([]Detection, Counts) {
	kept := make([]Detection, 0, len(dets))
	var counts Counts
	for i, d := range dets {
		if err := d.Validate(); err != nil {
			monitoring.Debugf("dropping detection %d (%s): %v", i, d.Class, err)
			counts.Rejected++
			continue
		}
		if d.Confidence < minConfidence {
			counts.Rejected++
			continue
		}
		kept = append(kept, d)
		counts.Total++
		switch d.Class {
		case ClassPerson:
			counts.Persons++
		case ClassChair:
			counts.Chairs++
		}
	}
	return kept, counts
}
