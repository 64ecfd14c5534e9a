package telemetry

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses a session's records into the metrics the monitoring
// side cares about: how often the lane was seen and how hard the controller
// had to steer.
type Summary struct {
	Frames          int     `json:"frames"`
	DetectionRate   float64 `json:"detection_rate"`
	MeanSteering    float64 `json:"mean_steering"`
	SteeringStdDev  float64 `json:"steering_std_dev"`
	MeanAbsSteering float64 `json:"mean_abs_steering"`
}

// Summarize computes the summary over a set of records.
func Summarize(records []Record) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	steering := make([]float64, len(records))
	absSteering := make([]float64, len(records))
	detected := 0
	for i, rec := range records {
		steering[i] = rec.Steering
		absSteering[i] = math.Abs(rec.Steering)
		if rec.LaneDetected {
			detected++
		}
	}

	summary := Summary{
		Frames:          len(records),
		DetectionRate:   float64(detected) / float64(len(records)),
		MeanSteering:    stat.Mean(steering, nil),
		MeanAbsSteering: stat.Mean(absSteering, nil),
	}

	if len(records) > 1 {
		summary.SteeringStdDev = stat.StdDev(steering, nil)
	}

	return summary
}

// SummaryBySession loads a session's records and summarizes them.
func (r *FrameRepository) SummaryBySession(sessionID string) (Summary, error) {
	records, err := r.ListBySession(sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}
