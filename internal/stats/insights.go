package stats

import "github.com/eddielimmm/my-agile-plus/internal/store"

// ImprovementFactor is the predicted share of the current average completion time.
const ImprovementFactor = 0.9

// Prediction compares the current average completion time with the expected one.
type Prediction struct {
	Size      store.Size
	Current   float64
	Predicted float64
}

// Predictions projects a 10% improvement on every size that has samples.
func Predictions(times []CompletionTime) []Prediction {
	var out []Prediction
	for _, ct := range times {
		if ct.Samples == 0 {
			continue
		}
		out = append(out, Prediction{Size: ct.Size, Current: ct.Avg, Predicted: ct.Avg * ImprovementFactor})
	}
	return out
}

// MostEfficientSize returns the size with the lowest average completion time among
// sizes with at least one completed task.
func MostEfficientSize(times []CompletionTime) (store.Size, bool) {
	var (
		best  store.Size
		found bool
		avg   float64
	)
	for _, ct := range times {
		if ct.Samples == 0 {
			continue
		}
		if !found || ct.Avg < avg {
			best, avg, found = ct.Size, ct.Avg, true
		}
	}
	return best, found
}

// PointsPerHour is the points earned per tracked hour over completed tasks of each size.
func PointsPerHour(tasks []store.Task) map[store.Size]float64 {
	points := make(map[store.Size]int)
	secs := make(map[store.Size]int64)
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		points[t.Size] += t.Points
		secs[t.Size] += t.TotalSeconds()
	}
	out := make(map[store.Size]float64)
	for size, s := range secs {
		if s > 0 {
			out[size] = float64(points[size]) / (float64(s) / 3600)
		}
	}
	return out
}
