package charts

import (
	"magistrant/internal/curriculum"

	"github.com/montanaflynn/stats"
)

// Summary holds aggregate hours over a set of records.
type Summary struct {
	Total  int
	Mean   float64
	Median float64
	Max    float64
}

// Summarize aggregates the hours of the records, the zero Summary is returned
// for an empty slice.
func Summarize(records []curriculum.Record) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, nil
	}

	data := stats.Float64Data(hours(records))
	summary := Summary{}
	for _, r := range records {
		summary.Total += r.Hours
	}

	var err error
	summary.Mean, err = stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}
	summary.Median, err = stats.Median(data)
	if err != nil {
		return Summary{}, err
	}
	summary.Max, err = stats.Max(data)
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}
