// Package usage holds the fixed energy consumption datasets and the chart selection state.
package usage

import (
	"fmt"
	"math"
	"strconv"
	"sync"
)

// TimeFrame selects which dataset is shown
type TimeFrame string

const (
	TimeFrameHourly  TimeFrame = "hourly"
	TimeFrameDaily   TimeFrame = "daily"
	TimeFrameMonthly TimeFrame = "monthly"
)

// ParseTimeFrame converts a string into a known time frame
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch tf := TimeFrame(s); tf {
	case TimeFrameHourly, TimeFrameDaily, TimeFrameMonthly:
		return tf, nil
	default:
		return "", fmt.Errorf("unknown time frame: %q", s)
	}
}

// ChartType selects the rendering mode
type ChartType string

const (
	ChartLine ChartType = "line"
	ChartArea ChartType = "area"
	ChartBar  ChartType = "bar"
)

// ParseChartType converts a string into a known chart type
func ParseChartType(s string) (ChartType, error) {
	switch ct := ChartType(s); ct {
	case ChartLine, ChartArea, ChartBar:
		return ct, nil
	default:
		return "", fmt.Errorf("unknown chart type: %q", s)
	}
}

// Point is one sample of consumption per sector in kWh
type Point struct {
	Label        string  `json:"label"`
	Residential  float64 `json:"residential"`
	Commercial   float64 `json:"commercial"`
	Industrial   float64 `json:"industrial"`
	StreetLights float64 `json:"streetLights"`
}

// Dataset is a labelled series for one time frame
type Dataset struct {
	TimeFrame TimeFrame `json:"time_frame"`
	// XKey names the label axis ("time", "date" or "month")
	XKey   string  `json:"x_key"`
	Points []Point `json:"points"`
}

// View is what the chart renders
type View struct {
	ChartType ChartType `json:"chart_type"`
	Dataset   Dataset   `json:"dataset"`
}

// DatasetFor returns a copy of the fixed dataset for tf
func DatasetFor(tf TimeFrame) (Dataset, error) {
	var src Dataset
	switch tf {
	case TimeFrameHourly:
		src = hourly
	case TimeFrameDaily:
		src = daily
	case TimeFrameMonthly:
		src = monthly
	default:
		return Dataset{}, fmt.Errorf("unknown time frame: %q", tf)
	}

	points := make([]Point, len(src.Points))
	copy(points, src.Points)
	return Dataset{TimeFrame: src.TimeFrame, XKey: src.XKey, Points: points}, nil
}

// Selector tracks the chosen time frame and chart type. The zero value is not usable;
// call NewSelector.
type Selector struct {
	mu        sync.RWMutex
	timeFrame TimeFrame
	chartType ChartType
}

// NewSelector starts on the hourly line chart
func NewSelector() *Selector {
	return &Selector{timeFrame: TimeFrameHourly, chartType: ChartLine}
}

// SetTimeFrame switches the dataset without touching the chart type
func (s *Selector) SetTimeFrame(tf TimeFrame) error {
	if _, err := ParseTimeFrame(string(tf)); err != nil {
		return err
	}
	s.mu.Lock()
	s.timeFrame = tf
	s.mu.Unlock()
	return nil
}

// SetChartType switches the rendering mode without touching the dataset
func (s *Selector) SetChartType(ct ChartType) error {
	if _, err := ParseChartType(string(ct)); err != nil {
		return err
	}
	s.mu.Lock()
	s.chartType = ct
	s.mu.Unlock()
	return nil
}

// View returns the current selection with its own copy of the dataset
func (s *Selector) View() View {
	s.mu.RLock()
	tf, ct := s.timeFrame, s.chartType
	s.mu.RUnlock()

	ds, _ := DatasetFor(tf)
	return View{ChartType: ct, Dataset: ds}
}

// FormatAxis renders an axis tick the way the consumption chart labels it
func FormatAxis(value float64) string {
	switch {
	case value >= 1_000_000:
		return strconv.FormatFloat(value/1_000_000, 'f', 1, 64) + "M"
	case value >= 1_000:
		return strconv.FormatFloat(math.Round(value/1_000), 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}
