package seed

import (
	"time"

	"github.com/t77yq/energy-dashboard/internal/model"
)

func at(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the built-in sample collections
func Default() *Data {
	return &Data{
		Alerts: []model.Alert{
			{
				ID:          "1",
				Title:       "High energy consumption detected",
				Description: "Downtown office buildings showing 25% higher than expected consumption",
				Severity:    model.AlertSeverityCritical,
				Status:      model.AlertStatusActive,
				Location:    "Downtown",
				Timestamp:   at("2025-04-04T10:15:00"),
				System:      "Commercial Buildings",
				Impact:      "Potential overload on substation DB-3",
			},
			{
				ID:          "2",
				Title:       "Power factor below threshold",
				Description: "Industrial zone substation showing power factor of 0.82, below the 0.9 threshold",
				Severity:    model.AlertSeverityWarning,
				Status:      model.AlertStatusAcknowledged,
				Location:    "Industrial Zone",
				Timestamp:   at("2025-04-04T09:30:00"),
				System:      "Power Distribution",
				Impact:      "Increased distribution losses",
			},
			{
				ID:          "3",
				Title:       "Street lighting malfunction",
				Description: "Lights operating during daylight hours in North District",
				Severity:    model.AlertSeverityWarning,
				Status:      model.AlertStatusActive,
				Location:    "North District",
				Timestamp:   at("2025-04-04T08:45:00"),
				System:      "Street Lighting",
				Impact:      "Increased energy waste",
			},
			{
				ID:          "4",
				Title:       "Voltage fluctuation detected",
				Description: "Voltage fluctuations observed at East Residential substation",
				Severity:    model.AlertSeverityWarning,
				Status:      model.AlertStatusResolved,
				Location:    "Residential East",
				Timestamp:   at("2025-04-03T14:20:00"),
				System:      "Power Quality",
				Impact:      "Potential damage to sensitive equipment",
			},
			{
				ID:          "5",
				Title:       "Transformer maintenance completed",
				Description: "Scheduled maintenance completed for West Zone transformer",
				Severity:    model.AlertSeverityInfo,
				Status:      model.AlertStatusResolved,
				Location:    "West Zone",
				Timestamp:   at("2025-04-03T11:45:00"),
				System:      "Grid Infrastructure",
				Impact:      "None",
			},
			{
				ID:          "6",
				Title:       "Peak demand threshold reached",
				Description: "City-wide demand approaching 95% of capacity",
				Severity:    model.AlertSeverityCritical,
				Status:      model.AlertStatusAcknowledged,
				Location:    "City-wide",
				Timestamp:   at("2025-04-03T15:30:00"),
				System:      "Load Management",
				Impact:      "Potential for load shedding",
			},
			{
				ID:          "7",
				Title:       "Backup generator test successful",
				Description: "Monthly test of emergency backup systems completed successfully",
				Severity:    model.AlertSeverityInfo,
				Status:      model.AlertStatusResolved,
				Location:    "Critical Infrastructure",
				Timestamp:   at("2025-04-02T09:00:00"),
				System:      "Emergency Systems",
				Impact:      "None",
			},
			{
				ID:          "8",
				Title:       "Communication failure with sensors",
				Description: "Unable to collect data from smart meters in Tech Park area",
				Severity:    model.AlertSeverityWarning,
				Status:      model.AlertStatusActive,
				Location:    "Tech Park",
				Timestamp:   at("2025-04-04T07:15:00"),
				System:      "Monitoring Infrastructure",
				Impact:      "Limited visibility of consumption data",
			},
		},
		Notifications: []model.Notification{
			{ID: "1", Message: "Alert: High energy usage in Downtown area", Time: "10 min ago"},
			{ID: "2", Message: "New energy saving recommendation available", Time: "1 hour ago"},
			{ID: "3", Message: "Monthly energy report ready to view", Time: "1 day ago", Read: true},
		},
	}
}
