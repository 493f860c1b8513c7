package monitor

import "github.com/t77yq/energy-dashboard/internal/model"

// Summary aggregates the figures shown on the alert summary tiles
type Summary struct {
	ActiveBySeverity map[model.AlertSeverity]int     `json:"active_by_severity"`
	TotalActive      int                             `json:"total_active"`
	ByStatus         map[model.AlertStatus]int       `json:"by_status"`
	Distribution     map[model.AlertSeverity]float64 `json:"distribution"`
	Total            int                             `json:"total"`
}

// ActiveCountBySeverity counts active alerts of the given severity
func ActiveCountBySeverity(alerts []model.Alert, severity model.AlertSeverity) int {
	count := 0
	for _, a := range alerts {
		if a.Status == model.AlertStatusActive && a.Severity == severity {
			count++
		}
	}
	return count
}

// TotalActive counts active alerts of any severity
func TotalActive(alerts []model.Alert) int {
	count := 0
	for _, a := range alerts {
		if a.Status == model.AlertStatusActive {
			count++
		}
	}
	return count
}

// SeverityDistributionPercent returns each severity's share of the whole collection.
// Every bucket is zero for an empty collection.
func SeverityDistributionPercent(alerts []model.Alert) map[model.AlertSeverity]float64 {
	out := make(map[model.AlertSeverity]float64, len(model.Severities))
	for _, sev := range model.Severities {
		out[sev] = 0
	}
	if len(alerts) == 0 {
		return out
	}

	counts := make(map[model.AlertSeverity]int, len(model.Severities))
	for _, a := range alerts {
		counts[a.Severity]++
	}
	total := float64(len(alerts))
	for _, sev := range model.Severities {
		out[sev] = 100 * float64(counts[sev]) / total
	}
	return out
}

// Summarize computes every tile figure from one snapshot
func Summarize(alerts []model.Alert) Summary {
	s := Summary{
		ActiveBySeverity: make(map[model.AlertSeverity]int, len(model.Severities)),
		ByStatus:         make(map[model.AlertStatus]int, len(model.Statuses)),
		Distribution:     SeverityDistributionPercent(alerts),
		Total:            len(alerts),
	}
	for _, sev := range model.Severities {
		s.ActiveBySeverity[sev] = ActiveCountBySeverity(alerts, sev)
	}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}
	for _, a := range alerts {
		s.ByStatus[a.Status]++
	}
	s.TotalActive = TotalActive(alerts)
	return s
}
