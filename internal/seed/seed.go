// Package seed provides the startup alert and notification collections.
package seed

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/t77yq/energy-dashboard/internal/model"
)

const timestampLayout = "2006-01-02T15:04:05"

// Data is the seeded state of both stores
type Data struct {
	Alerts        []model.Alert
	Notifications []model.Notification
}

type fileAlert struct {
	ID          string `yaml:"id" validate:"required"`
	Title       string `yaml:"title" validate:"required"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity" validate:"required,oneof=critical warning info"`
	Status      string `yaml:"status" validate:"omitempty,oneof=active acknowledged resolved"`
	Location    string `yaml:"location"`
	System      string `yaml:"system"`
	Impact      string `yaml:"impact"`
	Timestamp   string `yaml:"timestamp" validate:"required"`
}

type fileNotification struct {
	ID      string `yaml:"id" validate:"required"`
	Message string `yaml:"message" validate:"required"`
	Time    string `yaml:"time"`
	Read    bool   `yaml:"read"`
}

type file struct {
	Alerts        []fileAlert        `yaml:"alerts" validate:"dive"`
	Notifications []fileNotification `yaml:"notifications" validate:"dive"`
}

// LoadFile reads a YAML seed file
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML seed data
func Parse(raw []byte) (*Data, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}

	data := &Data{
		Alerts:        make([]model.Alert, 0, len(f.Alerts)),
		Notifications: make([]model.Notification, 0, len(f.Notifications)),
	}

	for _, a := range f.Alerts {
		ts, err := time.Parse(timestampLayout, a.Timestamp)
		if err != nil {
			if ts, err = time.Parse(time.RFC3339, a.Timestamp); err != nil {
				return nil, fmt.Errorf("alert %s: invalid timestamp %q", a.ID, a.Timestamp)
			}
		}
		status := model.AlertStatusActive
		if a.Status != "" {
			status = model.AlertStatus(a.Status)
		}
		data.Alerts = append(data.Alerts, model.Alert{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Severity:    model.AlertSeverity(a.Severity),
			Status:      status,
			Location:    a.Location,
			System:      a.System,
			Impact:      a.Impact,
			Timestamp:   ts,
		})
	}

	for _, n := range f.Notifications {
		data.Notifications = append(data.Notifications, model.Notification{
			ID:      n.ID,
			Message: n.Message,
			Time:    n.Time,
			Read:    n.Read,
		})
	}

	return data, nil
}
