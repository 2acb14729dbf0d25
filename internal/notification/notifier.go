// Package notification delivers selection alerts to external channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quant-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	slog.Info("notify", "level", alert.Level, "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi sends to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// maxListed caps the instruments spelled out in a selection alert.
const maxListed = 10

// SelectionAlert summarises a selection run. An empty selection or one
// with failures is raised to a warning.
func SelectionAlert(score *model.CompositeScore) Alert {
	a := Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s selection %s", score.Strategy, score.Date.Format("2006-01-02")),
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d selected", len(score.Ranked))
	for i, r := range score.Ranked {
		if i == maxListed {
			fmt.Fprintf(&b, "\n... %d more", len(score.Ranked)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s %.3f", r.Rank, r.Instrument, r.Score)
	}
	if n := len(score.Failures); n > 0 {
		fmt.Fprintf(&b, "\n%d instruments failed", n)
		a.Level = AlertWarning
	}
	if len(score.Ranked) == 0 {
		a.Level = AlertWarning
	}
	a.Message = b.String()
	return a
}
