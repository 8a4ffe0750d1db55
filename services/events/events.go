// Package events publishes task lifecycle events to a message broker so
// downstream consumers (notifications, analytics) can react without querying
// the primary database.
package events

import (
	"context"
	"time"
)

// TaskStatusChanged is published whenever a task moves between board columns.
type TaskStatusChanged struct {
	TaskID     int       `json:"task_id"`
	ProjectID  int       `json:"project_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  int       `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Publisher is any service that can emit task events.
type Publisher interface {
	PublishTaskStatusChanged(ctx context.Context, evt TaskStatusChanged) error
	Close() error
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishTaskStatusChanged(context.Context, TaskStatusChanged) error { return nil }
func (NopPublisher) Close() error                                                     { return nil }
