package services

import (
	"context"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Broadcaster publishes committed state changes to realtime subscribers.
// Publish must not block on slow subscribers.
type Broadcaster interface {
	Publish(topic string, payload interface{})
}

// Notifier delivers buyer and admin messages. Callers treat delivery as
// fire-and-forget: a failure is logged and never undoes a committed change.
type Notifier interface {
	// Notify sends a message to one user and records it.
	Notify(ctx context.Context, userID primitive.ObjectID, kind models.NotificationType, title, message string) error

	// NotifyAdmin alerts the operators (new payments, sweep results).
	NotifyAdmin(ctx context.Context, message string) error
}

// NopBroadcaster drops every event. Useful when no realtime transport is wired.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, interface{}) {}

func notifyUser(ctx context.Context, n Notifier, userID primitive.ObjectID, kind models.NotificationType, title, message string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, kind, title, message); err != nil {
		slog.Warn("failed to send notification", "userId", userID.Hex(), "type", kind, "error", err)
	}
}

func alertAdmin(ctx context.Context, n Notifier, message string) {
	if n == nil {
		return
	}
	if err := n.NotifyAdmin(ctx, message); err != nil {
		slog.Warn("failed to alert admin", "error", err)
	}
}
