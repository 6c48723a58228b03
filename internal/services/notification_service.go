package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"github.com/ArowuTest/rifa-backend/pkg/smsgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// AdminChannel delivers operator alerts, e.g. a Telegram bot.
type AdminChannel interface {
	NotifyAdmin(text string) error
}

// Compile-time check to ensure NotificationService implements Notifier
var _ Notifier = (*NotificationService)(nil)

// NotificationService texts buyers through the SMS gateway and forwards
// admin alerts, off the request path. Every SMS attempt is recorded.
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	gateway       smsgateway.Gateway
	admin         AdminChannel
	clock         clock.Clock
	timeout       time.Duration
	pending       sync.WaitGroup
}

// DeliveryTimeout bounds one background SMS or admin alert.
const DeliveryTimeout = 30 * time.Second

// NewNotificationService creates a new NotificationService. gateway and
// admin may be nil, in which case that channel is skipped.
func NewNotificationService(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	gateway smsgateway.Gateway,
	admin AdminChannel,
	clk clock.Clock,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		gateway:       gateway,
		admin:         admin,
		clock:         clk,
		timeout:       DeliveryTimeout,
	}
}

// Notify resolves the recipient and queues delivery. The SMS is sent and
// recorded in the background under its own deadline. Delivery failures are
// logged and stored on the notification record.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, kind models.NotificationType, title, message string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}

	n := &models.Notification{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Type:        kind,
		Title:       title,
		Message:     message,
		PhoneNumber: user.PhoneNumber,
		Channel:     "log",
		Status:      models.NotificationSent,
		CreatedAt:   s.clock.Now(),
	}
	s.background(func(ctx context.Context) { s.deliver(ctx, n) })
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) {
	if s.gateway != nil {
		n.Channel = "sms"
		id, err := s.gateway.SendSMS(ctx, n.PhoneNumber, n.Title+": "+n.Message)
		if err != nil {
			n.Status = models.NotificationFailed
			n.Error = err.Error()
			slog.Warn("sms delivery failed", "userId", n.UserID.Hex(), "type", n.Type, "error", err)
		}
		n.MessageID = id
	} else {
		slog.Info("notification", "userId", n.UserID.Hex(), "type", n.Type, "title", n.Title, "message", n.Message)
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		slog.Error("failed to record notification", "notificationId", n.ID.Hex(), "error", err)
	}
}

// NotifyAdmin queues an alert for the admin channel, or logs it when none is configured.
func (s *NotificationService) NotifyAdmin(_ context.Context, message string) error {
	if s.admin == nil {
		slog.Info("admin alert", "message", message)
		return nil
	}
	s.background(func(context.Context) {
		if err := s.admin.NotifyAdmin(message); err != nil {
			slog.Warn("failed to alert admin", "error", err)
		}
	})
	return nil
}

// Wait blocks until every queued delivery has finished.
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

func (s *NotificationService) background(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// ListForUser returns the notifications sent to userID.
func (s *NotificationService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	return s.notifications.FindByUser(ctx, userID)
}
