package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeGateway struct {
	to, body string
	err      error
}

func (g *fakeGateway) SendSMS(_ context.Context, phoneNumber, message string) (string, error) {
	g.to, g.body = phoneNumber, message
	if g.err != nil {
		return "", g.err
	}
	return "msg-1", nil
}

type fakeAdmin struct {
	messages []string
}

func (a *fakeAdmin) NotifyAdmin(text string) error {
	a.messages = append(a.messages, text)
	return nil
}

func TestNotificationService(t *testing.T) {
	t.Parallel()

	store := memory.NewStore().Repositories()
	ctx := context.Background()
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com", PhoneNumber: "+584120000001"}
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	clk := clock.NewManual(fixtureStart)

	t.Run("sends sms and records it", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := NewNotificationService(store.Notifications, store.Users, gw, nil, clk)
		if err := svc.Notify(ctx, user.ID, models.NotifyPaymentConfirmed, "Payment confirmed", "tickets 001"); err != nil {
			t.Fatalf("notify: %v", err)
		}
		svc.Wait()
		if gw.to != user.PhoneNumber || gw.body != "Payment confirmed: tickets 001" {
			t.Fatalf("unexpected sms to=%q body=%q", gw.to, gw.body)
		}
		list, _ := svc.ListForUser(ctx, user.ID)
		last := list[len(list)-1]
		if last.Status != models.NotificationSent || last.MessageID != "msg-1" || last.Channel != "sms" {
			t.Fatalf("unexpected record %+v", last)
		}
	})

	t.Run("records failed delivery", func(t *testing.T) {
		gw := &fakeGateway{err: errors.New("gateway down")}
		svc := NewNotificationService(store.Notifications, store.Users, gw, nil, clk)
		if err := svc.Notify(ctx, user.ID, models.NotifyPaymentRejected, "Payment rejected", "no"); err != nil {
			t.Fatalf("delivery failure must not reach the caller: %v", err)
		}
		svc.Wait()
		list, _ := svc.ListForUser(ctx, user.ID)
		last := list[len(list)-1]
		if last.Status != models.NotificationFailed || last.Error != "gateway down" {
			t.Fatalf("unexpected record %+v", last)
		}
	})

	t.Run("log channel without gateway", func(t *testing.T) {
		svc := NewNotificationService(store.Notifications, store.Users, nil, nil, clk)
		if err := svc.Notify(ctx, user.ID, models.NotifyPaymentPending, "Payment received", "ok"); err != nil {
			t.Fatalf("notify: %v", err)
		}
		svc.Wait()
		list, _ := svc.ListForUser(ctx, user.ID)
		if last := list[len(list)-1]; last.Channel != "log" {
			t.Fatalf("expected log channel, got %q", last.Channel)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := NewNotificationService(store.Notifications, store.Users, nil, nil, clk)
		if err := svc.Notify(ctx, primitive.NewObjectID(), models.NotifyPaymentPending, "x", "y"); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("admin alerts", func(t *testing.T) {
		admin := &fakeAdmin{}
		svc := NewNotificationService(store.Notifications, store.Users, nil, admin, clk)
		if err := svc.NotifyAdmin(ctx, "new payment"); err != nil {
			t.Fatalf("notify admin: %v", err)
		}
		svc.Wait()
		if len(admin.messages) != 1 || admin.messages[0] != "new payment" {
			t.Fatalf("unexpected admin messages %v", admin.messages)
		}
		if err := NewNotificationService(store.Notifications, store.Users, nil, nil, clk).NotifyAdmin(ctx, "x"); err != nil {
			t.Fatalf("expected nil admin channel to log only, got %v", err)
		}
	})
}

// blockingGateway holds every send until release is closed.
type blockingGateway struct {
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (g *blockingGateway) SendSMS(ctx context.Context, _, _ string) (string, error) {
	close(g.started)
	<-g.release
	g.ctxErr = ctx.Err()
	return "msg-slow", nil
}

func TestNotifyDoesNotWaitForGateway(t *testing.T) {
	t.Parallel()

	store := memory.NewStore().Repositories()
	user := &models.User{ID: primitive.NewObjectID(), Email: "b@example.com", PhoneNumber: "+584120000002"}
	if err := store.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewNotificationService(store.Notifications, store.Users, gw, nil, clock.NewManual(fixtureStart))

	reqCtx, cancel := context.WithCancel(context.Background())
	if err := svc.Notify(reqCtx, user.ID, models.NotifyPaymentConfirmed, "Payment confirmed", "tickets 002"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	cancel()
	<-gw.started

	list, err := svc.ListForUser(context.Background(), user.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected nothing recorded while the gateway is busy, got %d %v", len(list), err)
	}

	close(gw.release)
	svc.Wait()
	if gw.ctxErr != nil {
		t.Fatalf("delivery must outlive the request context, got %v", gw.ctxErr)
	}
	list, err = svc.ListForUser(context.Background(), user.ID)
	if err != nil || len(list) != 1 || list[0].MessageID != "msg-slow" {
		t.Fatalf("expected the delivered message recorded, got %+v %v", list, err)
	}
}
