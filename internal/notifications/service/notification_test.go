package service

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type mockNotificationRepository struct {
	createFunc      func(ctx context.Context, n *model.Notification) error
	markReadFunc    func(ctx context.Context, id string, receiverID string) error
	markAllReadFunc func(ctx context.Context, receiverID string) (int64, error)
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	return nil
}

func (m *mockNotificationRepository) FindByReceiver(ctx context.Context, receiverID string, limit int, offset int64) ([]*model.NotificationView, error) {
	return nil, nil
}

func (m *mockNotificationRepository) CountByReceiver(ctx context.Context, receiverID string) (int64, error) {
	return 0, nil
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	return 0, nil
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id string, receiverID string) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, id, receiverID)
	}
	return nil
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	if m.markAllReadFunc != nil {
		return m.markAllReadFunc(ctx, receiverID)
	}
	return 0, nil
}

func newTestService(repo *mockNotificationRepository) NotificationService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
	return NewNotificationService(repo, cfg)
}

func TestNotify_RejectsUnknownType(t *testing.T) {
	svc := newTestService(&mockNotificationRepository{})

	err := svc.Notify(context.Background(), &model.Notification{
		Type:       "carrier_pigeon",
		ReceiverID: "doc-1",
	})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNotify_RequiresReceiver(t *testing.T) {
	svc := newTestService(&mockNotificationRepository{})

	err := svc.Notify(context.Background(), &model.Notification{
		Type: model.NotifyAppointmentRequest,
	})
	if err == nil {
		t.Fatal("expected error for missing receiver")
	}
}

func TestMarkRead_ScopedToReceiver(t *testing.T) {
	repo := &mockNotificationRepository{
		markReadFunc: func(ctx context.Context, id string, receiverID string) error {
			if receiverID != "doc-1" {
				return mongo.ErrNoDocuments
			}
			return nil
		},
	}
	svc := newTestService(repo)

	if err := svc.MarkRead(context.Background(), "doc-1", "n-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.MarkRead(context.Background(), "doc-2", "n-1")
	if err == nil {
		t.Fatal("expected not found for another receiver's notification")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &mockNotificationRepository{
		markAllReadFunc: func(ctx context.Context, receiverID string) (int64, error) {
			return 4, nil
		},
	}
	svc := newTestService(repo)

	count, err := svc.MarkAllRead(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 marked, got %d", count)
	}
}
