package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"medbook/internal/notifications/repository"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
)

type NotificationService interface {
	Notify(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, receiverID string, limit int, offset int64) ([]*model.NotificationView, int64, error)
	UnreadCount(ctx context.Context, receiverID string) (int64, error)
	MarkRead(ctx context.Context, receiverID, id string) error
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	cfg  *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	return &notificationService{repo: repo, cfg: cfg}
}

func (s *notificationService) Notify(ctx context.Context, n *model.Notification) error {
	if !n.Type.Valid() {
		return apperrors.InvalidInput("Unknown notification type: " + string(n.Type))
	}
	if n.ReceiverID == "" {
		return apperrors.InvalidInput("Notification receiver is required")
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return apperrors.Internal("Failed to store notification", err)
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, receiverID string, limit int, offset int64) ([]*model.NotificationView, int64, error) {
	views, err := s.repo.FindByReceiver(ctx, receiverID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list notifications", err)
	}

	count, err := s.repo.CountByReceiver(ctx, receiverID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count notifications", err)
	}

	return views, count, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, receiverID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, receiverID)
	if err != nil {
		return 0, apperrors.Internal("Failed to count unread notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, receiverID, id string) error {
	if err := s.repo.MarkRead(ctx, id, receiverID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		return apperrors.Internal("Failed to mark notification read", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, receiverID)
	if err != nil {
		return 0, apperrors.Internal("Failed to mark notifications read", err)
	}
	return count, nil
}
