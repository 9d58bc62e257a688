package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

type stubServiceRepo struct {
	rows       []models.Notification
	next       *pagination.Cursor
	listParams listNotificationsParams
	mark       notificationMarkResult
	markedAll  int64
}

func (s *stubServiceRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubServiceRepo) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (s *stubServiceRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	s.listParams = params
	return s.rows, s.next, nil
}

func (s *stubServiceRepo) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 3, nil
}

func (s *stubServiceRepo) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return s.mark, nil
}

func (s *stubServiceRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	return s.markedAll, nil
}

func (s *stubServiceRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestListEncodesNextCursor(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubServiceRepo{
		rows: []models.Notification{{ID: uuid.New()}},
		next: next,
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Cursor == "" {
		t.Fatal("expected encoded cursor")
	}
	decoded, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("cursor does not round-trip: %v", err)
	}
	if decoded.ID != next.ID {
		t.Fatal("cursor id mismatch")
	}
	if repo.listParams.Limit != 10 {
		t.Fatalf("limit must pass through untouched, got %d", repo.listParams.Limit)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc, _ := NewService(&stubServiceRepo{})

	_, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New(), Cursor: "not-a-cursor"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkReadUnknownNotificationNotFound(t *testing.T) {
	svc, _ := NewService(&stubServiceRepo{mark: notificationMarkResult{Found: false}})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkReadAlreadyReadSucceeds(t *testing.T) {
	svc, _ := NewService(&stubServiceRepo{mark: notificationMarkResult{Found: true, Updated: false}})

	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
}

func TestMarkAllReadReturnsCount(t *testing.T) {
	svc, _ := NewService(&stubServiceRepo{markedAll: 4})

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}
