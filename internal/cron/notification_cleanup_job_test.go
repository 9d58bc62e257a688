package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/isokofarm/isoko-backend/pkg/logger"
)

type fakeCleanupRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeCleanupRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func testJobLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestNotificationCleanupUsesRetentionCutoff(t *testing.T) {
	repo := &fakeCleanupRepo{deleted: 7}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testJobLogger(),
		Repository: repo,
		Retention:  30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}

	frozen := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	job.(*notificationCleanupJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := frozen.Add(-30 * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestNotificationCleanupDefaultsRetention(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testJobLogger(),
		Repository: &fakeCleanupRepo{},
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if got := job.(*notificationCleanupJob).retention; got != defaultNotificationRetention {
		t.Fatalf("expected default retention, got %s", got)
	}
}

func TestNotificationCleanupPropagatesError(t *testing.T) {
	repo := &fakeCleanupRepo{err: errors.New("db down")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testJobLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
