package redis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/aptledger/internal/domain"
)

func receive(t *testing.T, updates <-chan *domain.DayRecord) *domain.DayRecord {
	t.Helper()
	select {
	case rec, ok := <-updates:
		require.True(t, ok, "updates closed early")
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return nil
	}
}

func TestDayFeedDeliversToSubscriber(t *testing.T) {
	client, _ := newMiniredis(t)

	feed := NewDayFeed(client, zerolog.Nop())
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "apt-1")
	require.NoError(t, err)
	defer sub.Close()

	at := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, feed.Publish(ctx, &domain.DayRecord{ApartmentID: "apt-2", Year: 2025, Month: 5, Day: 1, Status: domain.DayOccupied, UpdatedAt: at}))
	require.NoError(t, feed.Publish(ctx, &domain.DayRecord{ApartmentID: "apt-1", Year: 2025, Month: 5, Day: 14, Status: domain.DayCleaning, Notes: "linen", UpdatedAt: at}))

	rec := receive(t, sub.Updates())
	assert.Equal(t, "apt-1", rec.ApartmentID)
	assert.Equal(t, domain.DayKey{Year: 2025, Month: 5, Day: 14}, rec.Key())
	assert.Equal(t, domain.DayCleaning, rec.Status)
	assert.Equal(t, "linen", rec.Notes)
	assert.True(t, rec.UpdatedAt.Equal(at))
}

func TestDayFeedSkipsMalformedMessages(t *testing.T) {
	client, mr := newMiniredis(t)

	feed := NewDayFeed(client, zerolog.Nop())
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "apt-1")
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(feedChannelPrefix+"apt-1", "not json")
	mr.Publish(feedChannelPrefix+"apt-1", `{"apartmentId":"apt-1","status":"booked"}`)
	require.NoError(t, feed.Publish(ctx, &domain.DayRecord{ApartmentID: "apt-1", Year: 2025, Month: 0, Day: 3, Status: domain.DayMaintenance}))

	rec := receive(t, sub.Updates())
	assert.Equal(t, 3, rec.Day)
	assert.Equal(t, domain.DayMaintenance, rec.Status)
}

func TestDayFeedCloseEndsUpdates(t *testing.T) {
	client, _ := newMiniredis(t)

	feed := NewDayFeed(client, zerolog.Nop())
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "apt-1")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Updates()
	assert.False(t, ok, "expected updates to be closed")

	require.NoError(t, feed.Publish(ctx, &domain.DayRecord{ApartmentID: "apt-1", Year: 2025, Month: 0, Day: 1}))
}

func TestDayFeedContextCancelEndsUpdates(t *testing.T) {
	client, _ := newMiniredis(t)

	feed := NewDayFeed(client, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := feed.Subscribe(ctx, "apt-1")
	require.NoError(t, err)
	defer sub.Close()

	cancel()
	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("expected updates to close after cancel")
	}
}

func TestDayFeedSubscribeFailsWhenDown(t *testing.T) {
	client, mr := newMiniredis(t)
	mr.Close()

	_, err := NewDayFeed(client, zerolog.Nop()).Subscribe(context.Background(), "apt-1")
	assert.Error(t, err)
}
