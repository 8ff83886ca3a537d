package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

func sampleReservation() *model.Reservation {
	return &model.Reservation{
		ID:         12,
		Code:       "9b2f",
		LocationID: 1,
		Type:       model.TypeTable,
		TableIDs:   []uint64{2, 3},
		Customer:   model.Customer{Name: "Ada Lovelace", Phone: "+100200300", Email: "ada@example.com"},
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Window:     timeslot.Slot{Start: timeslot.MustClock("18:30"), End: timeslot.MustClock("20:30")},
		Guests:     5,
		Status:     model.StatusConfirmed,
	}
}

func TestNewEventSnapshotsReservation(t *testing.T) {
	r := sampleReservation()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	ev := NewEvent(EventReservationStatusChanged, r, at)
	r.TableIDs[0] = 99

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "2025-03-14", ev.Date)
	assert.Equal(t, "18:30", ev.StartTime)
	assert.Equal(t, "20:30", ev.EndTime)
	assert.Equal(t, []uint64{2, 3}, ev.TableIDs)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
}

func TestRenderNotification(t *testing.T) {
	ev := NewEvent(EventReservationStatusChanged, sampleReservation(), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	ev.PreviousStatus = "pending"
	ev.Actor = "user:7"
	ev.Reason = "called back"

	line := RenderNotification(ev)
	assert.True(t, strings.HasPrefix(line, "[2025-03-10T09:00:00Z] Reservation confirmed | reservation_id=12 | code=9b2f"), line)
	assert.Contains(t, line, "| 2025-03-14 18:30-20:30 | guests=5 | status=confirmed | from=pending | by=user:7 | reason=\"called back\"")
	assert.Contains(t, line, "customer=\"Ada Lovelace\" phone=+100200300 email=ada@example.com")
	assert.True(t, strings.HasSuffix(line, "| tables=[2,3]"), line)
}

func TestHandleAppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := NewNotificationConsumer("amqp://unused", "reservation.events", dir)

	for _, name := range []string{EventReservationCreated, EventReservationUpdated} {
		body, err := json.Marshal(NewEvent(name, sampleReservation(), time.Now()))
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, "notifications.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Reservation received")
	assert.Contains(t, lines[1], "Reservation updated")
}

func TestHandleRejectsBadMessages(t *testing.T) {
	c := NewNotificationConsumer("amqp://unused", "q", t.TempDir())
	assert.ErrorIs(t, c.Handle([]byte("not json")), ErrMalformedEvent)
	assert.ErrorIs(t, c.Handle([]byte(`{"name":""}`)), ErrMalformedEvent)
}

type settled struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (s *settled) Ack(bool) error { s.acked = true; return nil }

func (s *settled) Nack(_, requeue bool) error {
	s.nacked, s.requeued = true, requeue
	return nil
}

func TestSettleRequeuesWriteFailures(t *testing.T) {
	// a regular file where the log directory should be makes every write fail
	blocked := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))
	c := NewNotificationConsumer("amqp://unused", "q", blocked)
	c.requeueDelay = 0

	body, err := json.Marshal(NewEvent(EventReservationCreated, sampleReservation(), time.Now()))
	require.NoError(t, err)
	herr := c.Handle(body)
	require.Error(t, herr)
	assert.NotErrorIs(t, herr, ErrMalformedEvent)

	var d settled
	c.settle(context.Background(), &d, "m1", herr)
	assert.Equal(t, settled{nacked: true, requeued: true}, d)
}

func TestSettleDropsMalformedAndAcksHandled(t *testing.T) {
	c := NewNotificationConsumer("amqp://unused", "q", t.TempDir())

	var bad settled
	c.settle(context.Background(), &bad, "m1", c.Handle([]byte("not json")))
	assert.Equal(t, settled{nacked: true}, bad)

	body, err := json.Marshal(NewEvent(EventReservationCreated, sampleReservation(), time.Now()))
	require.NoError(t, err)
	var ok settled
	c.settle(context.Background(), &ok, "m2", c.Handle(body))
	assert.Equal(t, settled{acked: true}, ok)
}
