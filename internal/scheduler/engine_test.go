package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-reminder-bot/internal/models"
	"telegram-reminder-bot/internal/session"
)

type fakeMessenger struct {
	sent   []string
	sentTo []int64
	err    error
}

func (m *fakeMessenger) Send(chatID int64, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	m.sentTo = append(m.sentTo, chatID)
	return nil
}

type fakeStore struct {
	active  map[int64]bool
	deleted []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[int64]bool)}
}

func (s *fakeStore) IsActive(_ context.Context, id int64) (bool, error) {
	return s.active[id], nil
}

func (s *fakeStore) SoftDelete(_ context.Context, id, _ int64) (int64, error) {
	s.deleted = append(s.deleted, id)
	if !s.active[id] {
		return 0, nil
	}
	s.active[id] = false
	return 1, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeMessenger, *fakeStore, *session.Store) {
	t.Helper()
	messenger := &fakeMessenger{}
	store := newFakeStore()
	pending := session.NewStore()
	engine, err := New(messenger, store, pending)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Shutdown() })
	return engine, messenger, store, pending
}

func futureOneShot(id, chatID int64, in time.Duration) *models.Reminder {
	at := time.Now().Add(in)
	return &models.Reminder{ID: id, ChatID: chatID, Message: "comprar pan", FireAt: &at, Active: true}
}

func TestScheduleOneShotRejectsPastDate(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	at := time.Now().Add(-time.Minute)
	r := &models.Reminder{ID: 1, ChatID: 10, Message: "tarde", FireAt: &at}
	_, err := engine.ScheduleOneShot(r)
	assert.ErrorIs(t, err, ErrPastDate)
	assert.Empty(t, engine.handles)
}

func TestScheduleOneShotArmsOneHandle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	h, err := engine.ScheduleOneShot(futureOneShot(1, 10, time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, Handle{}, h)
	assert.Len(t, engine.handles, 1)
}

func TestReschedulingReplacesHandle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	first, err := engine.ScheduleOneShot(futureOneShot(1, 10, time.Hour))
	require.NoError(t, err)
	second, err := engine.ScheduleOneShot(futureOneShot(1, 10, 2*time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, engine.handles, 1)
	assert.Equal(t, second, engine.handles[1])
}

func TestCancelReleasesHandle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	h, err := engine.ScheduleOneShot(futureOneShot(1, 10, time.Hour))
	require.NoError(t, err)
	engine.Cancel(h)
	assert.Empty(t, engine.handles)

	// Cancelling again is harmless.
	engine.Cancel(h)
	engine.CancelReminder(1)
}

func TestScheduleRecurringRejectsInvalidRule(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	r := &models.Reminder{ID: 2, ChatID: 10, Message: "agua", RecurrenceRule: "not a rule", IsRecurring: true}
	_, err := engine.ScheduleRecurring(r)
	assert.Error(t, err)
	assert.Empty(t, engine.handles)
}

func TestScheduleRecurringArms(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	r := &models.Reminder{ID: 2, ChatID: 10, Message: "agua", RecurrenceRule: "00 10 * * *", IsRecurring: true}
	_, err := engine.ScheduleRecurring(r)
	require.NoError(t, err)
	assert.Len(t, engine.handles, 1)
}

func TestFireOneShotDeliversAndRetires(t *testing.T) {
	engine, messenger, store, _ := newTestEngine(t)
	store.active[1] = true

	_, err := engine.ScheduleOneShot(futureOneShot(1, 10, time.Hour))
	require.NoError(t, err)

	engine.fireOneShot(1, 10, "comprar pan")

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "⏰ Recordatorio: comprar pan", messenger.sent[0])
	assert.EqualValues(t, 10, messenger.sentTo[0])
	assert.Equal(t, []int64{1}, store.deleted)
	assert.Empty(t, engine.handles)
}

func TestFireRecurringSuppressedWhenInactive(t *testing.T) {
	engine, messenger, store, pending := newTestEngine(t)
	store.active[2] = false

	engine.fireRecurring(2, 10, "agua")

	assert.Empty(t, messenger.sent)
	assert.Nil(t, pending.Get(10))
}

func TestFireRecurringPromptsAndSetsPendingConfirm(t *testing.T) {
	engine, messenger, store, pending := newTestEngine(t)
	store.active[2] = true

	engine.fireRecurring(2, 10, "agua")

	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "⏰ Recordatorio: agua")
	assert.Contains(t, messenger.sent[0], "(sí/no)")

	op := pending.Get(10)
	require.NotNil(t, op)
	assert.Equal(t, session.AwaitingRecurringConfirm, op.Kind)
	assert.EqualValues(t, 2, op.ReminderID)
}

func TestFireRecurringDeliveryFailureLeavesReminderAlone(t *testing.T) {
	engine, messenger, store, pending := newTestEngine(t)
	store.active[2] = true
	messenger.err = assert.AnError

	engine.fireRecurring(2, 10, "agua")

	assert.True(t, store.active[2])
	assert.Nil(t, pending.Get(10))
}
