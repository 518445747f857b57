package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/sportmate/internal/models"
	"github.com/atinyakov/sportmate/internal/repository"
	"github.com/atinyakov/sportmate/internal/storage"
)

// memStore is an in-memory storage.Store for tests.
type memStore struct {
	m map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, key string, value []byte) error {
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := s.m[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	delete(s.m, key)
	return nil
}

// flakyStore fails every Save on one key, to simulate an I/O fault.
type flakyStore struct {
	storage.Store
	failKey string
}

func (f *flakyStore) Save(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, key, value)
}

// fakeUI records navigation transitions and notifications.
type fakeUI struct {
	home, auth int
	messages   []string
}

func (f *fakeUI) Home()             { f.home++ }
func (f *fakeUI) Auth()             { f.auth++ }
func (f *fakeUI) Notify(msg string) { f.messages = append(f.messages, msg) }

func (f *fakeUI) lastMessage() string {
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestApp(t *testing.T) (*App, *fakeUI, *fakeClock) {
	t.Helper()
	ui := &fakeUI{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	app := New(repository.New(newMemStore()), zap.NewNop(), ui, ui)
	app.now = clock.Now
	return app, ui, clock
}

func signup(t *testing.T, app *App, fullname, username, password string) int64 {
	t.Helper()
	require.NoError(t, app.Signup(context.Background(), fullname, username, password))
	s := app.Session()
	require.NotNil(t, s)
	return s.UserID
}

func createEvent(t *testing.T, app *App, title string, max int, start time.Time) *models.Event {
	t.Helper()
	s := app.Session()
	require.NotNil(t, s)
	ev, err := app.CreateEvent(context.Background(), models.CreateEvent{
		Title:           title,
		EventType:       models.Football,
		StartDate:       start,
		EndDate:         start.Add(2 * time.Hour),
		MaxParticipants: max,
	}, s.UserID)
	require.NoError(t, err)
	return ev
}

func TestSignupThenLogin(t *testing.T) {
	app, ui, _ := newTestApp(t)
	ctx := context.Background()

	id := signup(t, app, "Alice A", "alice", "pw1")
	assert.Equal(t, 1, ui.home, "signup should navigate home via login")

	require.NoError(t, app.Logout(ctx))
	assert.Nil(t, app.Session())

	require.NoError(t, app.Login(ctx, "alice", "pw1"))
	s := app.Session()
	require.NotNil(t, s)
	assert.Equal(t, id, s.UserID)
	assert.Equal(t, "alice", s.Username)
}

func TestSignupDuplicateUser(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "A", "bob", "x")
	err := app.Signup(ctx, "B", "bob", "y")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Len(t, app.Users(), 1, "failed signup must not grow the collection")
}

func TestSignupTrimsUsername(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "A", "  carol  ", "pw")
	users := app.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)

	// the trimmed and untrimmed spellings are the same user
	err := app.Signup(ctx, "B", "carol", "other")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	require.NoError(t, app.Login(ctx, " carol ", "pw"))
}

func TestLoginErrors(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	signup(t, app, "A", "dave", "secret")
	require.NoError(t, app.Logout(ctx))

	assert.ErrorIs(t, app.Login(ctx, "nobody", "secret"), ErrInvalidUsername)
	assert.ErrorIs(t, app.Login(ctx, "dave", "wrong"), ErrInvalidPassword)
	assert.Nil(t, app.Session())
}

func TestLogoutIsIdempotent(t *testing.T) {
	app, ui, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Logout(ctx))
	signup(t, app, "A", "erin", "pw")
	require.NoError(t, app.Logout(ctx))
	require.NoError(t, app.Logout(ctx))
	assert.Nil(t, app.Session())
	assert.Equal(t, 3, ui.auth)
}

func TestCreateEventRequiresSession(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, err := app.CreateEvent(context.Background(), models.CreateEvent{Title: "x"}, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, app.Events())
}

func TestJoinEventCapacity(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "5v5", 2, clock.t.Add(24*time.Hour))

	require.NoError(t, app.JoinEvent(ctx, ev.ID, 201))
	require.NoError(t, app.JoinEvent(ctx, ev.ID, 202))

	err := app.JoinEvent(ctx, ev.ID, 203)
	assert.ErrorIs(t, err, ErrEventFull)

	events := app.Events()
	require.Len(t, events, 1)
	assert.Equal(t, []int64{201, 202}, events[0].Participants)
}

func TestJoinEventTwice(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "Open", 10, clock.t.Add(24*time.Hour))

	require.NoError(t, app.JoinEvent(ctx, ev.ID, 201))
	err := app.JoinEvent(ctx, ev.ID, 201)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Equal(t, []int64{201}, app.Events()[0].Participants)
}

func TestJoinEventStaleReference(t *testing.T) {
	app, _, _ := newTestApp(t)
	err := app.JoinEvent(context.Background(), 12345, 1)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestLeaveEvent(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	userID := signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "Run", 10, clock.t.Add(24*time.Hour))

	assert.ErrorIs(t, app.LeaveEvent(ctx, ev.ID), ErrNotJoined)
	assert.ErrorIs(t, app.LeaveEvent(ctx, 999), ErrEventNotFound)

	require.NoError(t, app.JoinEvent(ctx, ev.ID, userID))
	require.NoError(t, app.LeaveEvent(ctx, ev.ID))
	assert.Empty(t, app.Events()[0].Participants)

	require.NoError(t, app.Logout(ctx))
	assert.ErrorIs(t, app.LeaveEvent(ctx, ev.ID), ErrUnauthenticated)
}

func TestLeaveEventAlreadyStarted(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	userID := signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "Run", 10, clock.t.Add(time.Hour))
	require.NoError(t, app.JoinEvent(ctx, ev.ID, userID))

	clock.t = clock.t.Add(2 * time.Hour)
	err := app.LeaveEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrEventAlreadyStarted)
	assert.Equal(t, []int64{userID}, app.Events()[0].Participants)
}

func TestFailedPersistLeavesMemoryUnchanged(t *testing.T) {
	ui := &fakeUI{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	flaky := &flakyStore{Store: newMemStore()}
	app := New(repository.New(flaky), zap.NewNop(), ui, ui)
	app.now = clock.Now

	ctx := context.Background()
	signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "Run", 10, clock.t.Add(24*time.Hour))

	flaky.failKey = repository.KeyEvents
	err := app.JoinEvent(ctx, ev.ID, 201)
	require.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, app.Events()[0].Participants, "failed persist must not commit")

	// retry after the fault clears
	flaky.failKey = ""
	require.NoError(t, app.JoinEvent(ctx, ev.ID, 201))
	assert.Equal(t, []int64{201}, app.Events()[0].Participants)
}

func TestRequestLifecycle(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	aliceID := signup(t, app, "Alice", "alice", "pw")
	ev := createEvent(t, app, "5v5 Football", 2, clock.t.Add(24*time.Hour))
	require.NoError(t, app.Logout(ctx))

	bobID := signup(t, app, "Bob", "bob", "pw")
	req, err := app.CreateRequest(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, bobID, req.RequesterID)
	require.NoError(t, app.Logout(ctx))

	require.NoError(t, app.Login(ctx, "alice", "pw"))
	pending := app.RequestsForOrganizer(aliceID)
	require.Len(t, pending, 1)

	require.NoError(t, app.ResolveRequest(ctx, req.ID, Approve))
	requests := app.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusApproved, requests[0].Status)
	assert.Contains(t, app.Events()[0].Participants, bobID)
	assert.Empty(t, app.RequestsForOrganizer(aliceID))

	require.NoError(t, app.Logout(ctx))
	require.NoError(t, app.Login(ctx, "bob", "pw"))
	_, err = app.CreateRequest(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestResolveRequestGuards(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Alice", "alice", "pw")
	ev := createEvent(t, app, "Open", 10, clock.t.Add(24*time.Hour))
	require.NoError(t, app.Logout(ctx))

	signup(t, app, "Bob", "bob", "pw")
	req, err := app.CreateRequest(ctx, ev.ID)
	require.NoError(t, err)

	// bob is not the organizer
	assert.ErrorIs(t, app.ResolveRequest(ctx, req.ID, Approve), ErrNotOrganizer)
	assert.ErrorIs(t, app.ResolveRequest(ctx, 999, Approve), ErrRequestNotFound)

	require.NoError(t, app.Logout(ctx))
	assert.ErrorIs(t, app.ResolveRequest(ctx, req.ID, Approve), ErrUnauthenticated)

	require.NoError(t, app.Login(ctx, "alice", "pw"))
	require.NoError(t, app.ResolveRequest(ctx, req.ID, Reject))
	assert.Equal(t, models.StatusRejected, app.Requests()[0].Status)

	// resolved requests are terminal
	assert.ErrorIs(t, app.ResolveRequest(ctx, req.ID, Approve), ErrRequestAlreadyResolved)
	assert.ErrorIs(t, app.ResolveRequest(ctx, req.ID, Reject), ErrRequestAlreadyResolved)
	assert.NotContains(t, app.Events()[0].Participants, app.Requests()[0].RequesterID)
}

func TestApproveFullEvent(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Alice", "alice", "pw")
	ev := createEvent(t, app, "Duo", 1, clock.t.Add(24*time.Hour))
	require.NoError(t, app.Logout(ctx))

	signup(t, app, "Bob", "bob", "pw")
	req, err := app.CreateRequest(ctx, ev.ID)
	require.NoError(t, err)
	require.NoError(t, app.Logout(ctx))

	require.NoError(t, app.Login(ctx, "alice", "pw"))
	require.NoError(t, app.JoinEvent(ctx, ev.ID, 999))

	err = app.ResolveRequest(ctx, req.ID, Approve)
	assert.ErrorIs(t, err, ErrEventFull)
	assert.Equal(t, models.StatusPending, app.Requests()[0].Status,
		"a failed approval must not resolve the request")
}

func TestDistinctIDsOnFrozenClock(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "A", "u1", "pw")
	require.NoError(t, app.Logout(ctx))
	signup(t, app, "B", "u2", "pw")

	users := app.Users()
	require.Len(t, users, 2)
	assert.NotEqual(t, users[0].ID, users[1].ID)
}

func TestInitRestoresState(t *testing.T) {
	store := newMemStore()
	repo := repository.New(store)
	ctx := context.Background()

	require.NoError(t, repo.SaveUsers(ctx, []models.User{{ID: 1, Username: "alice"}}))
	require.NoError(t, repo.SaveEvents(ctx, []models.Event{{ID: 2, Title: "Run", Participants: []int64{}}}))
	require.NoError(t, repo.SaveRequests(ctx, []models.EventRequest{{ID: 3, EventID: 2, RequesterID: 1, Status: models.StatusPending}}))
	require.NoError(t, repo.SaveSession(ctx, models.Session{UserID: 1, Username: "alice"}))

	ui := &fakeUI{}
	app := New(repo, zap.NewNop(), ui, ui)
	require.NoError(t, app.Init(ctx))

	require.NotNil(t, app.Session())
	assert.Equal(t, 1, ui.home, "a persisted session redirects to home")
	assert.Len(t, app.Users(), 1)
	assert.Len(t, app.Events(), 1)
	assert.Len(t, app.Requests(), 1)
	assert.Equal(t, Loading{}, app.LoadingState())
}

func TestInitWithoutSession(t *testing.T) {
	ui := &fakeUI{}
	app := New(repository.New(newMemStore()), zap.NewNop(), ui, ui)
	require.NoError(t, app.Init(context.Background()))

	assert.Nil(t, app.Session())
	assert.Zero(t, ui.home)
	assert.False(t, app.IsLoggedIn())
}

func TestReset(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Alice", "alice", "pw")
	createEvent(t, app, "Run", 10, clock.t.Add(24*time.Hour))

	require.NoError(t, app.Reset(ctx))
	assert.Nil(t, app.Session())
	assert.Empty(t, app.Users())
	assert.Empty(t, app.Events())
	assert.Empty(t, app.Requests())

	// a fresh Init sees the wiped state
	require.NoError(t, app.Init(ctx))
	assert.Nil(t, app.Session())
	assert.Empty(t, app.Users())
}

func TestMyEvents(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	aliceID := signup(t, app, "Alice", "alice", "pw")
	organized := createEvent(t, app, "Mine", 10, clock.t.Add(24*time.Hour))
	require.NoError(t, app.Logout(ctx))

	bobID := signup(t, app, "Bob", "bob", "pw")
	joined := createEvent(t, app, "Bob's", 10, clock.t.Add(24*time.Hour))
	require.NoError(t, app.JoinEvent(ctx, joined.ID, aliceID))

	mine := app.MyEvents(aliceID)
	require.Len(t, mine, 2)
	assert.Equal(t, organized.ID, mine[0].ID)
	assert.Equal(t, joined.ID, mine[1].ID)

	assert.Len(t, app.MyEvents(bobID), 1)
}

func TestUserByID(t *testing.T) {
	app, _, _ := newTestApp(t)
	id := signup(t, app, "Alice A", "alice", "pw")

	u, ok := app.UserByID(id)
	require.True(t, ok)
	assert.Equal(t, "Alice A", u.Fullname)

	_, ok = app.UserByID(999)
	assert.False(t, ok)
}

func TestNotificationsMirrorAlerts(t *testing.T) {
	app, ui, _ := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "A", "bob", "x")
	require.Error(t, app.Signup(ctx, "B", "bob", "y"))
	assert.Equal(t, ErrDuplicateUser.Error(), ui.lastMessage())
}

func TestSnapshotsAreCopies(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	signup(t, app, "Org", "org", "pw")
	ev := createEvent(t, app, "Run", 10, clock.t.Add(24*time.Hour))
	require.NoError(t, app.JoinEvent(ctx, ev.ID, 201))

	snap := app.Events()
	snap[0].Participants[0] = 777
	snap[0].Title = "mutated"

	events := app.Events()
	assert.Equal(t, []int64{201}, events[0].Participants)
	assert.Equal(t, "Run", events[0].Title)
}
