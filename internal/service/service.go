// Package service holds the application state manager: the in-memory
// snapshot of users, events, sessions, and join requests, and every
// mutation the presentation layer may perform on them. Mutations build
// the new state first, persist it, and only then commit it in memory,
// so a failed persist never leaves a partial change behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/sportmate/internal/models"
)

// Repository defines the persistence operations required by the state
// manager.
type Repository interface {
	LoadUsers(ctx context.Context) ([]models.User, error)
	SaveUsers(ctx context.Context, users []models.User) error
	LoadEvents(ctx context.Context) ([]models.Event, error)
	SaveEvents(ctx context.Context, events []models.Event) error
	LoadRequests(ctx context.Context) ([]models.EventRequest, error)
	SaveRequests(ctx context.Context, requests []models.EventRequest) error
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, s models.Session) error
	ClearSession(ctx context.Context) error
}

// Navigator is invoked after auth transitions so the presentation
// layer can switch screens.
type Navigator interface {
	// Home is called after a successful login or signup, and at startup
	// when a persisted session exists.
	Home()
	// Auth is called after logout.
	Auth()
}

// Notifier surfaces user-facing success and failure messages.
type Notifier interface {
	Notify(msg string)
}

// RequestAction selects the organizer's decision on a join request.
type RequestAction string

const (
	Approve RequestAction = "approve"
	Reject  RequestAction = "reject"
)

// Loading reports, per collection, whether the initial load is still
// in flight.
type Loading struct {
	Session  bool
	Users    bool
	Events   bool
	Requests bool
}

// App owns the authoritative in-memory snapshot of all four
// collections. It is the only writer; the presentation layer reads
// snapshots and invokes the named operations.
type App struct {
	repo   Repository
	log    *zap.Logger
	nav    Navigator
	notify Notifier

	now    func() time.Time
	lastID int64

	mu       sync.Mutex
	session  *models.Session
	users    []models.User
	events   []models.Event
	requests []models.EventRequest
	loading  Loading
}

// New constructs the state manager. nav and notify may be nil, in
// which case navigation and notification become no-ops.
func New(repo Repository, log *zap.Logger, nav Navigator, notify Notifier) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		repo:     repo,
		log:      log,
		nav:      nav,
		notify:   notify,
		now:      time.Now,
		users:    []models.User{},
		events:   []models.Event{},
		requests: []models.EventRequest{},
	}
}

func (a *App) goHome() {
	if a.nav != nil {
		a.nav.Home()
	}
}

func (a *App) goAuth() {
	if a.nav != nil {
		a.nav.Auth()
	}
}

func (a *App) tell(msg string) {
	if a.notify != nil {
		a.notify.Notify(msg)
	}
}

// fail reports an error to the user and returns it unchanged. Domain
// errors carry their own user-facing message; storage faults map to a
// generic one.
func (a *App) fail(err error) error {
	if errors.Is(err, ErrStorage) {
		a.tell("Something went wrong saving your changes. Please try again.")
	} else {
		a.tell(err.Error())
	}
	return err
}

// storageFault logs a persistence failure and wraps it so callers can
// match on ErrStorage.
func (a *App) storageFault(op string, err error) error {
	a.log.Error("persist failed", zap.String("op", op), zap.Error(err))
	return a.fail(fmt.Errorf("%w: %s: %w", ErrStorage, op, err))
}

// nextID returns a unique id based on the current wall clock in
// milliseconds, bumped when two ids land on the same tick.
func (a *App) nextID() int64 {
	id := a.now().UnixMilli()
	if id <= a.lastID {
		id = a.lastID + 1
	}
	a.lastID = id
	return id
}

// Init loads the four collections from storage. The session loads
// first since the login redirect depends on it; the remaining three
// load concurrently.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	a.loading = Loading{Session: true, Users: true, Events: true, Requests: true}
	a.mu.Unlock()

	session, err := a.repo.LoadSession(ctx)
	a.mu.Lock()
	if err != nil {
		a.loading = Loading{}
		a.mu.Unlock()
		a.log.Error("unable to load session", zap.Error(err))
		return fmt.Errorf("%w: load session: %w", ErrStorage, err)
	}
	a.loading.Session = false
	a.session = session
	a.mu.Unlock()
	if session != nil {
		a.goHome()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := a.repo.LoadUsers(gctx)
		a.commitUsers(users, err)
		return err
	})
	g.Go(func() error {
		events, err := a.repo.LoadEvents(gctx)
		a.commitEvents(events, err)
		return err
	})
	g.Go(func() error {
		requests, err := a.repo.LoadRequests(gctx)
		a.commitRequests(requests, err)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: load collections: %w", ErrStorage, err)
	}
	return nil
}

func (a *App) commitUsers(users []models.User, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading.Users = false
	if err != nil {
		a.log.Error("unable to load users", zap.Error(err))
		return
	}
	a.users = users
}

func (a *App) commitEvents(events []models.Event, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading.Events = false
	if err != nil {
		a.log.Error("unable to load events", zap.Error(err))
		return
	}
	a.events = events
}

func (a *App) commitRequests(requests []models.EventRequest, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading.Requests = false
	if err != nil {
		a.log.Error("unable to load requests", zap.Error(err))
		return
	}
	a.requests = requests
}

// Signup registers a new user and logs them in. The username is
// trimmed before the duplicate check and before storage; the check is
// a case-sensitive exact match.
func (a *App) Signup(ctx context.Context, fullname, username, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	username = strings.TrimSpace(username)
	for _, u := range a.users {
		if u.Username == username {
			return a.fail(ErrDuplicateUser)
		}
	}

	user := models.User{
		ID:       a.nextID(),
		Fullname: fullname,
		Username: username,
		Password: password,
	}
	users := append(slices.Clone(a.users), user)
	if err := a.repo.SaveUsers(ctx, users); err != nil {
		return a.storageFault("save users", err)
	}
	a.users = users
	a.log.Info("user registered", zap.Int64("id", user.ID), zap.String("username", user.Username))

	return a.loginLocked(ctx, username, password)
}

// Login authenticates against the stored users and establishes the
// session. This is the sole path by which a session is created.
func (a *App) Login(ctx context.Context, username, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginLocked(ctx, username, password)
}

func (a *App) loginLocked(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	var user *models.User
	for i := range a.users {
		if a.users[i].Username == username {
			user = &a.users[i]
			break
		}
	}
	if user == nil {
		return a.fail(ErrInvalidUsername)
	}
	if user.Password != password {
		return a.fail(ErrInvalidPassword)
	}

	session := models.Session{UserID: user.ID, Username: user.Username}
	if err := a.repo.SaveSession(ctx, session); err != nil {
		return a.storageFault("save session", err)
	}
	a.session = &session
	a.log.Info("logged in", zap.Int64("userId", session.UserID))
	a.goHome()
	return nil
}

// Logout clears the persisted and in-memory session. Idempotent.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.repo.ClearSession(ctx); err != nil {
		return a.storageFault("clear session", err)
	}
	a.session = nil
	a.goAuth()
	return nil
}

// CreateEvent appends a new event organized by organizerID.
// Form-level validation (dates, capacity > 0) stays with the
// presentation layer.
func (a *App) CreateEvent(ctx context.Context, body models.CreateEvent, organizerID int64) (*models.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, a.fail(ErrUnauthenticated)
	}

	event := models.Event{
		ID:              a.nextID(),
		Title:           body.Title,
		Description:     body.Description,
		BannerURL:       body.BannerURL,
		EventType:       body.EventType,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		MaxParticipants: body.MaxParticipants,
		OrganizedBy:     organizerID,
		Participants:    []int64{},
	}
	events := append(slices.Clone(a.events), event)
	if err := a.repo.SaveEvents(ctx, events); err != nil {
		return nil, a.storageFault("save events", err)
	}
	a.events = events
	a.log.Info("event created", zap.Int64("id", event.ID), zap.String("title", event.Title))
	a.tell("Event created successfully.")
	return &event, nil
}

// JoinEvent appends participantID to the event's participant list.
// Joining a full event fails with ErrEventFull.
func (a *App) JoinEvent(ctx context.Context, eventID, participantID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.joinLocked(ctx, eventID, participantID); err != nil {
		return a.fail(err)
	}
	a.tell("You have successfully joined the event.")
	return nil
}

func (a *App) joinLocked(ctx context.Context, eventID, participantID int64) error {
	idx := slices.IndexFunc(a.events, func(e models.Event) bool { return e.ID == eventID })
	if idx == -1 {
		return ErrEventNotFound
	}
	event := a.events[idx]
	if slices.Contains(event.Participants, participantID) {
		return ErrAlreadyJoined
	}
	if len(event.Participants) >= event.MaxParticipants {
		return ErrEventFull
	}

	events := slices.Clone(a.events)
	events[idx].Participants = append(slices.Clone(event.Participants), participantID)
	if err := a.repo.SaveEvents(ctx, events); err != nil {
		a.log.Error("persist failed", zap.String("op", "save events"), zap.Error(err))
		return fmt.Errorf("%w: save events: %w", ErrStorage, err)
	}
	a.events = events
	a.log.Info("joined event", zap.Int64("eventId", eventID), zap.Int64("participantId", participantID))
	return nil
}

// LeaveEvent removes the session user from the event's participants.
// Leaving is only possible before the event starts.
func (a *App) LeaveEvent(ctx context.Context, eventID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return a.fail(ErrUnauthenticated)
	}

	idx := slices.IndexFunc(a.events, func(e models.Event) bool { return e.ID == eventID })
	if idx == -1 {
		return a.fail(ErrEventNotFound)
	}
	event := a.events[idx]
	if !slices.Contains(event.Participants, a.session.UserID) {
		return a.fail(ErrNotJoined)
	}
	if !event.StartDate.After(a.now()) {
		return a.fail(ErrEventAlreadyStarted)
	}

	events := slices.Clone(a.events)
	remaining := make([]int64, 0, len(event.Participants)-1)
	for _, p := range event.Participants {
		if p != a.session.UserID {
			remaining = append(remaining, p)
		}
	}
	events[idx].Participants = remaining
	if err := a.repo.SaveEvents(ctx, events); err != nil {
		return a.storageFault("save events", err)
	}
	a.events = events
	if err := a.reloadEventsLocked(ctx); err != nil {
		return err
	}
	a.tell("You have successfully left the event.")
	return nil
}

// CreateRequest records the session user's ask to join an event. Only
// one request per (event, requester) pair is allowed, regardless of
// its status.
func (a *App) CreateRequest(ctx context.Context, eventID int64) (*models.EventRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, a.fail(ErrUnauthenticated)
	}

	for _, r := range a.requests {
		if r.EventID == eventID && r.RequesterID == a.session.UserID {
			return nil, a.fail(ErrDuplicateRequest)
		}
	}

	request := models.EventRequest{
		ID:          a.nextID(),
		EventID:     eventID,
		RequesterID: a.session.UserID,
		Status:      models.StatusPending,
		RequestedAt: a.now(),
	}
	requests := append(slices.Clone(a.requests), request)
	if err := a.repo.SaveRequests(ctx, requests); err != nil {
		return nil, a.storageFault("save requests", err)
	}
	a.requests = requests
	if err := a.reloadRequestsLocked(ctx); err != nil {
		return nil, err
	}
	a.log.Info("request created", zap.Int64("id", request.ID), zap.Int64("eventId", eventID))
	a.tell("Request created successfully.")
	return &request, nil
}

// ResolveRequest applies the organizer's decision to a pending
// request. Approval adds the requester to the event with the same
// rules as JoinEvent, so a full event fails the approval. Resolved
// requests are terminal.
func (a *App) ResolveRequest(ctx context.Context, requestID int64, action RequestAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return a.fail(ErrUnauthenticated)
	}

	idx := slices.IndexFunc(a.requests, func(r models.EventRequest) bool { return r.ID == requestID })
	if idx == -1 {
		return a.fail(ErrRequestNotFound)
	}
	request := a.requests[idx]
	if request.Status != models.StatusPending {
		return a.fail(ErrRequestAlreadyResolved)
	}

	eventIdx := slices.IndexFunc(a.events, func(e models.Event) bool { return e.ID == request.EventID })
	if eventIdx == -1 {
		return a.fail(ErrEventNotFound)
	}
	if a.events[eventIdx].OrganizedBy != a.session.UserID {
		return a.fail(ErrNotOrganizer)
	}

	status := models.StatusRejected
	if action == Approve {
		if err := a.joinLocked(ctx, request.EventID, request.RequesterID); err != nil {
			return a.fail(err)
		}
		status = models.StatusApproved
	}

	requests := slices.Clone(a.requests)
	requests[idx].Status = status
	if err := a.repo.SaveRequests(ctx, requests); err != nil {
		return a.storageFault("save requests", err)
	}
	a.requests = requests
	if err := a.reloadRequestsLocked(ctx); err != nil {
		return err
	}
	a.log.Info("request resolved",
		zap.Int64("id", requestID),
		zap.String("status", string(status)),
	)
	a.tell(fmt.Sprintf("Request %s successfully.", status))
	return nil
}

// ReloadEvents refreshes the in-memory events from storage.
func (a *App) ReloadEvents(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reloadEventsLocked(ctx)
}

func (a *App) reloadEventsLocked(ctx context.Context) error {
	a.loading.Events = true
	events, err := a.repo.LoadEvents(ctx)
	a.loading.Events = false
	if err != nil {
		a.log.Error("unable to load events", zap.Error(err))
		return fmt.Errorf("%w: load events: %w", ErrStorage, err)
	}
	a.events = events
	return nil
}

func (a *App) reloadRequestsLocked(ctx context.Context) error {
	a.loading.Requests = true
	requests, err := a.repo.LoadRequests(ctx)
	a.loading.Requests = false
	if err != nil {
		a.log.Error("unable to load requests", zap.Error(err))
		return fmt.Errorf("%w: load requests: %w", ErrStorage, err)
	}
	a.requests = requests
	return nil
}

// Reset wipes all four collections from storage and memory. Intended
// for tests and a fresh-install escape hatch.
func (a *App) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.repo.ClearSession(ctx); err != nil {
		return a.storageFault("clear session", err)
	}
	if err := a.repo.SaveUsers(ctx, []models.User{}); err != nil {
		return a.storageFault("save users", err)
	}
	if err := a.repo.SaveEvents(ctx, []models.Event{}); err != nil {
		return a.storageFault("save events", err)
	}
	if err := a.repo.SaveRequests(ctx, []models.EventRequest{}); err != nil {
		return a.storageFault("save requests", err)
	}
	a.session = nil
	a.users = []models.User{}
	a.events = []models.Event{}
	a.requests = []models.EventRequest{}
	a.log.Info("state reset")
	return nil
}

// Session returns a copy of the current session, or nil when logged out.
func (a *App) Session() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// IsLoggedIn reports whether a session exists.
func (a *App) IsLoggedIn() bool {
	return a.Session() != nil
}

// Users returns a snapshot of the user collection.
func (a *App) Users() []models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.users)
}

// Events returns a snapshot of the event collection.
func (a *App) Events() []models.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneEvents(a.events)
}

// Requests returns a snapshot of the request collection.
func (a *App) Requests() []models.EventRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.requests)
}

// LoadingState reports which collections are still loading.
func (a *App) LoadingState() Loading {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// UserByID looks up a user by id, for rendering requester names.
func (a *App) UserByID(id int64) (models.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// MyEvents returns the events the given user organizes or has joined.
func (a *App) MyEvents(userID int64) []models.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var mine []models.Event
	for _, e := range a.events {
		if e.OrganizedBy == userID || slices.Contains(e.Participants, userID) {
			mine = append(mine, cloneEvent(e))
		}
	}
	return mine
}

// RequestsForOrganizer returns pending requests targeting events the
// given user organizes.
func (a *App) RequestsForOrganizer(userID int64) []models.EventRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	organized := make(map[int64]bool)
	for _, e := range a.events {
		if e.OrganizedBy == userID {
			organized[e.ID] = true
		}
	}
	var pending []models.EventRequest
	for _, r := range a.requests {
		if r.Status == models.StatusPending && organized[r.EventID] {
			pending = append(pending, r)
		}
	}
	return pending
}

func cloneEvent(e models.Event) models.Event {
	e.Participants = slices.Clone(e.Participants)
	return e
}

func cloneEvents(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	for i, e := range events {
		out[i] = cloneEvent(e)
	}
	return out
}
