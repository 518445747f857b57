// Package repository provides typed load/save operations for each
// persisted collection over the key-value store. Missing collections
// load as empty; a missing session loads as nil. Validation happens a
// layer up, in the state manager.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/sportmate/internal/models"
	"github.com/atinyakov/sportmate/internal/storage"
)

// Persisted state layout: four independent keys, JSON-encoded values.
const (
	KeySession  = "SESSION"
	KeyUsers    = "USERS"
	KeyEvents   = "EVENTS"
	KeyRequests = "EVENTS_REQUESTS"
)

// Repository wraps a storage.Store with typed accessors.
type Repository struct {
	store storage.Store
}

// New constructs a Repository over the given store.
func New(store storage.Store) *Repository {
	return &Repository{store: store}
}

func loadList[T any](ctx context.Context, store storage.Store, key string) ([]T, error) {
	b, err := store.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var list []T
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func saveList[T any](ctx context.Context, store storage.Store, key string, list []T) error {
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Save(ctx, key, b); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadUsers returns all users, or an empty slice if none were saved yet.
func (r *Repository) LoadUsers(ctx context.Context) ([]models.User, error) {
	return loadList[models.User](ctx, r.store, KeyUsers)
}

// SaveUsers overwrites the full user collection.
func (r *Repository) SaveUsers(ctx context.Context, users []models.User) error {
	return saveList(ctx, r.store, KeyUsers, users)
}

// LoadEvents returns all events, or an empty slice if none were saved yet.
func (r *Repository) LoadEvents(ctx context.Context) ([]models.Event, error) {
	return loadList[models.Event](ctx, r.store, KeyEvents)
}

// SaveEvents overwrites the full event collection.
func (r *Repository) SaveEvents(ctx context.Context, events []models.Event) error {
	return saveList(ctx, r.store, KeyEvents, events)
}

// LoadRequests returns all event requests, or an empty slice if none
// were saved yet.
func (r *Repository) LoadRequests(ctx context.Context) ([]models.EventRequest, error) {
	return loadList[models.EventRequest](ctx, r.store, KeyRequests)
}

// SaveRequests overwrites the full request collection.
func (r *Repository) SaveRequests(ctx context.Context, requests []models.EventRequest) error {
	return saveList(ctx, r.store, KeyRequests, requests)
}

// LoadSession returns the persisted session, or nil when none exists.
func (r *Repository) LoadSession(ctx context.Context) (*models.Session, error) {
	b, err := r.store.Load(ctx, KeySession)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeySession, err)
	}
	var s models.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeySession, err)
	}
	return &s, nil
}

// SaveSession persists the session under its fixed key.
func (r *Repository) SaveSession(ctx context.Context, s models.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeySession, err)
	}
	if err := r.store.Save(ctx, KeySession, b); err != nil {
		return fmt.Errorf("save %s: %w", KeySession, err)
	}
	return nil
}

// ClearSession removes any persisted session. Removing an absent
// session is not an error.
func (r *Repository) ClearSession(ctx context.Context) error {
	if err := r.store.Remove(ctx, KeySession); err != nil {
		return fmt.Errorf("clear %s: %w", KeySession, err)
	}
	return nil
}
