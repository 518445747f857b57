// Package models defines the core data structures for users, sessions,
// events, and join requests.
package models

import "time"

// User represents a registered account on this device.
type User struct {
	// ID is the unique identifier for the user (creation timestamp in ms).
	ID int64 `json:"id"`
	// Fullname is the display name entered at signup.
	Fullname string `json:"fullname"`
	// Username is the login name chosen by the user, stored trimmed.
	Username string `json:"username"`
	// Password is the user's password as entered at signup.
	Password string `json:"password"`
}

// Session is the locally persisted record of the currently
// authenticated user. At most one exists at a time.
type Session struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// EventType identifies the kind of sporting event.
type EventType string

const (
	Cricket   EventType = "cricket"
	Football  EventType = "football"
	Badminton EventType = "badminton"
)

// Event represents a sporting event organized by a user.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	BannerURL   string `json:"bannerUrl"`

	EventType EventType `json:"eventType"`

	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	MaxParticipants int       `json:"maxParticipants"`
	// OrganizedBy is the User.ID of the event's organizer.
	OrganizedBy int64 `json:"organizedBy"`
	// Participants holds User.IDs in join order, no duplicates.
	Participants []int64 `json:"participants"`
}

// CreateEvent carries the user-supplied fields of a new event; id,
// organizer, and participants are assigned by the state manager.
type CreateEvent struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	BannerURL       string    `json:"bannerUrl"`
	EventType       EventType `json:"eventType"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	MaxParticipants int       `json:"maxParticipants"`
}

// RequestStatus defines the lifecycle states of an EventRequest.
type RequestStatus string

const (
	// StatusPending means the request awaits an organizer decision.
	StatusPending RequestStatus = "pending"
	// StatusApproved is terminal; the requester was added to the event.
	StatusApproved RequestStatus = "approved"
	// StatusRejected is terminal.
	StatusRejected RequestStatus = "rejected"
)

// EventRequest represents a non-organizer's ask to join an event,
// gated by organizer approval.
type EventRequest struct {
	ID          int64         `json:"id"`
	EventID     int64         `json:"eventId"`
	RequesterID int64         `json:"requesterId"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requestedAt"`
}
