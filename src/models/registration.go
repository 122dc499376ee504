package models

import "time"

// Registration is the caller's registration/team tree as returned by the
// backend ticket portal (`/api/team-by-email`).
type Registration struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Institution string            `json:"institution,omitempty"`
	Events      []RegisteredEvent `json:"events,omitempty"`
	VisitorDays int               `json:"visitor_days,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

type RegisteredEvent struct {
	EventID  uint         `json:"event_id"`
	Title    string       `json:"title"`
	TeamName string       `json:"team_name,omitempty"`
	Members  []TeamMember `json:"members,omitempty"`
	Entry    *EntryRecord `json:"entry,omitempty"`
}

type TeamMember struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Institution string `json:"institution,omitempty"`
}

// EntryRecord tracks QR-based entry validation for one registered event.
type EntryRecord struct {
	Allowed   bool       `json:"allowed"`
	AllowedAt *time.Time `json:"allowed_at,omitempty"`
	By        string     `json:"by,omitempty"`
}
