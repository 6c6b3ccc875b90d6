package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Document is the full in-memory schedule: the list of known user names and
// the list of dated events. It is the single source of truth for a session;
// everything derived from it (month grids, chips, tooltips) is recomputed on
// demand and never stored back.
//
// Invariants, checked by Validate:
//   - every writer name on every event exists in Users
//   - no two events share an ID
//   - no two users share a name (case-sensitive)
type Document struct {
	Users  []string `json:"users"`
	Events []Event  `json:"events"`
}

// Event is a single dated schedule entry.
type Event struct {
	ID         string   `json:"id"`
	Date       Date     `json:"date"`
	Time       string   `json:"time,omitempty"` // "HH:MM", empty = all-day
	Title      string   `json:"title"`
	Desc       string   `json:"desc,omitempty"`
	Writers    []string `json:"writers"`
	CategoryID string   `json:"categoryId"`
}

// AllDay reports whether the event has no time-of-day.
func (e Event) AllDay() bool { return e.Time == "" }

// Date is a civil calendar date without a time zone. It marshals to and from
// the wire form "YYYY-MM-DD".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses "YYYY-MM-DD" into a Date. Out-of-range days (e.g. a
// February 30th) are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, InvalidDateError{Value: s}
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String renders the date in its wire form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// MarshalJSON encodes the date as a quoted "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a quoted "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Error types -----------------------------------------------------------------
//
// Validation failures are always recoverable: the caller gets a typed error
// and the document it passed in is untouched.

// DuplicateUserError reports an attempt to add a user name that already exists.
type DuplicateUserError struct{ Name string }

func (e DuplicateUserError) Error() string { return fmt.Sprintf("user %q already exists", e.Name) }

// UnknownUserError reports an operation on a user name that does not exist.
type UnknownUserError struct{ Name string }

func (e UnknownUserError) Error() string { return fmt.Sprintf("user %q not found", e.Name) }

// UnknownAssigneeError reports an event writer that does not resolve to a user.
type UnknownAssigneeError struct{ Name string }

func (e UnknownAssigneeError) Error() string { return fmt.Sprintf("assignee %q not found", e.Name) }

// UnknownEventError reports an operation on an event ID that does not exist.
type UnknownEventError struct{ ID string }

func (e UnknownEventError) Error() string { return fmt.Sprintf("event %q not found", e.ID) }

// DuplicateEventError reports a second event carrying an already-used ID.
type DuplicateEventError struct{ ID string }

func (e DuplicateEventError) Error() string { return fmt.Sprintf("event %q already exists", e.ID) }

// InvalidDateError reports a malformed or out-of-range calendar date.
type InvalidDateError struct{ Value string }

func (e InvalidDateError) Error() string { return fmt.Sprintf("invalid date %q", e.Value) }

// InvalidTimeError reports a malformed time-of-day value.
type InvalidTimeError struct{ Value string }

func (e InvalidTimeError) Error() string { return fmt.Sprintf("invalid time %q", e.Value) }

// ErrEmptyTitle is returned when an event title is empty.
var ErrEmptyTitle = errors.New("event title must not be empty")

// Clone helpers ---------------------------------------------------------------

// Clone returns a deep copy of the document. Mutating the copy never affects
// the original, which is what lets the store hand out snapshots and discard
// failed candidates cheaply.
func (d Document) Clone() Document {
	out := Document{
		Users:  append([]string{}, d.Users...),
		Events: make([]Event, 0, len(d.Events)),
	}
	for _, ev := range d.Events {
		out.Events = append(out.Events, cloneEvent(ev))
	}
	return out
}

func cloneEvent(e Event) Event {
	cp := e
	cp.Writers = append([]string{}, e.Writers...)
	return cp
}

// Normalize replaces nil slices with empty ones so that serialization is
// stable ("[]" rather than "null") regardless of how the document was built.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []string{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	for i := range d.Events {
		if d.Events[i].Writers == nil {
			d.Events[i].Writers = []string{}
		}
	}
}

// Validate checks the document invariants. A document produced by the helpers
// in this package always passes; Validate exists so the persistence engine
// can refuse arbitrary mutation results before anything touches disk.
func (d Document) Validate() error {
	users := make(map[string]struct{}, len(d.Users))
	for _, name := range d.Users {
		if _, dup := users[name]; dup {
			return DuplicateUserError{Name: name}
		}
		users[name] = struct{}{}
	}

	ids := make(map[string]struct{}, len(d.Events))
	for _, ev := range d.Events {
		if ev.ID == "" {
			return UnknownEventError{ID: ev.ID}
		}
		if _, dup := ids[ev.ID]; dup {
			return DuplicateEventError{ID: ev.ID}
		}
		ids[ev.ID] = struct{}{}

		if err := validateEventFields(ev); err != nil {
			return err
		}
		for _, w := range ev.Writers {
			if _, ok := users[w]; !ok {
				return UnknownAssigneeError{Name: w}
			}
		}
	}
	return nil
}

func validateEventFields(ev Event) error {
	if ev.Title == "" {
		return ErrEmptyTitle
	}
	if ev.Date.IsZero() {
		return InvalidDateError{Value: ev.Date.String()}
	}
	// Round-trip through the parser catches out-of-range components that a
	// hand-built Date could carry.
	if _, err := ParseDate(ev.Date.String()); err != nil {
		return InvalidDateError{Value: ev.Date.String()}
	}
	if ev.Time != "" {
		if len(ev.Time) != 5 {
			return InvalidTimeError{Value: ev.Time}
		}
		if _, err := time.Parse("15:04", ev.Time); err != nil {
			return InvalidTimeError{Value: ev.Time}
		}
	}
	return nil
}

// Mutation helpers ------------------------------------------------------------
//
// All helpers take the current document by value and return a new one; the
// input is never modified, success or failure.

// AddUser appends a new user name. The name must be non-empty and not already
// present (exact, case-sensitive match).
func AddUser(doc Document, name string) (Document, error) {
	if name == "" {
		return Document{}, UnknownUserError{Name: name}
	}
	for _, existing := range doc.Users {
		if existing == name {
			return Document{}, DuplicateUserError{Name: name}
		}
	}
	next := doc.Clone()
	next.Users = append(next.Users, name)
	next.Normalize()
	return next, nil
}

// DeleteUser removes a user. The name is also removed from the writers list
// of every event that references it, in the same step, so the result never
// violates referential integrity.
func DeleteUser(doc Document, name string) (Document, error) {
	found := false
	for _, existing := range doc.Users {
		if existing == name {
			found = true
			break
		}
	}
	if !found {
		return Document{}, UnknownUserError{Name: name}
	}

	next := doc.Clone()
	users := next.Users[:0]
	for _, existing := range next.Users {
		if existing != name {
			users = append(users, existing)
		}
	}
	next.Users = users

	for i := range next.Events {
		writers := next.Events[i].Writers[:0]
		for _, w := range next.Events[i].Writers {
			if w != name {
				writers = append(writers, w)
			}
		}
		next.Events[i].Writers = writers
	}
	next.Normalize()
	return next, nil
}

// AddEvent appends a new event. The caller assigns the ID; it must be unique
// within the document.
func AddEvent(doc Document, ev Event) (Document, error) {
	if ev.ID == "" {
		return Document{}, UnknownEventError{ID: ev.ID}
	}
	for _, existing := range doc.Events {
		if existing.ID == ev.ID {
			return Document{}, DuplicateEventError{ID: ev.ID}
		}
	}
	if err := validateEventAgainst(doc, ev); err != nil {
		return Document{}, err
	}
	next := doc.Clone()
	next.Events = append(next.Events, cloneEvent(ev))
	next.Normalize()
	return next, nil
}

// UpdateEvent replaces the event with the matching ID.
func UpdateEvent(doc Document, ev Event) (Document, error) {
	idx := -1
	for i, existing := range doc.Events {
		if existing.ID == ev.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Document{}, UnknownEventError{ID: ev.ID}
	}
	if err := validateEventAgainst(doc, ev); err != nil {
		return Document{}, err
	}
	next := doc.Clone()
	next.Events[idx] = cloneEvent(ev)
	next.Normalize()
	return next, nil
}

// DeleteEvent removes the event with the given ID.
func DeleteEvent(doc Document, id string) (Document, error) {
	idx := -1
	for i, existing := range doc.Events {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Document{}, UnknownEventError{ID: id}
	}
	next := doc.Clone()
	next.Events = append(next.Events[:idx], next.Events[idx+1:]...)
	next.Normalize()
	return next, nil
}

func validateEventAgainst(doc Document, ev Event) error {
	if err := validateEventFields(ev); err != nil {
		return err
	}
	for _, w := range ev.Writers {
		known := false
		for _, u := range doc.Users {
			if u == w {
				known = true
				break
			}
		}
		if !known {
			return UnknownAssigneeError{Name: w}
		}
	}
	return nil
}
