// Package store is the transactional persistence engine. It owns the
// committed in-memory document and its backing blob for the lifetime of a
// session; every mutation runs through RunTransaction, which either commits
// to both memory and the backing store or changes neither.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"teamcal/internal/blob"
	"teamcal/internal/id"
	"teamcal/internal/log"
	"teamcal/internal/model"
)

// ErrTransactionInProgress is returned when a transaction is started while
// another one is still in flight. Callers should retry once the pending
// transaction resolves; interleaved writes to one backing file are never
// allowed.
var ErrTransactionInProgress = errors.New("transaction already in progress")

// PersistenceError wraps a backing-store write failure. The transaction that
// hit it was rolled back: memory and the backing store still hold the last
// committed document.
type PersistenceError struct {
	Err error
}

func (e PersistenceError) Error() string { return fmt.Sprintf("persistence failed: %v", e.Err) }
func (e PersistenceError) Unwrap() error { return e.Err }

// MutationFn maps the current committed document to its successor. It must be
// pure: no side effects, no retained references to the input.
type MutationFn func(doc model.Document) (model.Document, error)

// Store holds the committed document and serializes all mutations against the
// backing handle.
type Store struct {
	// txMu enforces the single-in-flight rule. TryLock, not Lock: a caller
	// racing a pending transaction fails fast instead of queueing silently.
	txMu sync.Mutex

	// stateMu guards the committed document for readers.
	stateMu   sync.RWMutex
	committed model.Document

	handle blob.Handle
}

// New constructs a store over the given backing handle. Call Load before
// serving reads.
func New(handle blob.Handle) *Store {
	doc := model.Document{}
	doc.Normalize()
	return &Store{committed: doc, handle: handle}
}

// Load reads the backing store and installs its document as the committed
// state. A store that has never been written yields an empty document. A
// readable but invalid document is refused: starting a session on top of
// corrupt data would let later transactions launder it.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.handle.Read(ctx)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			log.Info("backing store empty, starting with a fresh document")
			return nil
		}
		return fmt.Errorf("read backing store: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("loaded document is invalid: %w", err)
	}

	s.stateMu.Lock()
	s.committed = doc
	s.stateMu.Unlock()

	log.Info("document loaded", "users", len(doc.Users), "events", len(doc.Events))
	return nil
}

// Snapshot returns a deep copy of the committed document.
func (s *Store) Snapshot() model.Document {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.committed.Clone()
}

// EncodedSnapshot returns the canonical serialized form of the committed
// document, the exact bytes the backing store holds after the last commit.
func (s *Store) EncodedSnapshot() ([]byte, error) {
	return Encode(s.Snapshot())
}

// Encode serializes a document into its canonical byte form: two-space
// indent, struct-declared key order, trailing newline. Serializing the same
// document twice yields identical bytes, which makes "backing store matches
// memory" independently checkable with a plain diff.
func Encode(doc model.Document) ([]byte, error) {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunTransaction applies fn to the committed document and durably commits the
// result, all or nothing:
//
//  1. clone the committed document as the base
//  2. apply fn to produce a candidate
//  3. validate the candidate's invariants
//  4. serialize and write the candidate to the backing store
//  5. only after the write succeeds, swap the committed document
//
// Any failure in steps 2-4 leaves both the in-memory document and the backing
// store exactly as they were. A second call while one is pending fails fast
// with ErrTransactionInProgress.
func (s *Store) RunTransaction(ctx context.Context, fn MutationFn) error {
	if !s.txMu.TryLock() {
		return ErrTransactionInProgress
	}
	defer s.txMu.Unlock()

	base := s.Snapshot()

	candidate, err := fn(base)
	if err != nil {
		return err
	}
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return err
	}

	data, err := Encode(candidate)
	if err != nil {
		return PersistenceError{Err: err}
	}
	if err := s.handle.Write(ctx, data); err != nil {
		log.Error("backing store write failed, rolled back", err)
		return PersistenceError{Err: err}
	}

	s.stateMu.Lock()
	s.committed = candidate
	s.stateMu.Unlock()

	log.Debug("transaction committed", "users", len(candidate.Users), "events", len(candidate.Events))
	return nil
}

// Convenience operations ------------------------------------------------------
//
// Thin wrappers that pair one document-model helper with one transaction.

// AddUser adds a user name.
func (s *Store) AddUser(ctx context.Context, name string) error {
	return s.RunTransaction(ctx, func(doc model.Document) (model.Document, error) {
		return model.AddUser(doc, name)
	})
}

// DeleteUser deletes a user, cascading the name out of all writer lists.
// Confirmation of the destructive action is the caller's responsibility.
func (s *Store) DeleteUser(ctx context.Context, name string) error {
	return s.RunTransaction(ctx, func(doc model.Document) (model.Document, error) {
		return model.DeleteUser(doc, name)
	})
}

// AddEvent assigns a fresh ID to ev, stores it, and returns the stored event.
func (s *Store) AddEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	eid, err := id.New("evt")
	if err != nil {
		return model.Event{}, err
	}
	ev.ID = eid
	err = s.RunTransaction(ctx, func(doc model.Document) (model.Document, error) {
		return model.AddEvent(doc, ev)
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// UpdateEvent replaces the stored event with the same ID.
func (s *Store) UpdateEvent(ctx context.Context, ev model.Event) error {
	return s.RunTransaction(ctx, func(doc model.Document) (model.Document, error) {
		return model.UpdateEvent(doc, ev)
	})
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	return s.RunTransaction(ctx, func(doc model.Document) (model.Document, error) {
		return model.DeleteEvent(doc, eventID)
	})
}
