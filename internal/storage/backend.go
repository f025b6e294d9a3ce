package storage

import (
	"context"
	"sync"

	"github.com/tg-promo/promobot/internal/models"
)

// Snapshot is the full persisted state: three collections in insertion order.
// Field names match the layout written by the file backend.
type Snapshot struct {
	Channels []*models.Entity `json:"channels"`
	Groups   []*models.Entity `json:"groups"`
	Users    []*models.User   `json:"users"`
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Channels: []*models.Entity{},
		Groups:   []*models.Entity{},
		Users:    []*models.User{},
	}
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{
		Channels: make([]*models.Entity, len(s.Channels)),
		Groups:   make([]*models.Entity, len(s.Groups)),
		Users:    make([]*models.User, len(s.Users)),
	}
	for i, e := range s.Channels {
		c := *e
		out.Channels[i] = &c
	}
	for i, e := range s.Groups {
		c := *e
		out.Groups[i] = &c
	}
	for i, u := range s.Users {
		c := *u
		out.Users[i] = &c
	}
	return out
}

// Backend persists full snapshots. Load is called once at startup and must
// return an empty snapshot, not an error, when no state was saved yet. Save
// replaces whatever was persisted before.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Memory is a Backend that keeps the snapshot in memory. It backs tests and
// doubles as the "none" driver.
type Memory struct {
	mu      sync.Mutex
	snap    *Snapshot
	saves   int
	saveErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return emptySnapshot(), nil
	}
	return m.snap.clone(), nil
}

func (m *Memory) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap.clone()
	m.saves++
	return nil
}

func (m *Memory) Close() error { return nil }

// Saves reports how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailSaves makes every subsequent Save return err (nil to restore).
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
