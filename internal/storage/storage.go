package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tg-promo/promobot/internal/models"
)

// ErrQuotaExceeded is returned when an owner already has the maximum number
// of entities of the requested kind.
var ErrQuotaExceeded = errors.New("owner quota exceeded")

// Store owns the three in-memory collections. Every mutator runs under one
// mutex and persists a full snapshot before returning, so the persisted state
// never lags the memory state by more than the mutation in flight. A failed
// save is logged and the in-memory state stays authoritative.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	maxOwned int
	log      *logrus.Entry

	channels []*models.Entity
	groups   []*models.Entity
	users    []*models.User
}

// New creates a store limiting each owner to maxOwned entities per kind.
// Call Load before use.
func New(backend Backend, maxOwned int) *Store {
	return &Store{
		backend:  backend,
		maxOwned: maxOwned,
		log:      logrus.WithField("component", "storage"),
	}
}

// Load reads the snapshot from the backend. A backend with no saved state
// loads as empty collections.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = snap.Channels
	s.groups = snap.Groups
	s.users = snap.Users
	return nil
}

// persist writes the full snapshot. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	snap := (&Snapshot{Channels: s.channels, Groups: s.groups, Users: s.users}).clone()
	if err := s.backend.Save(ctx, snap); err != nil {
		s.log.Warnf("failed to save snapshot, in-memory state stays authoritative: %v", err)
	}
}

func (s *Store) findUserLocked(id string) *models.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Store) collectionLocked(kind models.Kind) *[]*models.Entity {
	if kind == models.KindChannel {
		return &s.channels
	}
	return &s.groups
}

func (s *Store) findEntityLocked(kind models.Kind, id string) *models.Entity {
	for _, e := range *s.collectionLocked(kind) {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// GetOrCreateUser returns the user record for id, creating it with zero
// counts on first interaction.
func (s *Store) GetOrCreateUser(ctx context.Context, id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.findUserLocked(id); u != nil {
		return *u
	}

	u := models.NewUser(id)
	s.users = append(s.users, u)
	s.persist(ctx)
	return *u
}

// FindUser looks a user up without creating it.
func (s *Store) FindUser(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.findUserLocked(id); u != nil {
		return *u, true
	}
	return models.User{}, false
}

// SetBanned flips the ban flag. Unknown ids are a no-op. Already-registered
// entities of a banned owner are left untouched.
func (s *Store) SetBanned(ctx context.Context, id string, banned bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUserLocked(id)
	if u == nil {
		return false
	}
	u.IsBanned = banned
	s.persist(ctx)
	return true
}

// RegisterEntity creates or overwrites an entity. Overwriting an existing id
// replaces every field except IsApproved and never touches the owner's
// counters. Creation checks the owner's quota for the kind and increments it.
// The quota check and the mutation run under one lock so concurrent
// registrations cannot oversubscribe an owner.
func (s *Store) RegisterEntity(ctx context.Context, kind models.Kind, entity models.Entity) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findEntityLocked(kind, entity.ID); existing != nil {
		approved := existing.IsApproved
		*existing = entity
		existing.IsApproved = approved
		s.persist(ctx)
		return false, nil
	}

	owner := s.findUserLocked(entity.OwnerID)
	if owner == nil {
		owner = models.NewUser(entity.OwnerID)
		s.users = append(s.users, owner)
	}
	if owner.OwnedCount(kind) >= s.maxOwned {
		return false, ErrQuotaExceeded
	}

	e := entity
	coll := s.collectionLocked(kind)
	*coll = append(*coll, &e)
	owner.IncrementOwned(kind)
	s.persist(ctx)
	return true, nil
}

// FindEntity scans channels, then groups. Telegram chat ids are globally
// unique, so an id can match in at most one collection.
func (s *Store) FindEntity(id string) (models.Entity, models.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range models.Kinds() {
		if e := s.findEntityLocked(kind, id); e != nil {
			return *e, kind, true
		}
	}
	return models.Entity{}, "", false
}

// SetApproved sets the approval flag on the entity with the given id.
// A miss is a silent no-op.
func (s *Store) SetApproved(ctx context.Context, id string, approved bool) (models.Entity, models.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range models.Kinds() {
		if e := s.findEntityLocked(kind, id); e != nil {
			e.IsApproved = approved
			s.persist(ctx)
			return *e, kind, true
		}
	}
	return models.Entity{}, "", false
}

// ApprovedByTier returns copies of the approved entities of one kind and
// tier, in insertion order. The copies keep broadcast iteration safe against
// concurrent registrations.
func (s *Store) ApprovedByTier(kind models.Kind, tier models.Tier) []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Entity
	for _, e := range *s.collectionLocked(kind) {
		if e.Category == tier && e.IsApproved {
			out = append(out, *e)
		}
	}
	return out
}

// EntitiesByOwner returns copies of the entities of one kind owned by ownerID.
func (s *Store) EntitiesByOwner(kind models.Kind, ownerID string) []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Entity
	for _, e := range *s.collectionLocked(kind) {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	return out
}

// Stats aggregates the dashboard counters.
type Stats struct {
	TotalChannels   int                 `json:"totalChannels"`
	TotalGroups     int                 `json:"totalGroups"`
	TotalUsers      int                 `json:"totalUsers"`
	PendingApproval int                 `json:"pendingApproval"`
	Categories      map[models.Tier]int `json:"categories"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalChannels: len(s.channels),
		TotalGroups:   len(s.groups),
		TotalUsers:    len(s.users),
		Categories:    map[models.Tier]int{},
	}
	for _, tier := range models.Tiers() {
		stats.Categories[tier] = 0
	}
	for _, kind := range models.Kinds() {
		for _, e := range *s.collectionLocked(kind) {
			if !e.IsApproved {
				stats.PendingApproval++
			}
			stats.Categories[e.Category]++
		}
	}
	return stats
}

// State returns a deep copy of all collections for the dashboard listing.
func (s *Store) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *(&Snapshot{Channels: s.channels, Groups: s.groups, Users: s.users}).clone()
}
