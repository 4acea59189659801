package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/order"
)

func (s *Store) CreateUser(_ context.Context, u auth.User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[email]; taken && email != "" {
		return auth.ErrEmailTaken
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	s.users[u.ID] = u
	if email != "" {
		s.emails[email] = u.ID
	}
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) Profile(_ context.Context, userID string) (order.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return order.Profile{}, errors.Wrapf(order.ErrNotFound, "user %s", userID)
	}
	p := u.Profile()
	if rec, ok := s.reputation[userID]; ok {
		p.RatingAverage = rec.RatingAverage
		p.CompletedCount = rec.CompletedCount
	}
	return p, nil
}

func (s *Store) SearchCraftsmen(_ context.Context, q order.SearchQuery) ([]order.Profile, error) {
	s.mu.RLock()
	out := make([]order.Profile, 0)
	for _, u := range s.users {
		p := u.Profile()
		if !q.Match(p) {
			continue
		}
		if rec, ok := s.reputation[u.ID]; ok {
			p.RatingAverage = rec.RatingAverage
			p.CompletedCount = rec.CompletedCount
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RatingAverage == out[j].RatingAverage {
			return out[i].ID < out[j].ID
		}
		return out[i].RatingAverage > out[j].RatingAverage
	})
	return out, nil
}
