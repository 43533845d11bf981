// Package memory is an in-process storage backend for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"martelinho/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	services []storage.Row
	users    map[string]storage.User
	sessions map[string]storage.Session
}

func New() *Store {
	return &Store{
		users:    map[string]storage.User{},
		sessions: map[string]storage.Session{},
	}
}

// Services returns the services table.
func (s *Store) Services() storage.Table {
	return (*serviceTable)(s)
}

type serviceTable Store

func (t *serviceTable) Select(_ context.Context, q storage.Query) ([]storage.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var matched []storage.Row
	for _, row := range t.services {
		if text(row[storage.ColTenantID]) != q.TenantID || !matches(row, q.Filters) {
			continue
		}
		matched = append(matched, row)
	}
	if q.OrderBy != "" {
		slices.SortStableFunc(matched, func(a, b storage.Row) int {
			c := compare(a[q.OrderBy], b[q.OrderBy])
			if q.Descending {
				return -c
			}
			return c
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	cols := q.SelectedColumns()
	out := make([]storage.Row, len(matched))
	for i, row := range matched {
		projected := make(storage.Row, len(cols))
		for _, c := range cols {
			projected[c] = row[c]
		}
		out[i] = projected
	}
	return out, nil
}

func (t *serviceTable) Insert(_ context.Context, tenantID string, row storage.Row) error {
	if tenantID == "" {
		return storage.ErrTenantRequired
	}
	if err := storage.ValidateRow(row); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.services {
		if text(existing[storage.ColID]) == text(row[storage.ColID]) {
			return fmt.Errorf("%w: id %v", storage.ErrConflict, row[storage.ColID])
		}
		if code := text(row[storage.ColAuthCode]); code != "" && text(existing[storage.ColAuthCode]) == code {
			return fmt.Errorf("%w: auth code %s", storage.ErrConflict, code)
		}
	}
	stored := make(storage.Row, len(row)+1)
	for k, v := range row {
		stored[k] = v
	}
	stored[storage.ColTenantID] = tenantID
	t.services = append(t.services, stored)
	return nil
}

func (t *serviceTable) Update(_ context.Context, tenantID, id string, row storage.Row) error {
	if tenantID == "" {
		return storage.ErrTenantRequired
	}
	if err := storage.ValidateRow(row); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(tenantID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	for k, v := range row {
		switch k {
		case storage.ColID, storage.ColTenantID, storage.ColCreatedAt, storage.ColAuthCode:
			continue
		}
		t.services[i][k] = v
	}
	return nil
}

func (t *serviceTable) Delete(_ context.Context, tenantID, id string) error {
	if tenantID == "" {
		return storage.ErrTenantRequired
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.find(tenantID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	t.services = slices.Delete(t.services, i, i+1)
	return nil
}

func (t *serviceTable) find(tenantID, id string) int {
	return slices.IndexFunc(t.services, func(r storage.Row) bool {
		return text(r[storage.ColTenantID]) == tenantID && text(r[storage.ColID]) == id
	})
}

func matches(row storage.Row, filters []storage.Filter) bool {
	for _, f := range filters {
		c := compare(row[f.Column], f.Value)
		switch f.Op {
		case storage.OpEq:
			if c != 0 {
				return false
			}
		case storage.OpGte:
			if c < 0 {
				return false
			}
		case storage.OpLte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compare orders numbers numerically and everything else as text, the way
// the SQL backend compares dates stored as yyyy-MM-dd.
func compare(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// CreateUser implements storage.UserStore.
func (s *Store) CreateUser(_ context.Context, u storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrConflict
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return storage.ErrConflict
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, sess storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return storage.ErrConflict
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return storage.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) RevokeSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.RevokedAt.IsZero() {
		return storage.ErrNotFound
	}
	sess.RevokedAt = at
	s.sessions[id] = sess
	return nil
}
