// Package memory is an in-process IdentityStore used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
)

// Store keeps users and login sessions in maps.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	users    map[int64]*model.User
	sessions map[string]*model.LoginSession
}

var _ store.IdentityStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[int64]*model.User),
		sessions: make(map[string]*model.LoginSession),
	}
}

// AddLoginSession registers a pending session, as the web application would.
func (s *Store) AddLoginSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	s.sessions[token] = &model.LoginSession{
		ID:           s.nextID,
		SessionToken: token,
		Status:       model.LoginPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Store) UserByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, nu model.NewUser) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[nu.TelegramID]; exists {
		return nil, store.ErrConflict
	}
	s.nextID++
	now := s.now()
	token, expires := nu.TempToken, nu.TempTokenExpiresAt
	u := &model.User{
		ID:                 s.nextID,
		TelegramID:         nu.TelegramID,
		PhoneNumber:        nu.PhoneNumber,
		FirstName:          nu.FirstName,
		LastName:           nu.LastName,
		Username:           nu.Username,
		LanguageCode:       nu.LanguageCode,
		IsVerified:         true,
		TempToken:          &token,
		TempTokenExpiresAt: &expires,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.users[nu.TelegramID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateTempToken(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			u.TempToken = &token
			u.TempTokenExpiresAt = &expiresAt
			u.UpdatedAt = s.now()
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) LoginSession(_ context.Context, token string) (*model.LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ls
	return &cp, nil
}

func (s *Store) LinkLoginSession(_ context.Context, token string, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[token]
	if !ok || ls.Status != model.LoginPending {
		return store.ErrNotFound
	}
	if ls.TelegramID != nil && *ls.TelegramID != telegramID {
		return store.ErrNotFound
	}
	id := telegramID
	ls.TelegramID = &id
	ls.UpdatedAt = s.now()
	return nil
}

func (s *Store) DecideLoginSession(_ context.Context, d model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[d.SessionToken]
	if !ok || ls.Status != model.LoginPending || ls.TelegramID == nil || *ls.TelegramID != d.TelegramID {
		return store.ErrNotFound
	}
	ls.Status = d.Status()
	if d.Approve {
		uid, at := d.UserID, d.At
		ls.UserID = &uid
		ls.ApprovedAt = &at
	}
	ls.UpdatedAt = s.now()
	return nil
}
