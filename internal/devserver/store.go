package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrQRNotFound         = errors.New("qr code not found")
	ErrQRExpired          = errors.New("qr code expired")
	ErrQRUsed             = errors.New("qr code already used")
)

type userRecord struct {
	user         models.User
	passwordHash string
}

type tokenRecord struct {
	userID    string
	expiresAt time.Time
}

type qrRecord struct {
	userID    string
	expiresAt time.Time
	used      bool
}

// Store is the in-memory state behind the development backend.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*userRecord
	order      []string
	byEmail    map[string]string
	access     map[string]tokenRecord
	refresh    map[string]string
	attendance []models.Attendance
	qr         map[string]*qrRecord

	bcryptCost int
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore(bcryptCost int, now func() time.Time) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		users:      make(map[string]*userRecord),
		byEmail:    make(map[string]string),
		access:     make(map[string]tokenRecord),
		refresh:    make(map[string]string),
		qr:         make(map[string]*qrRecord),
		bcryptCost: bcryptCost,
		now:        now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser registers a new user.
func (s *Store) CreateUser(email, password string, profile models.Profile) (models.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return models.User{}, ErrEmailTaken
	}
	rec := &userRecord{
		user:         models.User{ID: uuid.NewString(), Email: email, Profile: profile},
		passwordHash: hash,
	}
	s.users[rec.user.ID] = rec
	s.byEmail[email] = rec.user.ID
	s.order = append(s.order, rec.user.ID)
	return rec.user, nil
}

// CompleteUser fills in the profile of a user created by the basic
// registration step, or creates the user when none exists yet.
func (s *Store) CompleteUser(email, password string, profile models.Profile) (models.User, error) {
	if _, err := s.Authenticate(email, password); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return s.CreateUser(email, password, profile)
		}
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[s.byEmail[normalizeEmail(email)]]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	rec.user.Profile = profile
	return rec.user, nil
}

// Authenticate checks a password. It returns ErrUserNotFound for an unknown
// email so CompleteUser can tell the cases apart; handlers report both as
// invalid credentials.
func (s *Store) Authenticate(email, password string) (models.User, error) {
	s.mu.RLock()
	rec, ok := s.users[s.byEmail[normalizeEmail(email)]]
	var user models.User
	var hash string
	if ok {
		user, hash = rec.user, rec.passwordHash
	}
	s.mu.RUnlock()

	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokens creates a fresh access/refresh pair for a user.
func (s *Store) IssueTokens(userID string, ttl time.Duration) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access = uuid.NewString()
	refresh = uuid.NewString()
	s.access[access] = tokenRecord{userID: userID, expiresAt: s.now().Add(ttl)}
	s.refresh[refresh] = userID
	return access, refresh
}

// UserForToken resolves an unexpired access token.
func (s *Store) UserForToken(token string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.access[token]
	if !ok || !s.now().Before(rec.expiresAt) {
		return models.User{}, ErrInvalidToken
	}
	u, ok := s.users[rec.userID]
	if !ok {
		return models.User{}, ErrInvalidToken
	}
	return u.user, nil
}

// Rotate consumes a refresh token and issues a new pair.
func (s *Store) Rotate(refresh string, ttl time.Duration) (models.User, string, string, error) {
	s.mu.Lock()
	userID, ok := s.refresh[refresh]
	if ok {
		delete(s.refresh, refresh)
	}
	rec, found := s.users[userID]
	s.mu.Unlock()

	if !ok || !found {
		return models.User{}, "", "", ErrInvalidToken
	}
	access, next := s.IssueTokens(userID, ttl)
	return rec.user, access, next, nil
}

// Revoke invalidates an access token.
func (s *Store) Revoke(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, access)
}

// User returns a user by id.
func (s *Store) User(id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return rec.user, nil
}

// Users returns users accepted by match, in registration order.
func (s *Store) Users(match func(models.User) bool) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		u := s.users[id].user
		if match == nil || match(u) {
			out = append(out, u)
		}
	}
	return out
}

// CheckIn records attendance for a user.
func (s *Store) CheckIn(userID string) (models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkInLocked(userID)
}

func (s *Store) checkInLocked(userID string) (models.Attendance, error) {
	rec, ok := s.users[userID]
	if !ok {
		return models.Attendance{}, ErrUserNotFound
	}
	now := s.now().UTC()
	a := models.Attendance{
		ID:          uuid.NewString(),
		UserID:      userID,
		User:        rec.user,
		CheckedInAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.attendance = append(s.attendance, a)
	return a, nil
}

// IssueQR creates a single-use check-in token for a user.
func (s *Store) IssueQR(userID string, ttl time.Duration) (models.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.QRCode{}, ErrUserNotFound
	}
	token := uuid.NewString()
	expires := s.now().Add(ttl).UTC()
	s.qr[token] = &qrRecord{userID: userID, expiresAt: expires}
	return models.QRCode{
		QRCode:    "checkin://qr/" + token,
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

// RedeemQR checks in the owner of a QR token and marks it used.
func (s *Store) RedeemQR(token string) (models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.qr[token]
	switch {
	case !ok:
		return models.Attendance{}, ErrQRNotFound
	case rec.used:
		return models.Attendance{}, ErrQRUsed
	case !s.now().Before(rec.expiresAt):
		return models.Attendance{}, ErrQRExpired
	}
	a, err := s.checkInLocked(rec.userID)
	if err != nil {
		return models.Attendance{}, err
	}
	rec.used = true
	return a, nil
}

// Attendance returns check-ins in [from, to), newest first. Zero bounds are open.
func (s *Store) Attendance(from, to time.Time) []models.Attendance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Attendance, 0, len(s.attendance))
	for _, a := range s.attendance {
		if !from.IsZero() && a.CheckedInAt.Before(from) {
			continue
		}
		if !to.IsZero() && !a.CheckedInAt.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckedInAt.After(out[j].CheckedInAt)
	})
	return out
}
