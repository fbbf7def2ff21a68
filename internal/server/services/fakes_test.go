package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/auth"
	"github.com/rosedal2/condoauth/internal/server/models"
	"github.com/rosedal2/condoauth/internal/server/repositories/accounts"
	auditrepo "github.com/rosedal2/condoauth/internal/server/repositories/audit"
	"github.com/rosedal2/condoauth/internal/server/repositories/houses"
	"github.com/rosedal2/condoauth/internal/server/repositories/sessions"
	"github.com/rosedal2/condoauth/internal/server/tempgrant"
	"github.com/rosedal2/condoauth/internal/totp"
)

const (
	testPassword = "Str0ng!Passw0rd"
	testAccess   = "access-secret-access-secret-0123456789"
	testRefresh  = "refresh-secret-refresh-secret-0123456789"
)

var errStoreDown = errors.New("connection refused")

// clock

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// accounts

type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]*models.Account
	err  error
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *a
	c.ID = uuid.NewString()
	c.Email = strings.ToLower(c.Email)
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.byID {
		if strings.EqualFold(a.Email, email) {
			c := *a
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) Update(_ context.Context, id string, u models.AccountUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	if u.FailedAttempts != nil {
		a.FailedAttempts = *u.FailedAttempts
	}
	if u.IsLocked != nil {
		a.IsLocked = *u.IsLocked
	}
	if u.LockedUntil != nil {
		a.LockedUntil = *u.LockedUntil
	}
	if u.TwoFactorEnabled != nil {
		a.TwoFactorEnabled = *u.TwoFactorEnabled
	}
	if u.TwoFactorSecret != nil {
		a.TwoFactorSecret = *u.TwoFactorSecret
	}
	if u.LastLogin != nil {
		a.LastLogin = *u.LastLogin
	}
	return nil
}

func (f *fakeAccounts) RecordFailedAttempt(_ context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return 0, false, common.ErrorNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		until := lockUntil
		a.IsLocked = true
		a.LockedUntil = &until
	}
	return a.FailedAttempts, a.IsLocked, nil
}

func (f *fakeAccounts) get(id string) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

// sessions

type fakeSessions struct {
	mu        sync.Mutex
	byID      map[string]*models.Session
	createErr error
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.TokenHash == s.TokenHash {
			return common.ErrorAlreadyExists
		}
	}
	s.ID = uuid.NewString()
	c := *s
	f.byID[c.ID] = &c
	return nil
}

func (f *fakeSessions) FindByHash(_ context.Context, tokenHash string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.TokenHash == tokenHash {
			c := *s
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSessions) Revoke(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.Revoked {
		return false, nil
	}
	s.Revoked = true
	return true, nil
}

func (f *fakeSessions) RevokeByHash(_ context.Context, tokenHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.TokenHash == tokenHash && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.byID {
		if s.ExpiresAt.Before(before) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) forUser(userID string) []models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

func (f *fakeSessions) active(userID string) int {
	n := 0
	for _, s := range f.forUser(userID) {
		if !s.Revoked {
			n++
		}
	}
	return n
}

// houses and audit

type fakeHouses struct {
	ids map[int64]bool
}

func (f *fakeHouses) Exists(_ context.Context, id int64) (bool, error) {
	return f.ids[id], nil
}

func (f *fakeHouses) Seed(_ context.Context, count int) (int64, error) {
	var n int64
	for i := 1; i <= count; i++ {
		if !f.ids[int64(i)] {
			f.ids[int64(i)] = true
			n++
		}
	}
	return n, nil
}

type recordingEmitter struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *recordingEmitter) Emit(_ context.Context, e models.AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *recordingEmitter) Append(ctx context.Context, e *models.AuditEntry) error {
	r.Emit(ctx, *e)
	return nil
}

func (r *recordingEmitter) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingEmitter) last() models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

// repository manager

type fakeRepoManager struct {
	accounts *fakeAccounts
	sessions *fakeSessions
	houses   *fakeHouses
	audit    *recordingEmitter
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.accounts }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository { return m.sessions }
func (m *fakeRepoManager) Houses(dbx.DBTX) houses.Repository { return m.houses }
func (m *fakeRepoManager) Audit(dbx.DBTX) auditrepo.Repository { return m.audit }

// fixture

type fixture struct {
	svc      *AuthService
	clock    *testClock
	accounts *fakeAccounts
	sessions *fakeSessions
	houses   *fakeHouses
	audit    *recordingEmitter
	issuer   *auth.Issuer
	redis    *miniredis.Miniredis
	settings Settings
}

var (
	hashOnce   sync.Once
	hashed     string
	testHasher *password.Hasher
)

// passwordHash hashes testPassword once per test binary.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := password.NewHasher(password.MinCost)
		if err != nil {
			panic(err)
		}
		testHasher = h
		hashed, err = h.Hash(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return hashed
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, openTestDB(t))
}

func newFixtureWithDB(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	passwordHash(t)

	clock := &testClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		clock:    clock,
		accounts: &fakeAccounts{byID: map[string]*models.Account{}},
		sessions: &fakeSessions{byID: map[string]*models.Session{}},
		houses:   &fakeHouses{ids: map[int64]bool{1: true, 2: true}},
		audit:    &recordingEmitter{},
		redis:    mr,
		settings: Settings{
			MaxLoginAttempts: 5,
			LockDuration:     15 * time.Minute,
			TOTPWindow:       2,
			TempTTL:          5 * time.Minute,
			SessionTTL:       7 * 24 * time.Hour,
		},
	}
	f.issuer = auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte(testAccess),
		RefreshSecret: []byte(testRefresh),
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		TempTTL:       5 * time.Minute,
		Now:           clock.Now,
	})

	f.svc = NewAuthService(AuthDeps{
		DB:       db,
		Repos:    &fakeRepoManager{accounts: f.accounts, sessions: f.sessions, houses: f.houses, audit: f.audit},
		Hasher:   testHasher,
		TOTP:     totp.New(totp.DefaultIssuer, totp.WithClock(clock.Now)),
		Issuer:   f.issuer,
		Grants:   tempgrant.NewRedisLedger(client),
		Audit:    f.audit,
		Settings: func() Settings { return f.settings },
		Now:      clock.Now,
	})
	return f
}

// seed stores an active resident with testPassword and returns its id.
func (f *fixture) seed(t *testing.T, email string, mutate ...func(*models.Account)) string {
	t.Helper()
	a := &models.Account{
		Email:        email,
		PasswordHash: passwordHash(t),
		FirstName:    "Ana",
		LastName:     "Rojas",
		Role:         models.RoleResident,
		IsActive:     true,
	}
	for _, m := range mutate {
		m(a)
	}
	created, err := f.accounts.Create(context.Background(), a)
	require.NoError(t, err)
	return created.ID
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	c, err := totp.Code(secret, f.clock.Now())
	require.NoError(t, err)
	return c
}

// with2FA enables TOTP on the account and returns the secret.
func (f *fixture) with2FA(t *testing.T, id string) string {
	t.Helper()
	s, err := totp.New(totp.DefaultIssuer).GenerateSecret("user")
	require.NoError(t, err)
	enabled := true
	secret := &s.Secret
	require.NoError(t, f.accounts.Update(context.Background(), id, models.AccountUpdate{
		TwoFactorEnabled: &enabled,
		TwoFactorSecret:  &secret,
	}))
	return s.Secret
}
