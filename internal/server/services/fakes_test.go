package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/config"
	"github.com/dmitrijs2005/credgate/internal/server/mail"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/securityevents"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger          { return n }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore holds the state every fake repository shares. One mutex makes
// each method a single atomic step, the way one SQL statement is.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	keys     map[string]*models.ApiKey
	consumed map[string]*models.ConsumedRefreshToken
	events   []*models.SecurityEvent

	failConsume error
	failDelete  error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		keys:     map[string]*models.ApiKey{},
		consumed: map[string]*models.ConsumedRefreshToken{},
	}
}

type fakeRepoManager struct{ s *memStore }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return memAccounts{m.s} }
func (m fakeRepoManager) ApiKeys(dbx.DBTX) apikeys.Repository          { return memApiKeys{m.s} }
func (m fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memRefreshTokens{m.s}
}
func (m fakeRepoManager) SecurityEvents(dbx.DBTX) securityevents.Repository {
	return memEvents{m.s}
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.VerificationCode != nil {
		v := *a.VerificationCode
		c.VerificationCode = &v
	}
	if a.LastConfirmationEmailSent != nil {
		v := *a.LastConfirmationEmailSent
		c.LastConfirmationEmailSent = &v
	}
	return &c
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.accounts {
		if x.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.s.accounts[a.UID] = copyAccount(a)
	return copyAccount(a), nil
}

func (r memAccounts) GetByUID(_ context.Context, uid string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[uid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyAccount(a), nil
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) SetVerificationCode(_ context.Context, uid, code string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[uid]
	if !ok || a.Verified {
		return common.ErrorNotFound
	}
	a.VerificationCode = &code
	a.UpdatedAt = at
	return nil
}

func (r memAccounts) TouchConfirmationEmailSent(_ context.Context, uid string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[uid]
	if !ok {
		return common.ErrorNotFound
	}
	a.LastConfirmationEmailSent = &at
	return nil
}

func (r memAccounts) ConfirmVerification(_ context.Context, uid, code string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[uid]
	if !ok || a.Verified || a.VerificationCode == nil || *a.VerificationCode != code {
		return false, nil
	}
	a.Verified = true
	a.VerificationCode = nil
	a.UpdatedAt = at
	return true, nil
}

func (r memAccounts) UpdatePasswordHash(_ context.Context, uid, hash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[uid]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = at
	return nil
}

type memApiKeys struct{ s *memStore }

func (r memApiKeys) Upsert(_ context.Context, k *models.ApiKey) (*models.ApiKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.keys {
		if x.Token == k.Token {
			if x.AccountID != k.AccountID {
				return nil, common.ErrorAlreadyExists
			}
			x.Permission = k.Permission
			c := *x
			return &c, nil
		}
	}
	c := *k
	r.s.keys[k.ID] = &c
	out := c
	return &out, nil
}

func (r memApiKeys) FindByToken(_ context.Context, token string) (*models.ApiKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.keys {
		if x.Token == token {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memApiKeys) ListByAccount(_ context.Context, uid string) ([]*models.ApiKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.ApiKey{}
	for _, x := range r.s.keys {
		if x.AccountID == uid {
			c := *x
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memApiKeys) Get(_ context.Context, uid, id string) (*models.ApiKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.keys[id]
	if !ok || x.AccountID != uid {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (r memApiKeys) GetForUpdate(ctx context.Context, uid, id string) (*models.ApiKey, error) {
	return r.Get(ctx, uid, id)
}

func (r memApiKeys) Delete(_ context.Context, uid, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failDelete != nil {
		return false, r.s.failDelete
	}
	x, ok := r.s.keys[id]
	if !ok || x.AccountID != uid {
		return false, nil
	}
	delete(r.s.keys, id)
	return true, nil
}

type memRefreshTokens struct{ s *memStore }

func (r memRefreshTokens) Consume(_ context.Context, t *models.ConsumedRefreshToken) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failConsume != nil {
		return false, r.s.failConsume
	}
	if _, ok := r.s.consumed[t.JTI]; ok {
		return false, nil
	}
	c := *t
	r.s.consumed[t.JTI] = &c
	return true, nil
}

func (r memRefreshTokens) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, v := range r.s.consumed {
		if v.ExpiresAt.Before(now) {
			delete(r.s.consumed, k)
			n++
		}
	}
	return n, nil
}

type memEvents struct{ s *memStore }

func (r memEvents) Append(_ context.Context, e *models.SecurityEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *e
	r.s.events = append(r.s.events, &c)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordedEvent struct{ uid, message string }

type fakeAudit struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (a *fakeAudit) Record(_ context.Context, uid, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{uid, message})
	return a.err
}

func (a *fakeAudit) messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.message)
	}
	return out
}

// plainHasher stands in for argon2 so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain$" + p, nil }
func (plainHasher) Verify(p, encoded string) (bool, error) {
	if len(encoded) < 6 || encoded[:6] != "plain$" {
		return false, errors.New("bad hash")
	}
	return encoded[6:] == p, nil
}

type fixture struct {
	store  *memStore
	clock  *fakeClock
	mailer *fakeMailer
	audit  *fakeAudit
	cfg    *config.Config
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	f := &fixture{
		store:  newMemStore(),
		clock:  newFakeClock(),
		mailer: &fakeMailer{},
		audit:  &fakeAudit{},
		cfg:    cfg,
	}
	f.deps = Deps{
		DB:     db,
		Repos:  fakeRepoManager{f.store},
		Logger: nopLogger{},
		Now:    f.clock.Now,
	}
	return f
}

// addAccount seeds an unverified account with the given code.
func (f *fixture) addAccount(uid, email, code string) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	a := &models.Account{UID: uid, Email: email, PasswordHash: "plain$Secret123"}
	if code != "" {
		a.VerificationCode = &code
	}
	f.store.accounts[uid] = a
}

func (f *fixture) account(uid string) *models.Account {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return copyAccount(f.store.accounts[uid])
}
