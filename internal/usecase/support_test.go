package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

// memAccountRepo is an in-memory port.AccountRepository for tests.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*domain.Account
}

func newMemAccountRepo(accounts ...*domain.Account) *memAccountRepo {
	repo := &memAccountRepo{accounts: make(map[int64]*domain.Account)}
	for _, a := range accounts {
		clone := cloneAccount(a)
		repo.accounts[a.Sub] = clone
	}
	return repo
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.Ext = domain.ExternalIdentities{}
	for p, ids := range a.Ext {
		clone.Ext[p] = append([]string(nil), ids...)
	}
	clone.Scopes = make(map[string][]string)
	for d, roles := range a.Scopes {
		clone.Scopes[d] = append([]string(nil), roles...)
	}
	clone.Times = make(map[string]time.Time)
	for k, v := range a.Times {
		clone.Times[k] = v
	}
	return &clone
}

func (r *memAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username || (account.Email != "" && existing.Email == account.Email) {
			return repository.ErrDuplicate
		}
	}
	r.accounts[account.Sub] = cloneAccount(&account)
	return nil
}

func (r *memAccountRepo) GetBySub(_ context.Context, sub int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[sub]; ok {
		return cloneAccount(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) GetByUsername(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == identifier {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email && email != "" {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) GetByExternalID(_ context.Context, provider, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Ext.Has(provider, id) {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) AppendExternalID(_ context.Context, sub int64, provider, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[sub]
	if !ok {
		return repository.ErrNotFound
	}
	a.Ext.Append(provider, id)
	return nil
}

func (r *memAccountRepo) RemoveExternalID(_ context.Context, sub int64, provider, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[sub]
	if !ok || !a.Ext.Remove(provider, id) {
		return repository.ErrNotFound
	}
	return nil
}

func (r *memAccountRepo) TouchLogin(_ context.Context, sub int64, method string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[sub]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Times == nil {
		a.Times = make(map[string]time.Time)
	}
	a.Times[method] = at
	return nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, sub int64, passwordHash string) error {
	return r.mutate(sub, func(a *domain.Account) { a.PasswordHash = passwordHash })
}

func (r *memAccountRepo) UpdateProfile(_ context.Context, sub int64, profile domain.Profile) error {
	return r.mutate(sub, func(a *domain.Account) { a.Profile = profile })
}

func (r *memAccountRepo) UpdateScopes(_ context.Context, sub int64, scopes map[string][]string) error {
	return r.mutate(sub, func(a *domain.Account) { a.Scopes = scopes })
}

func (r *memAccountRepo) SetActive(_ context.Context, sub int64, active bool) error {
	return r.mutate(sub, func(a *domain.Account) { a.Active = active })
}

func (r *memAccountRepo) SetEmailConfirmed(_ context.Context, sub int64, confirmed bool) error {
	return r.mutate(sub, func(a *domain.Account) { a.EmailConfirmed = confirmed })
}

func (r *memAccountRepo) SetConfirmationSecret(_ context.Context, sub int64, token, cookie string) error {
	return r.mutate(sub, func(a *domain.Account) {
		a.ConfirmationToken = token
		a.ConfirmationCookie = cookie
	})
}

func (r *memAccountRepo) GetByConfirmationToken(_ context.Context, token string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ConfirmationToken == token && token != "" {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) ClearConfirmationSecret(_ context.Context, sub int64) error {
	return r.mutate(sub, func(a *domain.Account) {
		a.ConfirmationToken = ""
		a.ConfirmationCookie = ""
	})
}

func (r *memAccountRepo) SetResetSecret(_ context.Context, sub int64, token, cookie string) error {
	return r.mutate(sub, func(a *domain.Account) {
		a.ResetToken = token
		a.ResetCookie = cookie
	})
}

func (r *memAccountRepo) GetByResetToken(_ context.Context, token string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ResetToken == token && token != "" {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) ClearResetSecret(_ context.Context, sub int64) error {
	return r.mutate(sub, func(a *domain.Account) {
		a.ResetToken = ""
		a.ResetCookie = ""
	})
}

func (r *memAccountRepo) Delete(_ context.Context, sub int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[sub]; !ok {
		return repository.ErrNotFound
	}
	delete(r.accounts, sub)
	return nil
}

func (r *memAccountRepo) List(_ context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Account, 0)
	for _, a := range r.accounts {
		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}
		out = append(out, *cloneAccount(a))
	}
	return out, nil
}

func (r *memAccountRepo) mutate(sub int64, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[sub]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	return nil
}

var _ port.AccountRepository = (*memAccountRepo)(nil)

// memGroupRepo is an in-memory port.GroupRepository.
type memGroupRepo struct {
	mu     sync.Mutex
	nextID int64
	groups map[int64]*domain.Group
}

func newMemGroupRepo(groups ...*domain.Group) *memGroupRepo {
	repo := &memGroupRepo{groups: make(map[int64]*domain.Group), nextID: 1}
	for _, g := range groups {
		clone := *g
		repo.groups[g.ID] = &clone
		if g.ID >= repo.nextID {
			repo.nextID = g.ID + 1
		}
	}
	return repo
}

func (r *memGroupRepo) Create(_ context.Context, group domain.Group) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group.ID = r.nextID
	r.nextID++
	clone := group
	r.groups[group.ID] = &clone
	return group.ID, nil
}

func (r *memGroupRepo) GetByID(_ context.Context, id int64) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[id]; ok {
		clone := *g
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memGroupRepo) Update(_ context.Context, group domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[group.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := group
	r.groups[group.ID] = &clone
	return nil
}

func (r *memGroupRepo) ListActiveIDsFor(_ context.Context, sub int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0)
	for _, g := range r.groups {
		if !g.Active {
			continue
		}
		if containsSub(g.AdminSubs, sub) || containsSub(g.MemberSubs, sub) {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

func (r *memGroupRepo) ListFor(_ context.Context, sub int64) ([]domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Group, 0)
	for _, g := range r.groups {
		if containsSub(g.AdminSubs, sub) || containsSub(g.MemberSubs, sub) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func containsSub(subs []int64, sub int64) bool {
	for _, s := range subs {
		if s == sub {
			return true
		}
	}
	return false
}

var _ port.GroupRepository = (*memGroupRepo)(nil)

// memSequence allocates subs in memory.
type memSequence struct {
	mu   sync.Mutex
	next int64
}

func newMemSequence(start int64) *memSequence {
	return &memSequence{next: start}
}

func (s *memSequence) Next(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.next
	s.next++
	return sub, nil
}

var _ port.SubSequence = (*memSequence)(nil)

// memLimitStore counts failures in memory; fail can be set to simulate an
// outage.
type memLimitStore struct {
	mu     sync.Mutex
	counts map[string]int
	fail   error
}

func newMemLimitStore() *memLimitStore {
	return &memLimitStore{counts: make(map[string]int)}
}

func (s *memLimitStore) RecordFailure(_ context.Context, identifier string, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	s.counts[identifier]++
	return s.counts[identifier], nil
}

func (s *memLimitStore) CountFailures(_ context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	return s.counts[identifier], nil
}

func (s *memLimitStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	delete(s.counts, identifier)
	return nil
}

var _ port.LoginLimitStore = (*memLimitStore)(nil)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu         sync.Mutex
	logins     []domain.LoginEvent
	failures   []domain.LoginFailedEvent
	registers  []domain.AccountRegisteredEvent
	associates []domain.IdentityAssociatedEvent
	disconns   []domain.IdentityDisconnectedEvent
	pwChanges  []domain.PasswordChangedEvent
	disables   []domain.AccountDisabledEvent
}

func (p *recordingPublisher) PublishLogin(_ context.Context, e domain.LoginEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, e)
	return nil
}

func (p *recordingPublisher) PublishLoginFailed(_ context.Context, e domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, e)
	return nil
}

func (p *recordingPublisher) PublishAccountRegistered(_ context.Context, e domain.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registers = append(p.registers, e)
	return nil
}

func (p *recordingPublisher) PublishIdentityAssociated(_ context.Context, e domain.IdentityAssociatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.associates = append(p.associates, e)
	return nil
}

func (p *recordingPublisher) PublishIdentityDisconnected(_ context.Context, e domain.IdentityDisconnectedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconns = append(p.disconns, e)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, e domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwChanges = append(p.pwChanges, e)
	return nil
}

func (p *recordingPublisher) PublishAccountDisabled(_ context.Context, e domain.AccountDisabledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disables = append(p.disables, e)
	return nil
}

var _ port.EventPublisher = (*recordingPublisher)(nil)

// recordingMailer captures sent messages; fail makes Send return it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []port.Message
	fail error
}

func (m *recordingMailer) Send(_ context.Context, msg port.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

var _ port.Mailer = (*recordingMailer)(nil)

func testSigner(t *testing.T) *security.ClaimSigner {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	return security.NewClaimSigner(&security.StaticKeyProvider{Key: key}, "auth-test")
}

func testClaimSettings() config.ClaimSettings {
	return config.ClaimSettings{
		Issuer:    "auth-test",
		TTL:       24 * time.Hour,
		TicketTTL: 5 * time.Minute,
	}
}

func testLimiterSettings() config.LimiterSettings {
	return config.LimiterSettings{
		Window:       time.Hour,
		Threshold:    3,
		FailOpen:     true,
		StoreTimeout: time.Second,
		FailureDelay: 0,
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
