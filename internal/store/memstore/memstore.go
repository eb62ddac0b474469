// Package memstore is an in-memory store.Store used by tests and local runs.
//
// Transactions work on a copy of the data that replaces the live copy on
// success. Calling methods on the parent Store from inside WithinTx deadlocks.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

type data struct {
	accounts     map[string]*model.Account
	emails       map[string]string
	profiles     map[string]*model.Profile
	roles        map[string]*model.Role
	accountRoles map[string]map[string]struct{}
	campaigns    map[string]*model.Campaign
	targets      map[string]*model.CampaignTarget
	targetHashes map[string]string
	templates    map[string]*model.PhishingTemplate
	content      map[string]*model.EducationalContent
	results      map[string]*model.CampaignResult
	events       map[string]struct{}
}

func newData() *data {
	return &data{
		accounts:     make(map[string]*model.Account),
		emails:       make(map[string]string),
		profiles:     make(map[string]*model.Profile),
		roles:        make(map[string]*model.Role),
		accountRoles: make(map[string]map[string]struct{}),
		campaigns:    make(map[string]*model.Campaign),
		targets:      make(map[string]*model.CampaignTarget),
		targetHashes: make(map[string]string),
		templates:    make(map[string]*model.PhishingTemplate),
		content:      make(map[string]*model.EducationalContent),
		results:      make(map[string]*model.CampaignResult),
		events:       make(map[string]struct{}),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range d.emails {
		c.emails[k] = v
	}
	for k, v := range d.profiles {
		p := *v
		c.profiles[k] = &p
	}
	for k, v := range d.roles {
		r := *v
		r.Permissions = append([]string(nil), v.Permissions...)
		c.roles[k] = &r
	}
	for k, set := range d.accountRoles {
		cs := make(map[string]struct{}, len(set))
		for name := range set {
			cs[name] = struct{}{}
		}
		c.accountRoles[k] = cs
	}
	for k, v := range d.campaigns {
		cp := *v
		c.campaigns[k] = &cp
	}
	for k, v := range d.targets {
		t := *v
		c.targets[k] = &t
	}
	for k, v := range d.targetHashes {
		c.targetHashes[k] = v
	}
	for k, v := range d.templates {
		t := *v
		c.templates[k] = &t
	}
	for k, v := range d.content {
		e := *v
		c.content[k] = &e
	}
	for k, v := range d.results {
		r := *v
		c.results[k] = &r
	}
	for k := range d.events {
		c.events[k] = struct{}{}
	}
	return c
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// view implements store.Tx over one copy of the data.
type view struct {
	lock sync.Locker
	d    *data
}

var _ store.Tx = (*view)(nil)

// Store is a concurrency-safe in-memory store.Store.
type Store struct {
	*view
	mu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.view = &view{lock: &s.mu, d: newData()}
	return s
}

// WithinTx runs fn against a private copy that is published only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.d.clone()
	if err := fn(ctx, &view{lock: noopLocker{}, d: draft}); err != nil {
		return err
	}
	s.d = draft
	return nil
}

// AddContent inserts a library item.
func (s *Store) AddContent(c *model.EducationalContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.d.content[c.ID] = &cp
}

// RecordTrackingEvents applies events for targets of active campaigns,
// skipping already-seen event ids.
func (s *Store) RecordTrackingEvents(_ context.Context, events []model.TrackingEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, e := range events {
		if _, seen := s.d.events[e.EventID]; seen {
			continue
		}
		target, ok := s.d.targets[e.TargetID]
		if !ok {
			continue
		}
		if c, ok := s.d.campaigns[target.CampaignID]; !ok || c.Status != model.CampaignActive {
			continue
		}
		s.d.events[e.EventID] = struct{}{}

		r, ok := s.d.results[target.ID]
		if !ok {
			r = &model.CampaignResult{
				ID:         ulid.Make().String(),
				CampaignID: target.CampaignID,
				TargetID:   target.ID,
				Result:     model.ResultNotDelivered,
			}
			s.d.results[target.ID] = r
		}
		model.ApplyEvent(r, e)
		applied++
	}
	return applied, nil
}

func (v *view) CreateAccount(_ context.Context, a *model.Account) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	key := model.NormalizeEmail(a.Email)
	if _, taken := v.d.emails[key]; taken {
		return store.ErrEmailExists
	}
	cp := *a
	v.d.accounts[a.ID] = &cp
	v.d.emails[key] = a.ID
	return nil
}

func (v *view) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	a, ok := v.d.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, store.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (v *view) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	id, ok := v.d.emails[model.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	a := v.d.accounts[id]
	if a.DeletedAt != nil {
		return nil, store.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (v *view) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	a, ok := v.d.accounts[id]
	if !ok {
		return store.ErrAccountNotFound
	}
	t := at
	a.LastLoginAt = &t
	return nil
}

func (v *view) ListAccounts(_ context.Context, limit, offset int) ([]*model.AccountSummary, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	accounts := make([]*model.Account, 0, len(v.d.accounts))
	for _, a := range v.d.accounts {
		if a.DeletedAt == nil {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	out := make([]*model.AccountSummary, 0, limit)
	for i := offset; i < len(accounts) && len(out) < limit; i++ {
		a := accounts[i]
		s := &model.AccountSummary{
			ID:        a.ID,
			Email:     a.Email,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Roles:     v.rolesOf(a.ID),
			CreatedAt: a.CreatedAt,
		}
		if p, ok := v.d.profiles[a.ID]; ok {
			s.Tier = p.Tier
			s.Status = p.Status
		}
		out = append(out, s)
	}
	return out, nil
}

func (v *view) CreateProfile(_ context.Context, p *model.Profile) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.d.accounts[p.AccountID]; !ok {
		return store.ErrAccountNotFound
	}
	cp := *p
	v.d.profiles[p.AccountID] = &cp
	return nil
}

func (v *view) GetProfile(_ context.Context, accountID string) (*model.Profile, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	p, ok := v.d.profiles[accountID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (v *view) UpdateTier(_ context.Context, accountID string, tier model.SubscriptionTier, at time.Time) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	p, ok := v.d.profiles[accountID]
	if !ok {
		return store.ErrProfileNotFound
	}
	p.Tier = tier
	p.UpdatedAt = at
	return nil
}

func (v *view) EnsureRole(_ context.Context, name string, permissions []string) (bool, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.d.roles[name]; ok {
		return false, nil
	}
	v.d.roles[name] = &model.Role{
		ID:          ulid.Make().String(),
		Name:        name,
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   time.Now().UTC(),
	}
	return true, nil
}

func (v *view) AssignRole(_ context.Context, accountID, roleName string) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.d.accounts[accountID]; !ok {
		return store.ErrAccountNotFound
	}
	if _, ok := v.d.roles[roleName]; !ok {
		return store.ErrRoleNotFound
	}
	set, ok := v.d.accountRoles[accountID]
	if !ok {
		set = make(map[string]struct{})
		v.d.accountRoles[accountID] = set
	}
	set[roleName] = struct{}{}
	return nil
}

func (v *view) RolesOf(_ context.Context, accountID string) ([]string, error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.rolesOf(accountID), nil
}

func (v *view) rolesOf(accountID string) []string {
	out := make([]string, 0, len(v.d.accountRoles[accountID]))
	for name := range v.d.accountRoles[accountID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (v *view) PermissionsOf(_ context.Context, roleNames []string) ([]string, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, name := range roleNames {
		r, ok := v.d.roles[name]
		if !ok {
			continue
		}
		for _, p := range r.Permissions {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (v *view) CreateCampaign(_ context.Context, c *model.Campaign) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.d.templates[c.TemplateID]; !ok {
		return store.ErrTemplateNotFound
	}
	cp := *c
	v.d.campaigns[c.ID] = &cp
	return nil
}

func (v *view) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	c, ok := v.d.campaigns[id]
	if !ok {
		return nil, store.ErrCampaignNotFound
	}
	return v.withCount(c), nil
}

func (v *view) ListCampaignsByOwner(_ context.Context, ownerID string) ([]*model.Campaign, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	out := make([]*model.Campaign, 0)
	for _, c := range v.d.campaigns {
		if c.OwnerID == ownerID {
			out = append(out, v.withCount(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v *view) withCount(c *model.Campaign) *model.Campaign {
	cp := *c
	cp.TargetCount = 0
	for _, t := range v.d.targets {
		if t.CampaignID == c.ID {
			cp.TargetCount++
		}
	}
	return &cp
}

func (v *view) UpdateCampaignStatus(_ context.Context, c *model.Campaign) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	existing, ok := v.d.campaigns[c.ID]
	if !ok {
		return store.ErrCampaignNotFound
	}
	existing.Status = c.Status
	existing.StartedAt = c.StartedAt
	existing.CompletedAt = c.CompletedAt
	existing.UpdatedAt = c.UpdatedAt
	return nil
}

func (v *view) AddTarget(_ context.Context, t *model.CampaignTarget) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.d.campaigns[t.CampaignID]; !ok {
		return store.ErrCampaignNotFound
	}
	cp := *t
	v.d.targets[t.ID] = &cp
	v.d.targetHashes[t.TokenHash] = t.ID
	return nil
}

func (v *view) MarkTargetsDelivered(_ context.Context, campaignID string, at time.Time) (int64, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	var n int64
	for _, t := range v.d.targets {
		if t.CampaignID != campaignID {
			continue
		}
		if _, ok := v.d.results[t.ID]; ok {
			continue
		}
		v.d.results[t.ID] = model.NewDeliveredResult(ulid.Make().String(), campaignID, t.ID, at)
		n++
	}
	return n, nil
}

func (v *view) ListResults(_ context.Context, campaignID string) ([]*model.CampaignResult, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	targets := make([]*model.CampaignTarget, 0)
	for _, t := range v.d.targets {
		if t.CampaignID == campaignID {
			targets = append(targets, t)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })

	out := make([]*model.CampaignResult, 0, len(targets))
	for _, t := range targets {
		r := model.CampaignResult{CampaignID: campaignID, TargetID: t.ID, Result: model.ResultNotDelivered}
		if existing, ok := v.d.results[t.ID]; ok {
			r = *existing
		}
		r.Email = t.Email
		r.PhoneNumber = t.PhoneNumber
		out = append(out, &r)
	}
	return out, nil
}

func (v *view) ResolveTrackingToken(_ context.Context, tokenHash string) (*model.TrackingTarget, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	id, ok := v.d.targetHashes[tokenHash]
	if !ok {
		return nil, store.ErrTargetNotFound
	}
	t := v.d.targets[id]
	c, ok := v.d.campaigns[t.CampaignID]
	if !ok {
		return nil, store.ErrTargetNotFound
	}

	out := &model.TrackingTarget{
		TargetID:       t.ID,
		CampaignID:     c.ID,
		CampaignStatus: c.Status,
	}
	if tmpl, ok := v.d.templates[c.TemplateID]; ok {
		out.LandingURL = tmpl.LandingURL
	}
	return out, nil
}

func (v *view) CreateTemplate(_ context.Context, t *model.PhishingTemplate) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	cp := *t
	v.d.templates[t.ID] = &cp
	return nil
}

func (v *view) GetTemplate(_ context.Context, id string) (*model.PhishingTemplate, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	t, ok := v.d.templates[id]
	if !ok {
		return nil, store.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (v *view) ListTemplates(_ context.Context, accountID string) ([]*model.PhishingTemplate, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	out := make([]*model.PhishingTemplate, 0)
	for _, t := range v.d.templates {
		if t.VisibleTo(accountID) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *view) ListContent(_ context.Context, f model.ContentFilter) ([]*model.EducationalContent, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	out := make([]*model.EducationalContent, 0)
	for _, c := range v.d.content {
		if !c.IsActive {
			continue
		}
		if f.Difficulty != "" && c.Difficulty != f.Difficulty {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
