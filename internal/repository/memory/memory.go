// Package memory provides an in-process implementation of the repository
// interfaces, used by engine tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/repository"
)

type paymentKey struct {
	planID uuid.UUID
	number int
}

type state struct {
	plans     map[uuid.UUID]*domain.InstallmentPlan
	payments  map[uuid.UUID][]*domain.InstallmentPayment
	numbers   map[paymentKey]bool
	customers map[string]domain.Customer
	products  map[string]domain.Product
}

// Store implements repository.PlanRepository and repository.CatalogRepository.
type Store struct {
	mu sync.RWMutex
	state
}

func New() *Store {
	return &Store{state: state{
		plans:     make(map[uuid.UUID]*domain.InstallmentPlan),
		payments:  make(map[uuid.UUID][]*domain.InstallmentPayment),
		numbers:   make(map[paymentKey]bool),
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
	}}
}

// AddCustomer seeds the catalog.
func (s *Store) AddCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// AddProduct seeds the catalog.
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.Ref] = p
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetProduct(_ context.Context, ref string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) InsertPlan(_ context.Context, plan *domain.InstallmentPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insertPlan(plan)
}

func (s *Store) GetPlan(_ context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getPlan(id)
}

func (s *Store) UpdatePlanState(_ context.Context, id uuid.UUID, st domain.PlanState, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.updatePlanState(id, st, expectedVersion)
}

func (s *Store) InsertPayment(_ context.Context, payment *domain.InstallmentPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insertPayment(payment)
}

func (s *Store) CountPayments(_ context.Context, planID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments[planID]), nil
}

func (s *Store) ListPlans(_ context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listPlans(filter), nil
}

func (s *Store) ListPayments(_ context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listPayments(planID), nil
}

func (s *Store) ListPaymentsBetween(_ context.Context, from, to time.Time) ([]*domain.InstallmentPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listPaymentsBetween(from, to), nil
}

func (s *Store) DeletePlanCascade(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.deletePlan(id)
}

// WithTx runs fn with the store locked against a copy of its state. The copy
// replaces the live state only when fn succeeds.
func (s *Store) WithTx(_ context.Context, fn func(repository.PlanRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &txView{state: s.state.snapshot()}
	if err := fn(view); err != nil {
		return err
	}

	s.state = view.state
	return nil
}

// txView is the repository handed to WithTx callbacks. The owning Store's
// lock is already held, so it takes none.
type txView struct {
	state state
}

func (v *txView) InsertPlan(_ context.Context, plan *domain.InstallmentPlan) error {
	return v.state.insertPlan(plan)
}

func (v *txView) GetPlan(_ context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	return v.state.getPlan(id)
}

func (v *txView) UpdatePlanState(_ context.Context, id uuid.UUID, st domain.PlanState, expectedVersion int) error {
	return v.state.updatePlanState(id, st, expectedVersion)
}

func (v *txView) InsertPayment(_ context.Context, payment *domain.InstallmentPayment) error {
	return v.state.insertPayment(payment)
}

func (v *txView) CountPayments(_ context.Context, planID uuid.UUID) (int, error) {
	return len(v.state.payments[planID]), nil
}

func (v *txView) ListPlans(_ context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	return v.state.listPlans(filter), nil
}

func (v *txView) ListPayments(_ context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	return v.state.listPayments(planID), nil
}

func (v *txView) ListPaymentsBetween(_ context.Context, from, to time.Time) ([]*domain.InstallmentPayment, error) {
	return v.state.listPaymentsBetween(from, to), nil
}

func (v *txView) DeletePlanCascade(_ context.Context, id uuid.UUID) error {
	return v.state.deletePlan(id)
}

func (v *txView) WithTx(_ context.Context, fn func(repository.PlanRepository) error) error {
	return fn(v)
}

func (st *state) snapshot() state {
	cp := state{
		plans:     make(map[uuid.UUID]*domain.InstallmentPlan, len(st.plans)),
		payments:  make(map[uuid.UUID][]*domain.InstallmentPayment, len(st.payments)),
		numbers:   make(map[paymentKey]bool, len(st.numbers)),
		customers: st.customers,
		products:  st.products,
	}
	for id, p := range st.plans {
		cp.plans[id] = p.Clone()
	}
	for id, ps := range st.payments {
		cp.payments[id] = append([]*domain.InstallmentPayment(nil), ps...)
	}
	for k, v := range st.numbers {
		cp.numbers[k] = v
	}
	return cp
}

func (st *state) insertPlan(plan *domain.InstallmentPlan) error {
	if _, exists := st.plans[plan.ID]; exists {
		return repository.ErrVersionConflict
	}
	st.plans[plan.ID] = plan.Clone()
	return nil
}

func (st *state) getPlan(id uuid.UUID) (*domain.InstallmentPlan, error) {
	p, ok := st.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (st *state) updatePlanState(id uuid.UUID, ps domain.PlanState, expectedVersion int) error {
	p, ok := st.plans[id]
	if !ok || p.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	updated := p.Clone()
	updated.Apply(ps)
	st.plans[id] = updated
	return nil
}

func (st *state) insertPayment(payment *domain.InstallmentPayment) error {
	key := paymentKey{planID: payment.PlanID, number: payment.PaymentNumber}
	if st.numbers[key] {
		return repository.ErrVersionConflict
	}
	cp := *payment
	st.numbers[key] = true
	st.payments[payment.PlanID] = append(st.payments[payment.PlanID], &cp)
	return nil
}

func (st *state) listPlans(filter domain.PlanFilter) []*domain.InstallmentPlan {
	plans := make([]*domain.InstallmentPlan, 0)
	for _, p := range st.plans {
		if matches(p, filter) {
			cp := p.Clone()
			cp.LineItems = nil
			plans = append(plans, cp)
		}
	}

	byDue := filter.DueBefore != nil || filter.DueOn != nil
	sort.Slice(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if byDue && !a.NextPaymentDueDate.Equal(*b.NextPaymentDueDate) {
			return a.NextPaymentDueDate.Before(*b.NextPaymentDueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if byDue {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	if filter.Limit > 0 && len(plans) > filter.Limit {
		plans = plans[:filter.Limit]
	}
	return plans
}

func matches(p *domain.InstallmentPlan, filter domain.PlanFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.CustomerID != "" && p.CustomerID != filter.CustomerID {
		return false
	}
	if filter.DueBefore != nil && (p.NextPaymentDueDate == nil || !p.NextPaymentDueDate.Before(*filter.DueBefore)) {
		return false
	}
	if filter.DueOn != nil && (p.NextPaymentDueDate == nil || !p.NextPaymentDueDate.Equal(*filter.DueOn)) {
		return false
	}
	return true
}

func (st *state) listPayments(planID uuid.UUID) []*domain.InstallmentPayment {
	payments := make([]*domain.InstallmentPayment, 0, len(st.payments[planID]))
	for _, p := range st.payments[planID] {
		cp := *p
		payments = append(payments, &cp)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].PaymentNumber < payments[j].PaymentNumber
	})
	return payments
}

func (st *state) listPaymentsBetween(from, to time.Time) []*domain.InstallmentPayment {
	payments := make([]*domain.InstallmentPayment, 0)
	for _, ps := range st.payments {
		for _, p := range ps {
			if !p.PaymentDate.Before(from) && p.PaymentDate.Before(to) {
				cp := *p
				payments = append(payments, &cp)
			}
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.Before(payments[j].PaymentDate)
		}
		return payments[i].PaymentNumber < payments[j].PaymentNumber
	})
	return payments
}

func (st *state) deletePlan(id uuid.UUID) error {
	if _, ok := st.plans[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range st.payments[id] {
		delete(st.numbers, paymentKey{planID: id, number: p.PaymentNumber})
	}
	delete(st.payments, id)
	delete(st.plans, id)
	return nil
}

var (
	_ repository.PlanRepository    = (*Store)(nil)
	_ repository.CatalogRepository = (*Store)(nil)
	_ repository.PlanRepository    = (*txView)(nil)
)
