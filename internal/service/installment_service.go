package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/metrics"
	"github.com/segyhp/layaway-engine/internal/repository"
	customError "github.com/segyhp/layaway-engine/pkg/errors"
	"github.com/segyhp/layaway-engine/pkg/utils"
)

// Clock returns the current instant. Tests pin it.
type Clock func() time.Time

// Policy holds the business rules the engine enforces.
type Policy struct {
	CurrencyScale      int32
	MinInstallments    int
	MaxInstallments    int
	MaxConflictRetries int
	ListLimit          int
	Location           *time.Location
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		CurrencyScale:      cfg.Business.CurrencyScale,
		MinInstallments:    cfg.Business.MinInstallments,
		MaxInstallments:    cfg.Business.MaxInstallments,
		MaxConflictRetries: cfg.Business.MaxConflictRetries,
		ListLimit:          cfg.Business.ListLimit,
		Location:           cfg.Location(),
	}
}

// DefaultPolicy is whole-currency amounts, 2..60 installments, 3 attempts, UTC.
func DefaultPolicy() Policy {
	return Policy{
		CurrencyScale:      0,
		MinInstallments:    2,
		MaxInstallments:    60,
		MaxConflictRetries: 3,
		ListLimit:          500,
		Location:           time.UTC,
	}
}

type InstallmentService struct {
	PlanRepo repository.PlanRepository
	Catalog  repository.CatalogRepository
	Cache    cache.SummaryCache
	Logger   *logrus.Logger
	Clock    Clock
	Policy   Policy
}

func NewInstallmentService(
	planRepo repository.PlanRepository,
	catalog repository.CatalogRepository,
	summaryCache cache.SummaryCache,
	cfg *config.Config,
	logger *logrus.Logger,
) *InstallmentService {
	return &InstallmentService{
		PlanRepo: planRepo,
		Catalog:  catalog,
		Cache:    summaryCache,
		Logger:   logger,
		Clock:    time.Now,
		Policy:   PolicyFromConfig(cfg),
	}
}

// Today is the current calendar date in the business timezone.
func (s *InstallmentService) Today() time.Time {
	return utils.Today(s.Clock(), s.Policy.Location)
}

// CreatePlan prices the requested items, splits the total into installments
// and stores the plan with its item snapshot.
func (s *InstallmentService) CreatePlan(ctx context.Context, actor domain.Actor, request *domain.CreatePlanRequest) (*domain.CreatePlanResponse, error) {
	if request.CustomerID == "" {
		return nil, customError.WrapValidation("customer_id", "Customer is required", customError.ErrMissingCustomer)
	}
	if len(request.Items) == 0 {
		return nil, customError.WrapInvalidLineItems("At least one line item is required", customError.ErrEmptyLineItems)
	}
	if !request.Cadence.Valid() {
		return nil, customError.WrapInvalidCadence(string(request.Cadence))
	}
	if request.InstallmentCount < s.Policy.MinInstallments || request.InstallmentCount > s.Policy.MaxInstallments {
		return nil, customError.WrapInvalidInstallmentCount(request.InstallmentCount, s.Policy.MinInstallments, s.Policy.MaxInstallments)
	}
	startDate, err := s.dateOrToday("start_date", request.StartDate)
	if err != nil {
		return nil, err
	}

	// 1. Resolve the customer
	customer, err := s.Catalog.GetCustomer(ctx, request.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapCustomerNotFound(request.CustomerID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if !customer.Active {
		return nil, customError.WrapCustomerNotFound(request.CustomerID)
	}

	// 2. Snapshot line items at their sale price
	planID := uuid.New()
	items := make([]*domain.LineItem, 0, len(request.Items))
	total := decimal.Zero
	for i, req := range request.Items {
		if req == nil || req.ProductRef == "" {
			return nil, customError.WrapInvalidLineItems(fmt.Sprintf("Item %d has no product", i+1), customError.ErrEmptyLineItems)
		}
		if req.Quantity <= 0 {
			return nil, customError.WrapInvalidLineItems(fmt.Sprintf("Item %d quantity must be greater than zero", i+1), customError.ErrInvalidQuantity)
		}

		product, err := s.Catalog.GetProduct(ctx, req.ProductRef)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, customError.WrapProductNotFound(req.ProductRef)
			}
			return nil, customError.WrapDatabaseError(err)
		}
		if !product.Active {
			return nil, customError.WrapProductNotFound(req.ProductRef)
		}

		unitPrice := product.Price
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		unitPrice = utils.RoundMoney(unitPrice, s.Policy.CurrencyScale)
		if !unitPrice.IsPositive() {
			return nil, customError.WrapInvalidLineItems(fmt.Sprintf("Item %d unit price must be greater than zero", i+1), customError.ErrInvalidUnitPrice)
		}

		subtotal := utils.LineTotal(req.Quantity, unitPrice, s.Policy.CurrencyScale)
		items = append(items, &domain.LineItem{
			ID:          uuid.New(),
			PlanID:      planID,
			LineNumber:  i + 1,
			ProductRef:  product.Ref,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			UnitPrice:   unitPrice,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}

	// 3. Split the total; the last installment absorbs rounding
	installment, final := utils.SplitInstallments(total, request.InstallmentCount, s.Policy.CurrencyScale)
	if !installment.IsPositive() || !final.IsPositive() {
		return nil, customError.WrapTotalTooSmall(total.String(), request.InstallmentCount)
	}

	nextDue := domain.AddCadence(startDate, request.Cadence)
	now := s.Clock().UTC()

	plan := &domain.InstallmentPlan{
		ID:                 planID,
		CustomerID:         customer.ID,
		LineItems:          items,
		TotalAmount:        total,
		Cadence:            request.Cadence,
		InstallmentCount:   request.InstallmentCount,
		InstallmentAmount:  installment,
		StartDate:          startDate,
		NextPaymentDueDate: &nextDue,
		PaidAmount:         decimal.Zero,
		RemainingAmount:    total,
		Status:             domain.PlanStatusActive,
		Notes:              request.Notes,
		CreatedBy:          actor.ID,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// 4. Persist plan and items atomically
	if err := s.PlanRepo.InsertPlan(ctx, plan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	metrics.PlansCreated.Inc()
	s.invalidateSummary(ctx)
	s.Logger.WithFields(logrus.Fields{
		"plan_id":     plan.ID,
		"customer_id": plan.CustomerID,
		"total":       plan.TotalAmount.String(),
		"count":       plan.InstallmentCount,
		"actor":       actor.ID,
	}).Info("installment plan created")

	return &domain.CreatePlanResponse{
		Plan:     plan,
		Schedule: domain.BuildSchedule(plan, startDate),
	}, nil
}

// RecordPayment applies a payment to a plan. The read-validate-write cycle
// runs under the plan's version and is retried on conflict.
func (s *InstallmentService) RecordPayment(ctx context.Context, actor domain.Actor, planID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	amount := request.Amount
	if !amount.IsPositive() || !amount.Equal(utils.RoundMoney(amount, s.Policy.CurrencyScale)) {
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	}
	if !request.PaymentMethod.Valid() {
		return nil, customError.WrapInvalidPaymentMethod(string(request.PaymentMethod))
	}

	paymentDate, err := s.dateOrToday("payment_date", request.PaymentDate)
	if err != nil {
		return nil, err
	}

	var result *domain.RecordPaymentResponse
	err = s.withRetry(ctx, "record_payment", planID, func(tx repository.PlanRepository) error {
		plan, err := s.loadPlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !plan.Status.AcceptsPayments() {
			return customError.WrapPlanClosed(planID.String(), string(plan.Status))
		}
		if amount.GreaterThan(plan.RemainingAmount) {
			return customError.WrapExceedsRemainingBalance(amount.String(), plan.RemainingAmount.String())
		}

		count, err := tx.CountPayments(ctx, planID)
		if err != nil {
			return err
		}

		now := s.Clock().UTC()
		state := s.stateAfterPayment(plan, amount, now)
		if err := tx.UpdatePlanState(ctx, planID, state, plan.Version); err != nil {
			return err
		}

		payment := &domain.InstallmentPayment{
			ID:            uuid.New(),
			PlanID:        planID,
			PaymentNumber: count + 1,
			Amount:        amount,
			PaymentDate:   paymentDate,
			PaymentMethod: request.PaymentMethod,
			Notes:         request.Notes,
			CreatedBy:     actor.ID,
			CreatedAt:     now,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		plan.Apply(state)
		result = &domain.RecordPaymentResponse{Payment: payment, Plan: plan}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(request.PaymentMethod)).Inc()
	if result.Plan.Status == domain.PlanStatusCompleted {
		metrics.PlansCompleted.Inc()
	}
	s.invalidateSummary(ctx)
	s.Logger.WithFields(logrus.Fields{
		"plan_id":        planID,
		"payment_number": result.Payment.PaymentNumber,
		"amount":         amount.String(),
		"remaining":      result.Plan.RemainingAmount.String(),
		"status":         result.Plan.Status,
		"actor":          actor.ID,
	}).Info("installment payment recorded")

	return result, nil
}

// stateAfterPayment computes totals, next due date and status once amount
// is applied. Completion depends only on the remaining balance.
func (s *InstallmentService) stateAfterPayment(plan *domain.InstallmentPlan, amount decimal.Decimal, now time.Time) domain.PlanState {
	state := plan.State()
	state.PaidAmount = plan.PaidAmount.Add(amount)
	state.RemainingAmount = plan.TotalAmount.Sub(state.PaidAmount)
	state.PaidInstallmentCount = plan.PaidInstallmentCount + 1
	state.UpdatedAt = now

	if state.RemainingAmount.IsZero() {
		state.Status = domain.PlanStatusCompleted
		state.NextPaymentDueDate = nil
		return state
	}

	previous := plan.StartDate
	if plan.NextPaymentDueDate != nil {
		previous = *plan.NextPaymentDueDate
	}
	next := domain.AddCadence(previous, plan.Cadence)
	state.NextPaymentDueDate = &next
	if utils.IsDateOverdue(next, utils.Today(now, s.Policy.Location)) {
		state.Status = domain.PlanStatusOverdue
	} else {
		state.Status = domain.PlanStatusActive
	}
	return state
}

// CancelPlan closes an active or overdue plan. Recorded payments and totals
// are left as they are.
func (s *InstallmentService) CancelPlan(ctx context.Context, actor domain.Actor, planID uuid.UUID, reason string) (*domain.InstallmentPlan, error) {
	var cancelled *domain.InstallmentPlan
	err := s.withRetry(ctx, "cancel_plan", planID, func(tx repository.PlanRepository) error {
		plan, err := s.loadPlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !plan.Status.AcceptsPayments() {
			return customError.WrapPlanClosed(planID.String(), string(plan.Status))
		}

		now := s.Clock().UTC()
		state := plan.State()
		state.Status = domain.PlanStatusCancelled
		state.CancelReason = reason
		state.CancelledAt = &now
		state.UpdatedAt = now
		if err := tx.UpdatePlanState(ctx, planID, state, plan.Version); err != nil {
			return err
		}

		plan.Apply(state)
		cancelled = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PlansCancelled.Inc()
	s.invalidateSummary(ctx)
	s.Logger.WithFields(logrus.Fields{
		"plan_id": planID,
		"reason":  reason,
		"actor":   actor.ID,
	}).Info("installment plan cancelled")

	return cancelled, nil
}

// DeletePlan removes a plan with its payments and items.
func (s *InstallmentService) DeletePlan(ctx context.Context, actor domain.Actor, planID uuid.UUID) error {
	if err := s.PlanRepo.DeletePlanCascade(ctx, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return customError.WrapPlanNotFound(planID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	s.invalidateSummary(ctx)
	s.Logger.WithFields(logrus.Fields{
		"plan_id": planID,
		"actor":   actor.ID,
	}).Warn("installment plan purged")

	return nil
}

func (s *InstallmentService) GetPlan(ctx context.Context, planID uuid.UUID) (*domain.InstallmentPlan, error) {
	plan, err := s.loadPlan(ctx, s.PlanRepo, planID)
	if err != nil {
		return nil, s.wrapStoreError(err)
	}
	return plan, nil
}

// GetPlanDetail returns a plan together with its payment history.
func (s *InstallmentService) GetPlanDetail(ctx context.Context, planID uuid.UUID) (*domain.PlanDetailResponse, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	payments, err := s.PlanRepo.ListPayments(ctx, planID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.PlanDetailResponse{Plan: plan, Payments: payments}, nil
}

func (s *InstallmentService) ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, customError.WrapValidation("status", fmt.Sprintf("Unknown plan status %q", status), nil)
		}
	}
	if filter.Limit <= 0 || filter.Limit > s.Policy.ListLimit {
		filter.Limit = s.Policy.ListLimit
	}

	plans, err := s.PlanRepo.ListPlans(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return plans, nil
}

func (s *InstallmentService) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	if _, err := s.GetPlan(ctx, planID); err != nil {
		return nil, err
	}

	payments, err := s.PlanRepo.ListPayments(ctx, planID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// ListOverdue returns open plans whose next due date is before asOf. Plans
// the sweep has not reached yet are reported with their derived status.
func (s *InstallmentService) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.InstallmentPlan, error) {
	day := utils.DateOf(asOf)
	plans, err := s.ListPlans(ctx, domain.PlanFilter{
		Statuses:  []domain.PlanStatus{domain.PlanStatusActive, domain.PlanStatusOverdue},
		DueBefore: &day,
	})
	if err != nil {
		return nil, err
	}

	for _, p := range plans {
		p.Status = p.RefreshOverdueStatus(day)
	}
	return plans, nil
}

// ListDueOn returns open plans whose next installment falls on date.
func (s *InstallmentService) ListDueOn(ctx context.Context, date time.Time) ([]*domain.InstallmentPlan, error) {
	day := utils.DateOf(date)
	return s.ListPlans(ctx, domain.PlanFilter{
		Statuses: []domain.PlanStatus{domain.PlanStatusActive, domain.PlanStatusOverdue},
		DueOn:    &day,
	})
}

func (s *InstallmentService) ListDueToday(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	return s.ListDueOn(ctx, s.Today())
}

func (s *InstallmentService) GetSchedule(ctx context.Context, planID uuid.UUID) (*domain.ScheduleResponse, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	return &domain.ScheduleResponse{
		PlanID:   plan.ID.String(),
		Schedule: domain.BuildSchedule(plan, s.Today()),
	}, nil
}

// SweepOverdue moves every active plan whose due date is before asOf to
// overdue. Plans changed concurrently are skipped; the next sweep sees them.
func (s *InstallmentService) SweepOverdue(ctx context.Context, asOf time.Time) (int, error) {
	day := utils.DateOf(asOf)
	plans, err := s.PlanRepo.ListPlans(ctx, domain.PlanFilter{
		Statuses:  []domain.PlanStatus{domain.PlanStatusActive},
		DueBefore: &day,
	})
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	transitioned := 0
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return transitioned, err
		}

		status := plan.RefreshOverdueStatus(day)
		if status == plan.Status {
			continue
		}

		state := plan.State()
		state.Status = status
		state.UpdatedAt = s.Clock().UTC()
		if err := s.PlanRepo.UpdatePlanState(ctx, plan.ID, state, plan.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				metrics.ConcurrencyConflicts.WithLabelValues("sweep_overdue").Inc()
				s.Logger.WithFields(logrus.Fields{
					"plan_id": plan.ID,
					"actor":   domain.SystemActor.ID,
				}).Info("plan changed during overdue sweep, skipping")
				continue
			}
			return transitioned, customError.WrapDatabaseError(err)
		}
		transitioned++
	}

	if transitioned > 0 {
		metrics.OverdueTransitions.Add(float64(transitioned))
		s.invalidateSummary(ctx)
	}
	s.Logger.WithFields(logrus.Fields{
		"as_of":        day.Format(utils.DateLayout),
		"candidates":   len(plans),
		"transitioned": transitioned,
		"actor":        domain.SystemActor.ID,
	}).Info("overdue sweep finished")

	return transitioned, nil
}

// withRetry runs fn in a transaction, repeating it when a versioned write
// loses a race. Business errors end the loop immediately.
func (s *InstallmentService) withRetry(ctx context.Context, operation string, planID uuid.UUID, fn func(repository.PlanRepository) error) error {
	attempts := s.Policy.MaxConflictRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.PlanRepo.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return s.wrapStoreError(err)
		}

		metrics.ConcurrencyConflicts.WithLabelValues(operation).Inc()
		s.Logger.WithFields(logrus.Fields{
			"plan_id":   planID,
			"operation": operation,
			"attempt":   attempt,
		}).Debug("version conflict, retrying")

		if err := ctx.Err(); err != nil {
			return customError.WrapDatabaseError(err)
		}
	}

	return customError.WrapConcurrentModification(planID.String(), attempts)
}

// dateOrToday parses an optional YYYY-MM-DD request date, defaulting to the
// business date.
func (s *InstallmentService) dateOrToday(field, raw string) (time.Time, error) {
	if raw == "" {
		return s.Today(), nil
	}
	day, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, customError.WrapValidation(field, field+" must be a YYYY-MM-DD date", err)
	}
	return day, nil
}

func (s *InstallmentService) loadPlan(ctx context.Context, repo repository.PlanRepository, planID uuid.UUID) (*domain.InstallmentPlan, error) {
	plan, err := repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapPlanNotFound(planID.String())
		}
		return nil, err
	}
	return plan, nil
}

// wrapStoreError leaves business errors untouched and marks anything else as
// a store failure.
func (s *InstallmentService) wrapStoreError(err error) error {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func (s *InstallmentService) invalidateSummary(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, cache.SummaryKey); err != nil {
		s.Logger.WithError(customError.WrapCacheError(err)).Warn("failed to invalidate summary cache")
	}
}
