package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/identity"
	"github.com/segyhp/layaway-engine/internal/middleware"
	customError "github.com/segyhp/layaway-engine/pkg/errors"
	"github.com/segyhp/layaway-engine/pkg/response"
	"github.com/segyhp/layaway-engine/pkg/utils"
)

// InstallmentService is the engine surface the HTTP layer drives.
type InstallmentService interface {
	CreatePlan(ctx context.Context, actor domain.Actor, request *domain.CreatePlanRequest) (*domain.CreatePlanResponse, error)
	RecordPayment(ctx context.Context, actor domain.Actor, planID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error)
	CancelPlan(ctx context.Context, actor domain.Actor, planID uuid.UUID, reason string) (*domain.InstallmentPlan, error)
	DeletePlan(ctx context.Context, actor domain.Actor, planID uuid.UUID) error
	GetPlanDetail(ctx context.Context, planID uuid.UUID) (*domain.PlanDetailResponse, error)
	ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error)
	ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.InstallmentPlan, error)
	ListDueToday(ctx context.Context) ([]*domain.InstallmentPlan, error)
	GetSchedule(ctx context.Context, planID uuid.UUID) (*domain.ScheduleResponse, error)
	SweepOverdue(ctx context.Context, asOf time.Time) (int, error)
	Today() time.Time
}

type ReportService interface {
	GetSummary(ctx context.Context) (*domain.Stats, error)
}

type InstallmentHandler struct {
	service   InstallmentService
	reports   ReportService
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewInstallmentHandler(service InstallmentService, reports ReportService, logger *logrus.Logger) *InstallmentHandler {
	return &InstallmentHandler{
		service:   service,
		reports:   reports,
		validator: newValidator(),
		logger:    logger,
	}
}

// newValidator validates decimal fields through their string form.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes mounts the installment API on an authenticated router. Each
// route is checked against one capability.
func (h *InstallmentHandler) RegisterRoutes(api *mux.Router, authz identity.Authorizer) {
	guard := func(capability identity.Capability, fn http.HandlerFunc) http.Handler {
		return middleware.RequireCapability(authz, capability)(fn)
	}

	plans := api.PathPrefix("/installment-plans").Subrouter()
	// Fixed paths first so they are not captured by {id}
	plans.Handle("/overdue", guard(identity.CapPlansRead, h.ListOverdue)).Methods(http.MethodGet)
	plans.Handle("/overdue/sweep", guard(identity.CapPlansPurge, h.SweepOverdue)).Methods(http.MethodPost)
	plans.Handle("/due-today", guard(identity.CapPlansRead, h.ListDueToday)).Methods(http.MethodGet)
	plans.Handle("", guard(identity.CapPlansWrite, h.CreatePlan)).Methods(http.MethodPost)
	plans.Handle("", guard(identity.CapPlansRead, h.ListPlans)).Methods(http.MethodGet)
	plans.Handle("/{id}", guard(identity.CapPlansRead, h.GetPlan)).Methods(http.MethodGet)
	plans.Handle("/{id}", guard(identity.CapPlansPurge, h.DeletePlan)).Methods(http.MethodDelete)
	plans.Handle("/{id}/schedule", guard(identity.CapPlansRead, h.GetSchedule)).Methods(http.MethodGet)
	plans.Handle("/{id}/payments", guard(identity.CapPlansRead, h.ListPayments)).Methods(http.MethodGet)
	plans.Handle("/{id}/payments", guard(identity.CapPaymentsWrite, h.RecordPayment)).Methods(http.MethodPost)
	plans.Handle("/{id}/cancel", guard(identity.CapPlansCancel, h.CancelPlan)).Methods(http.MethodPost)

	api.Handle("/installment-reports/summary", guard(identity.CapReportsRead, h.GetSummary)).Methods(http.MethodGet)
}

// CreatePlan handles POST /installment-plans
func (h *InstallmentHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.CreatePlan(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

// RecordPayment handles POST /installment-plans/{id}/payments
func (h *InstallmentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	var req domain.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), actorFrom(r), planID, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

// CancelPlan handles POST /installment-plans/{id}/cancel
func (h *InstallmentHandler) CancelPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	var req domain.CancelPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.service.CancelPlan(r.Context(), actorFrom(r), planID, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, plan)
}

// DeletePlan handles DELETE /installment-plans/{id}
func (h *InstallmentHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePlan(r.Context(), actorFrom(r), planID); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPlan handles GET /installment-plans/{id}
func (h *InstallmentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetPlanDetail(r.Context(), planID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, detail)
}

// ListPlans handles GET /installment-plans?status=active,overdue&customer=C-1&limit=50
func (h *InstallmentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.PlanFilter{CustomerID: query.Get("customer")}

	if raw := query.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.PlanStatus(strings.TrimSpace(s)))
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.BusinessError(w, customError.WrapValidation("limit", "limit must be a positive integer", err))
			return
		}
		filter.Limit = limit
	}

	plans, err := h.service.ListPlans(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, plans)
}

// ListPayments handles GET /installment-plans/{id}/payments
func (h *InstallmentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), planID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payments)
}

// GetSchedule handles GET /installment-plans/{id}/schedule
func (h *InstallmentHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFrom(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), planID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// ListOverdue handles GET /installment-plans/overdue?as_of=2024-03-15
func (h *InstallmentHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	plans, err := h.service.ListOverdue(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, plans)
}

// ListDueToday handles GET /installment-plans/due-today
func (h *InstallmentHandler) ListDueToday(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListDueToday(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, plans)
}

// SweepOverdue handles POST /installment-plans/overdue/sweep
func (h *InstallmentHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}

	transitions, err := h.service.SweepOverdue(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, domain.SweepResponse{AsOf: asOf, Transitions: transitions})
}

// GetSummary handles GET /installment-reports/summary
func (h *InstallmentHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.GetSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, stats)
}

func (h *InstallmentHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			message := fmt.Sprintf("%s failed on the '%s' rule", first.Namespace(), first.Tag())
			response.BusinessError(w, customError.WrapValidation(first.Field(), message, err))
			return false
		}
		response.BadRequest(w, "Invalid request", err)
		return false
	}
	return true
}

func (h *InstallmentHandler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.service.Today(), true
	}
	asOf, err := utils.ParseDate(raw)
	if err != nil {
		response.BusinessError(w, customError.WrapValidation("as_of", "as_of must be a YYYY-MM-DD date", err))
		return time.Time{}, false
	}
	return asOf, true
}

func (h *InstallmentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	entry := h.logger.WithError(err).WithField("path", r.URL.Path)
	switch {
	case customError.IsClientError(err):
		entry.Debug("request rejected")
	case customError.IsRetryable(err):
		entry.Warn("request lost a concurrent update")
	default:
		entry.Error("request failed")
	}
	response.BusinessError(w, err)
}

func planIDFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	planID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BusinessError(w, customError.WrapValidation("id", "Invalid plan ID", err))
		return uuid.Nil, false
	}
	return planID, true
}

func actorFrom(r *http.Request) domain.Actor {
	actor, _ := identity.ActorFromContext(r.Context())
	return actor
}
