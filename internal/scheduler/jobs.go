// Package scheduler runs the engine's periodic jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/domain"
)

// Engine is the part of the installment service the jobs call.
type Engine interface {
	SweepOverdue(ctx context.Context, asOf time.Time) (int, error)
	ListDueToday(ctx context.Context) ([]*domain.InstallmentPlan, error)
	Today() time.Time
}

type Jobs struct {
	Engine  Engine
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewJobs(engine Engine, logger *logrus.Logger) *Jobs {
	return &Jobs{
		Engine:  engine,
		Logger:  logger,
		Timeout: 5 * time.Minute,
	}
}

// Register adds the overdue sweep and the due-today reminder to c.
func (j *Jobs) Register(c *cron.Cron, cfg *config.Config) error {
	if _, err := c.AddFunc(cfg.Scheduler.SweepCron, j.runSweep); err != nil {
		return fmt.Errorf("failed to schedule overdue sweep %q: %w", cfg.Scheduler.SweepCron, err)
	}
	if _, err := c.AddFunc(cfg.Scheduler.ReminderCron, j.runReminders); err != nil {
		return fmt.Errorf("failed to schedule payment reminders %q: %w", cfg.Scheduler.ReminderCron, err)
	}

	j.Logger.WithFields(logrus.Fields{
		"sweep":    cfg.Scheduler.SweepCron,
		"reminder": cfg.Scheduler.ReminderCron,
		"timezone": cfg.Scheduler.Timezone,
	}).Info("cron jobs scheduled")
	return nil
}

func (j *Jobs) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	if _, err := j.UpdateOverduePlans(ctx); err != nil {
		j.Logger.WithError(err).Error("overdue sweep failed")
	}
}

func (j *Jobs) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	if _, err := j.SendPaymentReminders(ctx); err != nil {
		j.Logger.WithError(err).Error("payment reminders failed")
	}
}

// UpdateOverduePlans moves every active plan past its due date to overdue.
func (j *Jobs) UpdateOverduePlans(ctx context.Context) (int, error) {
	asOf := j.Engine.Today()
	transitioned, err := j.Engine.SweepOverdue(ctx, asOf)
	if err != nil {
		return transitioned, err
	}

	j.Logger.WithFields(logrus.Fields{
		"as_of":        asOf.Format("2006-01-02"),
		"transitioned": transitioned,
	}).Info("overdue plans updated")
	return transitioned, nil
}

// SendPaymentReminders logs one reminder per plan with an installment due
// today. There is no delivery channel yet; the log line is the reminder.
func (j *Jobs) SendPaymentReminders(ctx context.Context) (int, error) {
	plans, err := j.Engine.ListDueToday(ctx)
	if err != nil {
		return 0, err
	}

	for _, plan := range plans {
		j.Logger.WithFields(logrus.Fields{
			"plan_id":     plan.ID,
			"customer_id": plan.CustomerID,
			"installment": plan.InstallmentAmount.String(),
			"remaining":   plan.RemainingAmount.String(),
		}).Info("payment due today")
	}
	return len(plans), nil
}
