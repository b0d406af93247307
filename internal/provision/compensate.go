package provision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultCompensationTimeout bounds one full compensation pass.
const DefaultCompensationTimeout = 30 * time.Second

// Report summarizes a compensation pass.
type Report struct {
	Attempted int
	Failed    int
	Retained  int
}

// Compensator undoes the committed steps of a failed run.
type Compensator struct {
	store   Store
	objects ObjectStore
	bucket  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCompensator creates a compensator. Uploaded objects are removed from bucket.
func NewCompensator(s Store, objects ObjectStore, bucket string, timeout time.Duration, logger *zap.Logger) *Compensator {
	if timeout <= 0 {
		timeout = DefaultCompensationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compensator{store: s, objects: objects, bucket: bucket, timeout: timeout, logger: logger}
}

// Compensate walks state newest-first and undoes every step it can. A step
// whose undo fails or panics is logged and counted; the walk continues.
// Identities are retained. The pass is detached from ctx cancellation so an
// abandoned request still gets cleaned up.
func (c *Compensator) Compensate(ctx context.Context, state *State) Report {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var report Report
	steps := state.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.Kind == StepIdentity {
			c.logger.Info("Retaining identity during compensation", zap.String("identity_id", step.Handle))
			report.Retained++
			continue
		}

		report.Attempted++
		if err := c.undo(ctx, step); err != nil {
			report.Failed++
			c.logger.Warn("Compensation step failed",
				zap.String("step", string(step.Kind)),
				zap.String("handle", step.Handle),
				zap.Error(err))
			continue
		}
		c.logger.Debug("Compensated step",
			zap.String("step", string(step.Kind)),
			zap.String("handle", step.Handle))
	}

	c.logger.Info("Compensation finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("failed", report.Failed),
		zap.Int("retained", report.Retained))
	return report
}

func (c *Compensator) undo(ctx context.Context, step CommittedStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch step.Kind {
	case StepServiceRecord:
		if err := c.store.DeleteFilterDetails(ctx, step.Handle); err != nil {
			return err
		}
		return c.store.DeleteServiceRecord(ctx, step.Handle)
	case StepFileUpload:
		return c.objects.Remove(ctx, c.bucket, []string{step.Handle})
	case StepCustomerRecord:
		return c.store.DeleteCustomer(ctx, step.Handle)
	default:
		return fmt.Errorf("no inverse for step kind %q", step.Kind)
	}
}
