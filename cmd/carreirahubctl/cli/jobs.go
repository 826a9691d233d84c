package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/jobs"
)

// AccountFinder looks accounts up by e-mail.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*auth.Account, error)
}

// WelcomeEnqueuer schedules welcome e-mails.
type WelcomeEnqueuer interface {
	EnqueueWelcome(ctx context.Context, payload jobs.WelcomePayload) error
}

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	accounts  AccountFinder
	welcome   WelcomeEnqueuer
	inspector QueueInspector
	resolver  *rbac.Resolver
}

// NewJobsCLI initialises the CLI helpers.
func NewJobsCLI(accounts AccountFinder, welcome WelcomeEnqueuer, inspector QueueInspector, resolver *rbac.Resolver) *JobsCLI {
	return &JobsCLI{accounts: accounts, welcome: welcome, inspector: inspector, resolver: resolver}
}

// ResendWelcome enqueues the welcome e-mail for an existing account again.
func (c *JobsCLI) ResendWelcome(ctx context.Context, email string) (jobs.WelcomePayload, error) {
	if c == nil || c.accounts == nil || c.welcome == nil {
		return jobs.WelcomePayload{}, errors.New("jobs cli: not configured")
	}
	account, err := c.accounts.FindByEmail(ctx, email)
	if err != nil {
		return jobs.WelcomePayload{}, fmt.Errorf("jobs cli: find account %s: %w", email, err)
	}
	payload := jobs.WelcomePayload{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
		Home:      c.resolver.HomeRoute(account.Role),
	}
	if err := c.welcome.EnqueueWelcome(ctx, payload); err != nil {
		return jobs.WelcomePayload{}, fmt.Errorf("jobs cli: enqueue welcome: %w", err)
	}
	return payload, nil
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue. A queue that
// never received a task reports zeros.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}
