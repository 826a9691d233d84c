package shared

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions written by the access core.
const (
	AuditLogin              = "login"
	AuditLogout             = "logout"
	AuditRegister           = "register"
	AuditRoleChangeRejected = "role_change_rejected"
	AuditAccountStatus      = "account_status"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder persists audit records.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES (NULLIF($1, ''), $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

func (log AuditLog) validate() error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}

// MemoryAudit keeps audit records in memory. It backs tests.
type MemoryAudit struct {
	mu      sync.Mutex
	records []AuditLog
}

// Record appends the entry.
func (m *MemoryAudit) Record(_ context.Context, log AuditLog) error {
	if err := log.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	m.records = append(m.records, log)
	return nil
}

// Records returns a copy of everything recorded so far.
func (m *MemoryAudit) Records() []AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditLog, len(m.records))
	copy(out, m.records)
	return out
}

var (
	_ AuditRecorder = (*AuditLogger)(nil)
	_ AuditRecorder = (*MemoryAudit)(nil)
)
