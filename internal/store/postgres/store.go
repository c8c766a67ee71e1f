// Package postgres implements store.Backend on PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hopebridge/donor-portal/internal/platform/db"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store is the live backend.
type Store struct {
	db    DBTX
	inTx  func(ctx context.Context, fn func(DBTX) error) error
	clock func() time.Time
}

var _ store.Backend = (*Store)(nil)

// New builds a Store over conn. When conn can start transactions, multi
// statement writes run inside one.
func New(conn DBTX) *Store {
	s := &Store{db: conn, clock: time.Now}
	if starter, ok := conn.(db.TxStarter); ok {
		s.inTx = func(ctx context.Context, fn func(DBTX) error) error {
			return db.WithTx(ctx, starter, func(tx pgx.Tx) error { return fn(tx) })
		}
	} else {
		s.inTx = func(_ context.Context, fn func(DBTX) error) error { return fn(conn) }
	}
	return s
}

const userColumns = `id, email, name, password_hash, is_admin, is_active, created_at`

func scanUser(row pgx.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt)
	return u, err
}

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return store.User{}, notFound(err, "get user")
	}
	return u, nil
}

// GetRoles returns the role names assigned to id.
func (s *Store) GetRoles(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: get roles: %w", err)
	}
	defer rows.Close()
	roles := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("postgres: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: get roles: %w", err)
	}
	return roles, nil
}

// ListUsers returns every user ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	return collect(rows, "list users", scanUser)
}

// FindUserByEmail looks a user up case-insensitively.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if err != nil {
		return store.User{}, notFound(err, "find user by email")
	}
	return u, nil
}

// SetUserRoles replaces the role assignments of id in one transaction.
func (s *Store) SetUserRoles(ctx context.Context, id string, roles []string) ([]string, error) {
	normalized := rbac.NormalizeRoles(roles)
	names := make([]string, len(normalized))
	for i, r := range normalized {
		names[i] = string(r)
	}
	err := s.inTx(ctx, func(q DBTX) error {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: set roles: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("postgres: clear roles: %w", err)
		}
		if len(names) == 0 {
			return nil
		}
		if _, err := q.Exec(ctx, `INSERT INTO user_roles (user_id, role) SELECT $1, unnest($2::text[])`, id, names); err != nil {
			return fmt.Errorf("postgres: insert roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// InsertAudit appends an audit entry.
func (s *Store) InsertAudit(ctx context.Context, entry store.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock().UTC()
	}
	var details []byte
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("postgres: encode audit details: %w", err)
		}
		details = raw
	}
	_, err := s.db.Exec(ctx, `INSERT INTO audit_log (id, actor_user_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		entry.ID, entry.ActorUserID, entry.Action, entry.EntityType, entry.EntityID, details, entry.Timestamp)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return store.ErrDuplicate
		}
		return fmt.Errorf("postgres: insert audit: %w", err)
	}
	return nil
}

// ListAudit returns matching entries newest first.
func (s *Store) ListAudit(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	var conditions []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("actor_user_id", filter.ActorUserID)
	add("entity_type", filter.EntityType)
	add("entity_id", filter.EntityID)
	add("action", filter.Action)

	query := `SELECT id, actor_user_id, action, entity_type, COALESCE(entity_id, ''), details, created_at FROM audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	return collect(rows, "list audit", func(row pgx.Row) (store.AuditEntry, error) {
		var (
			e       store.AuditEntry
			details []byte
		)
		if err := row.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.EntityType, &e.EntityID, &details, &e.Timestamp); err != nil {
			return e, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return e, err
			}
		}
		e.Timestamp = e.Timestamp.UTC()
		return e, nil
	})
}

// ListGifts returns the gifts of userID, most recent first.
func (s *Store) ListGifts(ctx context.Context, userID string) ([]store.Gift, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, amount_cents, currency, fund, method, given_at
		FROM gifts WHERE user_id = $1 ORDER BY given_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list gifts: %w", err)
	}
	return collect(rows, "list gifts", func(row pgx.Row) (store.Gift, error) {
		var g store.Gift
		err := row.Scan(&g.ID, &g.UserID, &g.AmountCents, &g.Currency, &g.Fund, &g.Method, &g.GivenAt)
		return g, err
	})
}

const recurringColumns = `id, user_id, amount_cents, currency, fund, interval, status, next_charge_at, created_at`

func scanRecurring(row pgx.Row) (store.RecurringGift, error) {
	var rg store.RecurringGift
	err := row.Scan(&rg.ID, &rg.UserID, &rg.AmountCents, &rg.Currency, &rg.Fund, &rg.Interval, &rg.Status, &rg.NextChargeAt, &rg.CreatedAt)
	return rg, err
}

// ListRecurringGifts returns the recurring plans of userID, newest first.
func (s *Store) ListRecurringGifts(ctx context.Context, userID string) ([]store.RecurringGift, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recurringColumns+` FROM recurring_gifts WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recurring gifts: %w", err)
	}
	return collect(rows, "list recurring gifts", scanRecurring)
}

// CancelRecurringGift marks the plan id owned by userID as cancelled. The
// status guard in the UPDATE lets only one concurrent caller win; a plan that
// was already cancelled is read back with changed == false.
func (s *Store) CancelRecurringGift(ctx context.Context, userID, id string) (store.RecurringGift, bool, error) {
	row := s.db.QueryRow(ctx, `UPDATE recurring_gifts SET status = $3 WHERE id = $1 AND user_id = $2 AND status <> $3 RETURNING `+recurringColumns,
		id, userID, store.RecurringCancelled)
	rg, err := scanRecurring(row)
	if err == nil {
		return rg, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.RecurringGift{}, false, fmt.Errorf("postgres: cancel recurring gift: %w", err)
	}
	row = s.db.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_gifts WHERE id = $1 AND user_id = $2`, id, userID)
	rg, err = scanRecurring(row)
	if err != nil {
		return store.RecurringGift{}, false, notFound(err, "get recurring gift")
	}
	return rg, false, nil
}

const contentColumns = `id, kind, title, summary, url, published, sort_order, updated_by, updated_at`

func scanContent(row pgx.Row) (store.ContentItem, error) {
	var c store.ContentItem
	err := row.Scan(&c.ID, &c.Kind, &c.Title, &c.Summary, &c.URL, &c.Published, &c.SortOrder, &c.UpdatedBy, &c.UpdatedAt)
	return c, err
}

// ListContent returns content ordered by sort order then title.
func (s *Store) ListContent(ctx context.Context, filter store.ContentFilter) ([]store.ContentItem, error) {
	var conditions []string
	var args []interface{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "published")
	}
	query := `SELECT ` + contentColumns + ` FROM content_items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sort_order, title"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list content: %w", err)
	}
	return collect(rows, "list content", scanContent)
}

// UpdateContent applies update to the content item id. Nil fields keep
// their stored value.
func (s *Store) UpdateContent(ctx context.Context, id string, update store.ContentUpdate) (store.ContentItem, error) {
	row := s.db.QueryRow(ctx, `UPDATE content_items SET
			title = COALESCE($2, title),
			summary = COALESCE($3, summary),
			url = COALESCE($4, url),
			published = COALESCE($5, published),
			sort_order = COALESCE($6, sort_order),
			updated_by = $7,
			updated_at = $8
		WHERE id = $1
		RETURNING `+contentColumns,
		id, update.Title, update.Summary, update.URL, update.Published, update.SortOrder, update.UpdatedBy, s.clock().UTC())
	c, err := scanContent(row)
	if err != nil {
		return store.ContentItem{}, notFound(err, "update content")
	}
	return c, nil
}

// ListActivity returns the newest limit events of userID.
func (s *Store) ListActivity(ctx context.Context, userID string, limit int) ([]store.ActivityEvent, error) {
	query := `SELECT id, user_id, kind, message, occurred_at FROM activity_events WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity: %w", err)
	}
	return collect(rows, "list activity", func(row pgx.Row) (store.ActivityEvent, error) {
		var a store.ActivityEvent
		err := row.Scan(&a.ID, &a.UserID, &a.Kind, &a.Message, &a.OccurredAt)
		return a, err
	})
}

// InsertActivity appends an event.
func (s *Store) InsertActivity(ctx context.Context, event store.ActivityEvent) (store.ActivityEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO activity_events (id, user_id, kind, message, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.UserID, event.Kind, event.Message, event.OccurredAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return store.ActivityEvent{}, store.ErrDuplicate
		}
		return store.ActivityEvent{}, fmt.Errorf("postgres: insert activity: %w", err)
	}
	return event, nil
}

// GetDashboardOverride returns the override for userID.
func (s *Store) GetDashboardOverride(ctx context.Context, userID string) (store.DashboardOverride, error) {
	var o store.DashboardOverride
	err := s.db.QueryRow(ctx, `SELECT user_id, dashboard_role, updated_by, updated_at FROM dashboard_overrides WHERE user_id = $1`, userID).
		Scan(&o.UserID, &o.DashboardRole, &o.UpdatedBy, &o.UpdatedAt)
	if err != nil {
		return store.DashboardOverride{}, notFound(err, "get dashboard override")
	}
	return o, nil
}

// SetDashboardOverride upserts the override of an existing user.
func (s *Store) SetDashboardOverride(ctx context.Context, override store.DashboardOverride) (store.DashboardOverride, error) {
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = s.clock().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO dashboard_overrides (user_id, dashboard_role, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET dashboard_role = EXCLUDED.dashboard_role, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
		override.UserID, override.DashboardRole, override.UpdatedBy, override.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return store.DashboardOverride{}, store.ErrNotFound
		}
		return store.DashboardOverride{}, fmt.Errorf("postgres: set dashboard override: %w", err)
	}
	return override, nil
}

func collect[T any](rows pgx.Rows, op string, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s: scan: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return out, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
