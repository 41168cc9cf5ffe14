package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"procura/internal/directory"
	"procura/internal/notification"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
	txcontext "procura/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists notifications in Postgres. Duplicate suppression for
// assignment requests is enforced by the partial unique index
// notifications_pending_assignment_uniq on (department_ref) where
// type = 'MANAGER_ASSIGNMENT' and status = 'UNREAD'.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `
	id, type, title, message, payload, priority, status, category,
	target_user_id, target_role, action_url, action_label, department_ref,
	expires_at, read_at, dismissed_at, created_at, updated_at
`

const insertNotification = `
	INSERT INTO notifications (` + notificationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

func (s *PostgresStore) Create(ctx context.Context, n *notification.Notification) error {
	args, err := notificationArgs(n)
	if err != nil {
		return err
	}
	if _, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, insertNotification, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateAssignmentRequestIfAbsent lets the partial unique index arbitrate
// concurrent raises: the losing INSERT affects zero rows.
func (s *PostgresStore) CreateAssignmentRequestIfAbsent(ctx context.Context, n *notification.Notification) error {
	args, err := notificationArgs(n)
	if err != nil {
		return err
	}
	query := insertNotification + `
		ON CONFLICT (department_ref) WHERE type = 'MANAGER_ASSIGNMENT' AND status = 'UNREAD'
		DO NOTHING
	`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert assignment request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert assignment request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindPendingAssignmentRequest(ctx context.Context, deptID id.DepartmentID) (*notification.Notification, error) {
	query := `SELECT` + notificationColumns + `FROM notifications
		WHERE type = 'MANAGER_ASSIGNMENT' AND status = 'UNREAD' AND department_ref = $1`
	n, err := scanNotification(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, deptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return n, err
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*notification.Notification, error) {
	query := `SELECT` + notificationColumns + `FROM notifications WHERE id = $1`
	n, err := scanNotification(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, notificationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return n, err
}

// Execute locks the row with FOR UPDATE for the duration of validate and mutate.
func (s *PostgresStore) Execute(ctx context.Context, notificationID id.NotificationID, validate func(*notification.Notification) error, mutate func(*notification.Notification)) (*notification.Notification, error) {
	var out *notification.Notification
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Pick(ctx, s.db)
		query := `SELECT` + notificationColumns + `FROM notifications WHERE id = $1 FOR UPDATE`
		n, err := scanNotification(exec.QueryRowContext(ctx, query, notificationID))
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := validate(n); err != nil {
			return err
		}
		mutate(n)
		_, err = exec.ExecContext(ctx, `
			UPDATE notifications
			SET status = $2, read_at = $3, dismissed_at = $4, updated_at = $5
			WHERE id = $1
		`, n.ID, string(n.Status), nullTime(n.ReadAt), nullTime(n.DismissedAt), n.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update notification status: %w", err)
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const addressedTo = `
	(target_user_id = $1 OR (target_user_id IS NULL AND target_role = $2))
	AND (expires_at IS NULL OR expires_at > $3)
`

func (s *PostgresStore) List(ctx context.Context, q notification.Query) ([]*notification.Notification, error) {
	var b strings.Builder
	b.WriteString(`SELECT` + notificationColumns + `FROM notifications WHERE` + addressedTo)
	args := []any{q.UserID, string(q.Role), q.Now}
	if q.Status != "" {
		args = append(args, string(q.Status))
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	if q.Category != "" {
		args = append(args, string(q.Category))
		fmt.Fprintf(&b, " AND category = $%d", len(args))
	}
	if q.Type != "" {
		args = append(args, string(q.Type))
		fmt.Fprintf(&b, " AND type = $%d", len(args))
	}
	b.WriteString(`
		ORDER BY CASE priority
			WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0
		END DESC, created_at DESC`)
	args = append(args, q.Limit, q.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID, role directory.Role, now time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE status = 'UNREAD' AND` + addressedTo
	if err := s.db.QueryRowContext(ctx, query, userID, string(role), now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteExpired relies on ON DELETE CASCADE to remove delivery rows.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return int(affected), nil
}

const deliveryColumns = `
	id, notification_id, recipient_id, channel, status, attempts, last_error,
	last_attempt_at, delivered_at, created_at, updated_at
`

// CreateDeliveries inserts every row in one transaction so that either all
// PENDING rows for a notification exist or none do.
func (s *PostgresStore) CreateDeliveries(ctx context.Context, deliveries []*notification.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Pick(ctx, s.db)
		for _, d := range deliveries {
			_, err := exec.ExecContext(ctx, `
				INSERT INTO notification_deliveries (`+deliveryColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, d.ID, d.NotificationID, d.RecipientID, string(d.Channel), string(d.Status), d.Attempts,
				d.LastError, nullTime(d.LastAttemptAt), nullTime(d.DeliveredAt), d.CreatedAt, d.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert delivery: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) UpdateDelivery(ctx context.Context, d *notification.Delivery) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE notification_deliveries
		SET status = $2, attempts = $3, last_error = $4, last_attempt_at = $5,
			delivered_at = $6, updated_at = $7
		WHERE id = $1
	`, d.ID, string(d.Status), d.Attempts, d.LastError, nullTime(d.LastAttemptAt), nullTime(d.DeliveredAt), d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*notification.Delivery, error) {
	return s.queryDeliveries(ctx, `SELECT`+deliveryColumns+`FROM notification_deliveries
		WHERE notification_id = $1 ORDER BY created_at, id`, notificationID)
}

// ClaimFailedDeliveries flips the selected rows to PENDING in one statement.
// SKIP LOCKED lets concurrent claimers pass over each other's rows instead of
// queueing behind them.
func (s *PostgresStore) ClaimFailedDeliveries(ctx context.Context, channel notification.Channel, limit int, staleBefore, now time.Time) ([]*notification.Delivery, error) {
	claimed, err := s.queryDeliveries(ctx, `WITH picked AS (
			SELECT id AS picked_id FROM notification_deliveries
			WHERE channel = $1 AND (status = 'FAILED' OR (status = 'PENDING' AND updated_at < $3))
			ORDER BY created_at, id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_deliveries SET status = 'PENDING', updated_at = $4
		FROM picked WHERE id = picked.picked_id
		RETURNING`+deliveryColumns, string(channel), limit, staleBefore, now)
	if err != nil {
		return nil, err
	}
	sortDeliveries(claimed)
	return claimed, nil
}

func (s *PostgresStore) queryDeliveries(ctx context.Context, query string, args ...any) ([]*notification.Delivery, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []*notification.Delivery
	for rows.Next() {
		var (
			d                          notification.Delivery
			channel, status            string
			lastAttempt, deliveredTime sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.NotificationID, &d.RecipientID, &channel, &status, &d.Attempts,
			&d.LastError, &lastAttempt, &deliveredTime, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Channel = notification.Channel(channel)
		d.Status = notification.DeliveryStatus(status)
		d.LastAttemptAt = timePtr(lastAttempt)
		d.DeliveredAt = timePtr(deliveredTime)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n                              notification.Notification
		typ, priority, status, cat     string
		payload                        []byte
		targetUser, deptRef            uuid.NullUUID
		targetRole                     sql.NullString
		expiresAt, readAt, dismissedAt sql.NullTime
	)
	err := row.Scan(&n.ID, &typ, &n.Title, &n.Message, &payload, &priority, &status, &cat,
		&targetUser, &targetRole, &n.ActionURL, &n.ActionLabel, &deptRef,
		&expiresAt, &readAt, &dismissedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Type = notification.Type(typ)
	n.Priority = notification.Priority(priority)
	n.Status = notification.Status(status)
	n.Category = notification.Category(cat)
	if targetUser.Valid {
		uid := id.UserID(targetUser.UUID)
		n.Target.UserID = &uid
	}
	if targetRole.Valid {
		n.Target.Role = directory.Role(targetRole.String)
	}
	if deptRef.Valid {
		did := id.DepartmentID(deptRef.UUID)
		n.DepartmentRef = &did
	}
	n.ExpiresAt = timePtr(expiresAt)
	n.ReadAt = timePtr(readAt)
	n.DismissedAt = timePtr(dismissedAt)
	n.Payload, err = notification.DecodePayload(n.Type, payload)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func notificationArgs(n *notification.Notification) ([]any, error) {
	payload, err := notification.EncodePayload(n.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode notification payload: %w", err)
	}
	var targetUser, targetRole, deptRef any
	if n.Target.UserID != nil {
		targetUser = *n.Target.UserID
	}
	if n.Target.Role != "" {
		targetRole = string(n.Target.Role)
	}
	if n.DepartmentRef != nil {
		deptRef = *n.DepartmentRef
	}
	return []any{
		n.ID, string(n.Type), n.Title, n.Message, payload, string(n.Priority), string(n.Status), string(n.Category),
		targetUser, targetRole, n.ActionURL, n.ActionLabel, deptRef,
		nullTime(n.ExpiresAt), nullTime(n.ReadAt), nullTime(n.DismissedAt), n.CreatedAt, n.UpdatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
