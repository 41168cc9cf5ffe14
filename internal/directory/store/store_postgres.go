package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"procura/internal/directory"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
	txcontext "procura/pkg/platform/tx"
)

// PostgresStore persists departments and users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `
	u.id, u.name, u.email, u.role, u.status, u.department_id, u.created_at, u.updated_at,
	COALESCE(array_agg(d.id::text) FILTER (WHERE d.id IS NOT NULL), '{}')`

const userFrom = `
	FROM users u
	LEFT JOIN departments d ON d.assigned_manager_id = u.id`

func (s *PostgresStore) SaveDepartment(ctx context.Context, d *directory.Department) error {
	query := `
		INSERT INTO departments (id, name, code, status, assigned_manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			status = EXCLUDED.status,
			assigned_manager_id = EXCLUDED.assigned_manager_id,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.Name, d.Code, string(d.Status), nullableUser(d.AssignedManagerID), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save department: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u *directory.User) error {
	query := `
		INSERT INTO users (id, name, email, role, status, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			department_id = EXCLUDED.department_id,
			updated_at = EXCLUDED.updated_at
	`
	var dept any
	if u.DepartmentID != nil {
		dept = *u.DepartmentID
	}
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Status), dept, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDepartment(ctx context.Context, deptID id.DepartmentID) (*directory.Department, error) {
	query := `
		SELECT id, name, code, status, assigned_manager_id, created_at, updated_at
		FROM departments
		WHERE id = $1
	`
	d, err := scanDepartment(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, deptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find department: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListActiveDepartments(ctx context.Context) ([]*directory.Department, error) {
	query := `
		SELECT id, name, code, status, assigned_manager_id, created_at, updated_at
		FROM departments
		WHERE status = 'ACTIVE'
		ORDER BY name
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []*directory.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindUser(ctx context.Context, userID id.UserID) (*directory.User, error) {
	query := `SELECT` + userColumns + userFrom + `
		WHERE u.id = $1
		GROUP BY u.id
	`
	u, err := scanUser(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListRoster(ctx context.Context, deptID id.DepartmentID) ([]*directory.User, error) {
	query := `SELECT` + userColumns + userFrom + `
		WHERE u.department_id = $1 AND u.role = 'MANAGER' AND u.status = 'ACTIVE'
		GROUP BY u.id
		ORDER BY u.name, u.id
	`
	return s.listUsers(ctx, query, deptID)
}

func (s *PostgresStore) ListActiveByRole(ctx context.Context, role directory.Role) ([]*directory.User, error) {
	query := `SELECT` + userColumns + userFrom + `
		WHERE u.role = $1 AND u.status = 'ACTIVE'
		GROUP BY u.id
		ORDER BY u.name, u.id
	`
	return s.listUsers(ctx, query, string(role))
}

func (s *PostgresStore) ListManagedBy(ctx context.Context, userID id.UserID) ([]id.DepartmentID, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM departments WHERE assigned_manager_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list managed departments: %w", err)
	}
	defer rows.Close()

	var out []id.DepartmentID
	for rows.Next() {
		var deptID id.DepartmentID
		if err := rows.Scan(&deptID); err != nil {
			return nil, fmt.Errorf("scan managed department: %w", err)
		}
		out = append(out, deptID)
	}
	return out, rows.Err()
}

// CompareAndSetAssignment is the single SQL write path for
// departments.assigned_manager_id. The WHERE clause makes the write conditional
// on the value the caller evaluated, so concurrent writers cannot interleave.
func (s *PostgresStore) CompareAndSetAssignment(ctx context.Context, deptID id.DepartmentID, expected, next *id.UserID) error {
	query := `
		UPDATE departments
		SET assigned_manager_id = $3, updated_at = $4
		WHERE id = $1 AND assigned_manager_id IS NOT DISTINCT FROM $2
	`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		deptID, nullableUser(expected), nullableUser(next), nowFrom(ctx))
	if err != nil {
		return fmt.Errorf("set department assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set department assignment: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, deptID).Scan(&exists); err != nil {
		return fmt.Errorf("check department: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) listUsers(ctx context.Context, query string, args ...any) ([]*directory.User, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (*directory.Department, error) {
	var (
		d       directory.Department
		status  string
		manager uuid.NullUUID
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Code, &status, &manager, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := directory.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	d.Status = st
	if manager.Valid {
		m := id.UserID(manager.UUID)
		d.AssignedManagerID = &m
	}
	return &d, nil
}

func scanUser(row rowScanner) (*directory.User, error) {
	var (
		u       directory.User
		role    string
		status  string
		dept    uuid.NullUUID
		managed pq.StringArray
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &status, &dept, &u.CreatedAt, &u.UpdatedAt, &managed); err != nil {
		return nil, err
	}
	var err error
	if u.Role, err = directory.ParseRole(role); err != nil {
		return nil, err
	}
	if u.Status, err = directory.ParseStatus(status); err != nil {
		return nil, err
	}
	if dept.Valid {
		d := id.DepartmentID(dept.UUID)
		u.DepartmentID = &d
	}
	for _, raw := range managed {
		deptID, err := id.ParseDepartmentID(raw)
		if err != nil {
			return nil, err
		}
		u.ManagedDepartments = append(u.ManagedDepartments, deptID)
	}
	return &u, nil
}

func nullableUser(u *id.UserID) any {
	if u == nil {
		return nil
	}
	return *u
}
