package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps service records, users and sessions in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping is used by the readiness check.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Services returns the services table.
func (s *SQLiteStore) Services() Table {
	return &sqliteTable{db: s.db, name: "services"}
}

type sqliteTable struct {
	db   *sql.DB
	name string
}

func (t *sqliteTable) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cols := q.SelectedColumns()

	var b strings.Builder
	args := []any{q.TenantID}
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s = ?", strings.Join(cols, ", "), t.name, ColTenantID)
	for _, f := range q.Filters {
		fmt.Fprintf(&b, " AND %s %s ?", f.Column, f.Op.sql())
		args = append(args, f.Value)
	}
	if q.OrderBy != "" {
		fmt.Fprintf(&b, " ORDER BY %s", q.OrderBy)
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := t.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

func (t *sqliteTable) Insert(ctx context.Context, tenantID string, row Row) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if err := ValidateRow(row); err != nil {
		return err
	}
	values := make(Row, len(row)+1)
	for k, v := range row {
		values[k] = v
	}
	values[ColTenantID] = tenantID

	cols := sortedColumns(values)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	if _, err := t.db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("insert %s: %w", t.name, err)
	}

	slog.DebugContext(ctx, "Row inserted", "table", t.name, "id", values[ColID], "tenant_id", tenantID)
	return nil
}

func (t *sqliteTable) Update(ctx context.Context, tenantID, id string, row Row) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if err := ValidateRow(row); err != nil {
		return err
	}
	cols := make([]string, 0, len(row))
	for _, c := range sortedColumns(row) {
		switch c {
		case ColID, ColTenantID, ColCreatedAt, ColAuthCode:
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, row[c])
	}
	args = append(args, tenantID, id)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND %s = ?",
		t.name, strings.Join(sets, ", "), ColTenantID, ColID)

	res, err := t.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	return expectAffected(res)
}

func (t *sqliteTable) Delete(ctx context.Context, tenantID, id string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", t.name, ColTenantID, ColID)
	res, err := t.db.ExecContext(ctx, stmt, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser implements UserStore.
func (s *SQLiteStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, company_name, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.FullName, u.CompanyName, u.Phone,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return nil
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE email = ?", strings.ToLower(email)))
}

func (s *SQLiteStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE id = ?", id))
}

const userSelect = `SELECT id, email, password_hash, full_name, company_name, phone, created_at, updated_at FROM users`

func (s *SQLiteStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var created, updated string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CompanyName, &u.Phone, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = timeOf(created)
	u.UpdatedAt = timeOf(updated)
	return u, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, formatTime(sess.ExpiresAt), formatTime(sess.CreatedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SessionByID(ctx context.Context, id string) (Session, error) {
	var sess Session
	var expires, created string
	var revoked sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, revoked_at, created_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.UserID, &expires, &revoked, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.ExpiresAt = timeOf(expires)
	sess.CreatedAt = timeOf(created)
	if revoked.Valid {
		sess.RevokedAt = timeOf(revoked.String)
	}
	return sess, nil
}

func (s *SQLiteStore) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return expectAffected(res)
}
