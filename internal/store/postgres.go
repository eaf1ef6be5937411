package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) InsertUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role, email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Role, user.EmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, display_name, password_hash, role, email_verified, COALESCE(verification_token, ''), created_at, updated_at`

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role,
		&user.EmailVerified, &user.VerificationToken, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return s.scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return s.scanUser(row)
}

// VerifyEmailToken marks the matching user's email verified and clears the
// token. Returns ErrNotFound when no user holds the token.
func (s *PostgresStore) VerifyEmailToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email_verified=TRUE, verification_token=NULL, updated_at=NOW()
		WHERE verification_token=$1
	`, token)
	if err != nil {
		return fmt.Errorf("verify email token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- refresh sessions (Postgres fallback when Redis is not configured) ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.role, u.email_verified, COALESCE(u.verification_token, ''), u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash))
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// --- access token revocation ---

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// --- workspaces ---

func (s *PostgresStore) GetDefaultWorkspace(ctx context.Context) (Workspace, error) {
	var ws Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, created_at, updated_at FROM workspaces ORDER BY created_at LIMIT 1
	`).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Workspace{}, ErrNotFound
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("get default workspace: %w", err)
	}
	return ws, nil
}

// --- spaces ---

func (s *PostgresStore) ListSpaces(ctx context.Context, workspaceID string) ([]Space, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, slug, COALESCE(description, ''), sort_order, created_at, updated_at
		FROM spaces WHERE workspace_id=$1
		ORDER BY sort_order, name
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []Space
	for rows.Next() {
		var sp Space
		if err := rows.Scan(&sp.ID, &sp.WorkspaceID, &sp.Name, &sp.Slug, &sp.Description, &sp.SortOrder, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, sp)
	}
	return spaces, rows.Err()
}

func (s *PostgresStore) GetSpace(ctx context.Context, spaceID string) (Space, error) {
	var sp Space
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, slug, COALESCE(description, ''), sort_order, created_at, updated_at
		FROM spaces WHERE id=$1
	`, spaceID).Scan(&sp.ID, &sp.WorkspaceID, &sp.Name, &sp.Slug, &sp.Description, &sp.SortOrder, &sp.CreatedAt, &sp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Space{}, ErrNotFound
	}
	if err != nil {
		return Space{}, fmt.Errorf("get space: %w", err)
	}
	return sp, nil
}

func (s *PostgresStore) InsertSpace(ctx context.Context, space Space) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, workspace_id, name, slug, description, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, space.ID, space.WorkspaceID, space.Name, space.Slug, space.Description, space.SortOrder)
	if err != nil {
		return fmt.Errorf("insert space: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSpace(ctx context.Context, spaceID, name, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE spaces SET name=$2, description=$3, updated_at=NOW() WHERE id=$1
	`, spaceID, name, description)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSpace(ctx context.Context, spaceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spaces WHERE id=$1`, spaceID)
	if err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SpaceDocumentCount(ctx context.Context, spaceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE space_id=$1`, spaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count space documents: %w", err)
	}
	return count, nil
}

// --- documents ---

const documentColumns = `id, space_id, title, COALESCE(subtitle, ''), COALESCE(updated_by, ''), created_at, updated_at`

func (s *PostgresStore) ListDocuments(ctx context.Context, spaceID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY updated_at DESC`
	args := []any{}
	if spaceID != "" {
		query = `SELECT ` + documentColumns + ` FROM documents WHERE space_id=$1 ORDER BY updated_at DESC`
		args = append(args, spaceID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SpaceID, &d.Title, &d.Subtitle, &d.UpdatedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, documentID).
		Scan(&d.ID, &d.SpaceID, &d.Title, &d.Subtitle, &d.UpdatedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, space_id, title, subtitle, updated_by)
		VALUES ($1, $2, $3, $4, $5)
	`, doc.ID, doc.SpaceID, doc.Title, doc.Subtitle, doc.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentMeta(ctx context.Context, documentID, title, subtitle, updatedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET title=$2, subtitle=$3, updated_by=$4, updated_at=NOW() WHERE id=$1
	`, documentID, title, subtitle, updatedBy)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDocumentSearchText refreshes the flattened text the FTS index is
// built over (title, body text, diagram node labels).
func (s *PostgresStore) UpdateDocumentSearchText(ctx context.Context, documentID, searchText string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET search_text=$2, updated_at=NOW() WHERE id=$1
	`, documentID, searchText)
	if err != nil {
		return fmt.Errorf("update document search text: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MoveDocument(ctx context.Context, documentID, newSpaceID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET space_id=$2, updated_at=NOW() WHERE id=$1`, documentID, newSpaceID)
	if err != nil {
		return fmt.Errorf("move document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tasks ---

const taskColumns = `id, document_id, title, status, COALESCE(created_by, ''), created_at, updated_at`

func (s *PostgresStore) ListTasks(ctx context.Context, documentID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE document_id=$1 ORDER BY created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.Title, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, taskID).
		Scan(&t.ID, &t.DocumentID, &t.Title, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, document_id, title, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
	`, task.ID, task.DocumentID, task.Title, task.Status, task.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, taskID, title, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title=$2, status=$3, updated_at=NOW() WHERE id=$1
	`, taskID, title, status)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
