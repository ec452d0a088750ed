// Package sqlstore implements storage.Store on database/sql. It is
// database-agnostic and embedded by the sqlite, postgres, and libsql drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/storage"
)

// Dialect selects the SQL flavor for placeholders.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore provides storage operations over a *sql.DB. Specific drivers embed
// it after opening a connection and running Migrate.
type SQLStore struct {
	DB      *sql.DB
	dialect Dialect
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{DB: db, dialect: dialect}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL UNIQUE,
		settings TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS directories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		parent_id TEXT REFERENCES directories(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_directories_parent ON directories(user_id, parent_id)`,
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		directory_id TEXT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
		payload_ref TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_directory ON files(user_id, directory_id)`,
}

// Migrate creates the tables and indexes if they don't exist yet. The schema
// is append-only; directory and file rows cascade on parent deletion, which
// is what makes DeleteDirectoryTree a single transactional statement.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	return nil
}

// rebind rewrites ? placeholders to $1..$n for postgres. Queries in this
// package are written in the sqlite style.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func marshalBlob(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshaling json blob: %w", err)
	}

	return string(data), nil
}

func unmarshalBlob(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parsing json blob: %w", err)
	}

	return m, nil
}

// FindUserByChatID looks a user up by external chat identity.
func (s *SQLStore) FindUserByChatID(ctx context.Context, chatID string) (*namespace.User, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, chat_id, settings, created_at FROM users WHERE chat_id = ?`), chatID)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "user", Ref: chatID}
	}

	return user, err
}

// CreateUser inserts a user record with empty settings.
func (s *SQLStore) CreateUser(ctx context.Context, chatID string) (*namespace.User, error) {
	user := &namespace.User{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Settings:  map[string]any{},
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.DB.ExecContext(ctx,
		s.rebind(`INSERT INTO users (id, chat_id, settings, created_at) VALUES (?, ?, ?, ?)`),
		user.ID, user.ChatID, "{}", user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// GetUser fetches a user by internal id.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*namespace.User, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, chat_id, settings, created_at FROM users WHERE id = ?`), id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "user", Ref: id}
	}

	return user, err
}

// UpdateUserSettings replaces the user's settings blob.
func (s *SQLStore) UpdateUserSettings(ctx context.Context, id string, settings map[string]any) (*namespace.User, error) {
	blob, err := marshalBlob(settings)
	if err != nil {
		return nil, err
	}

	res, err := s.DB.ExecContext(ctx,
		s.rebind(`UPDATE users SET settings = ? WHERE id = ?`), blob, id)
	if err != nil {
		return nil, fmt.Errorf("updating user settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, storage.NotFoundError{Kind: "user", Ref: id}
	}

	return s.GetUser(ctx, id)
}

// GetDirectory fetches a directory by id, scoped to the user.
func (s *SQLStore) GetDirectory(ctx context.Context, userID, id string) (*namespace.Directory, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, user_id, parent_id, created_at FROM directories WHERE id = ? AND user_id = ?`),
		id, userID)

	dir, err := scanDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "directory", Ref: id}
	}

	return dir, err
}

// FindRootDirectory fetches the user's root (empty name, no parent).
func (s *SQLStore) FindRootDirectory(ctx context.Context, userID string) (*namespace.Directory, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, user_id, parent_id, created_at FROM directories WHERE user_id = ? AND parent_id IS NULL AND name = ''`),
		userID)

	dir, err := scanDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "directory", Ref: "root"}
	}

	return dir, err
}

// FindDirectoryByName fetches the child directory with the given name.
func (s *SQLStore) FindDirectoryByName(ctx context.Context, userID, parentID, name string) (*namespace.Directory, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, user_id, parent_id, created_at FROM directories WHERE user_id = ? AND parent_id = ? AND name = ?`),
		userID, parentID, name)

	dir, err := scanDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "directory", Ref: name}
	}

	return dir, err
}

// ListDirectories returns the child directories of a directory in creation
// order. The order is stable between consecutive calls so pagination windows
// don't skip or duplicate entries.
func (s *SQLStore) ListDirectories(ctx context.Context, userID, parentID string) ([]*namespace.Directory, error) {
	rows, err := s.DB.QueryContext(ctx,
		s.rebind(`SELECT id, name, user_id, parent_id, created_at FROM directories WHERE user_id = ? AND parent_id = ? ORDER BY created_at, id`),
		userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}
	defer rows.Close()

	var dirs []*namespace.Directory
	for rows.Next() {
		dir, err := scanDirectory(rows)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}

	return dirs, rows.Err()
}

// CreateDirectory inserts a directory. A nil parentID with an empty name
// creates a user's root.
func (s *SQLStore) CreateDirectory(ctx context.Context, userID string, parentID *string, name string) (*namespace.Directory, error) {
	dir := &namespace.Directory{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.DB.ExecContext(ctx,
		s.rebind(`INSERT INTO directories (id, name, user_id, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		dir.ID, dir.Name, dir.UserID, nullable(dir.ParentID), dir.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	return dir, nil
}

// RenameDirectory updates a directory's name in place.
func (s *SQLStore) RenameDirectory(ctx context.Context, userID, id, name string) (*namespace.Directory, error) {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`UPDATE directories SET name = ? WHERE id = ? AND user_id = ?`), name, id, userID)
	if err != nil {
		return nil, fmt.Errorf("renaming directory: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, storage.NotFoundError{Kind: "directory", Ref: id}
	}

	return s.GetDirectory(ctx, userID, id)
}

// DeleteDirectoryTree removes a directory and all of its descendants in one
// transaction, relying on the ON DELETE CASCADE foreign keys.
func (s *SQLStore) DeleteDirectoryTree(ctx context.Context, userID, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM directories WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("deleting directory tree: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return storage.NotFoundError{Kind: "directory", Ref: id}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing directory delete: %w", err)
	}

	return nil
}

// GetFile fetches a file by id, scoped to the user.
func (s *SQLStore) GetFile(ctx context.Context, userID, id string) (*namespace.File, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, user_id, directory_id, payload_ref, metadata, created_at FROM files WHERE id = ? AND user_id = ?`),
		id, userID)

	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "file", Ref: id}
	}

	return file, err
}

// FindFileByName fetches the file with the given name inside a directory.
func (s *SQLStore) FindFileByName(ctx context.Context, userID, directoryID, name string) (*namespace.File, error) {
	row := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, user_id, directory_id, payload_ref, metadata, created_at FROM files WHERE user_id = ? AND directory_id = ? AND name = ?`),
		userID, directoryID, name)

	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "file", Ref: name}
	}

	return file, err
}

// ListFiles returns the files inside a directory in creation order.
func (s *SQLStore) ListFiles(ctx context.Context, userID, directoryID string) ([]*namespace.File, error) {
	rows, err := s.DB.QueryContext(ctx,
		s.rebind(`SELECT id, name, user_id, directory_id, payload_ref, metadata, created_at FROM files WHERE user_id = ? AND directory_id = ? ORDER BY created_at, id`),
		userID, directoryID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []*namespace.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// CreateFile inserts a file record. The id and creation time are assigned
// here; the caller provides everything else.
func (s *SQLStore) CreateFile(ctx context.Context, file *namespace.File) (*namespace.File, error) {
	if file == nil {
		return nil, errors.New("cannot create nil file")
	}

	blob, err := marshalBlob(file.Metadata)
	if err != nil {
		return nil, err
	}

	created := *file
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	_, err = s.DB.ExecContext(ctx,
		s.rebind(`INSERT INTO files (id, name, user_id, directory_id, payload_ref, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		created.ID, created.Name, created.UserID, created.DirectoryID, created.PayloadRef, blob, created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	return &created, nil
}

// RenameFile updates a file's name in place.
func (s *SQLStore) RenameFile(ctx context.Context, userID, id, name string) (*namespace.File, error) {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`UPDATE files SET name = ? WHERE id = ? AND user_id = ?`), name, id, userID)
	if err != nil {
		return nil, fmt.Errorf("renaming file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, storage.NotFoundError{Kind: "file", Ref: id}
	}

	return s.GetFile(ctx, userID, id)
}

// DeleteFile removes a single file.
func (s *SQLStore) DeleteFile(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`DELETE FROM files WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.NotFoundError{Kind: "file", Ref: id}
	}

	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*namespace.User, error) {
	var (
		user namespace.User
		blob string
	)
	if err := row.Scan(&user.ID, &user.ChatID, &blob, &user.CreatedAt); err != nil {
		return nil, err
	}

	settings, err := unmarshalBlob(blob)
	if err != nil {
		return nil, err
	}
	user.Settings = settings

	return &user, nil
}

func scanDirectory(row scanner) (*namespace.Directory, error) {
	var (
		dir    namespace.Directory
		parent sql.NullString
	)
	if err := row.Scan(&dir.ID, &dir.Name, &dir.UserID, &parent, &dir.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		dir.ParentID = &parent.String
	}

	return &dir, nil
}

func scanFile(row scanner) (*namespace.File, error) {
	var (
		file namespace.File
		blob string
	)
	if err := row.Scan(&file.ID, &file.Name, &file.UserID, &file.DirectoryID, &file.PayloadRef, &blob, &file.CreatedAt); err != nil {
		return nil, err
	}

	metadata, err := unmarshalBlob(blob)
	if err != nil {
		return nil, err
	}
	file.Metadata = metadata

	return &file, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}
