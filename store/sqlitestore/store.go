// Package sqlitestore keeps codes and token pairs in a SQLite database through sqlx.
package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/go-mock-oauth/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS authorization_codes (
	value        TEXT PRIMARY KEY,
	client_id    TEXT NOT NULL DEFAULT '',
	redirect_uri TEXT NOT NULL DEFAULT '',
	issued_at    INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL,
	used         INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS token_pairs (
	access_token  TEXT PRIMARY KEY,
	refresh_token TEXT NOT NULL UNIQUE,
	subject_id    TEXT NOT NULL,
	scope         TEXT NOT NULL DEFAULT '',
	issued_at     INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
`

type codeRow struct {
	Value       string `db:"value"`
	ClientID    string `db:"client_id"`
	RedirectURI string `db:"redirect_uri"`
	IssuedAt    int64  `db:"issued_at"`
	ExpiresAt   int64  `db:"expires_at"`
	Used        bool   `db:"used"`
}

func (r codeRow) toCode() *store.AuthorizationCode {
	return &store.AuthorizationCode{
		Value:       r.Value,
		ClientID:    r.ClientID,
		RedirectURI: r.RedirectURI,
		IssuedAt:    time.UnixMilli(r.IssuedAt).UTC(),
		ExpiresAt:   time.UnixMilli(r.ExpiresAt).UTC(),
		Used:        r.Used,
	}
}

type pairRow struct {
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	SubjectID    string `db:"subject_id"`
	Scope        string `db:"scope"`
	IssuedAt     int64  `db:"issued_at"`
	ExpiresAt    int64  `db:"expires_at"`
}

func (r pairRow) toPair() *store.TokenPair {
	return &store.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		SubjectID:    r.SubjectID,
		Scope:        r.Scope,
		IssuedAt:     time.UnixMilli(r.IssuedAt).UTC(),
		ExpiresAt:    time.UnixMilli(r.ExpiresAt).UTC(),
	}
}

// Store implements store.Store on SQLite.
//
// The pool is limited to one connection: SQLite allows a single writer, and serialising at the
// pool keeps transactions from failing with SQLITE_BUSY under concurrent requests.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrapf(err, "[sqlitestore.Open] failed to open %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqlitestore.Open] failed to apply schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) PutCode(ctx context.Context, code *store.AuthorizationCode) error {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO authorization_codes (value, client_id, redirect_uri, issued_at, expires_at, used)
		VALUES (:value, :client_id, :redirect_uri, :issued_at, :expires_at, :used)
		ON CONFLICT(value) DO NOTHING`,
		codeRow{
			Value:       code.Value,
			ClientID:    code.ClientID,
			RedirectURI: code.RedirectURI,
			IssuedAt:    code.IssuedAt.UnixMilli(),
			ExpiresAt:   code.ExpiresAt.UnixMilli(),
			Used:        code.Used,
		})
	if err != nil {
		return errors.Wrap(err, "[sqlitestore.PutCode] failed to insert code")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrCodeExists
	}
	return nil
}

// ConsumeCode marks the code used with one conditional UPDATE; only when that matches
// nothing does it read the row to report why.
func (s *Store) ConsumeCode(ctx context.Context, value string, now time.Time) (*store.AuthorizationCode, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.ConsumeCode] failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE authorization_codes SET used = 1
		WHERE value = ? AND used = 0 AND expires_at >= ?`, value, now.UnixMilli())
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.ConsumeCode] failed to mark code used")
	}
	consumed, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.ConsumeCode] failed to read affected rows")
	}

	var row codeRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM authorization_codes WHERE value = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCodeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.ConsumeCode] failed to read code")
	}

	if consumed == 0 {
		if row.Used {
			return nil, store.ErrCodeUsed
		}
		return nil, store.ErrCodeExpired
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.ConsumeCode] failed to commit")
	}
	return row.toCode(), nil
}

// DeleteExpiredCodes removes codes that expired before now and returns how many were removed.
func (s *Store) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "[sqlitestore.DeleteExpiredCodes] failed to delete codes")
	}
	return res.RowsAffected()
}

func (s *Store) PutTokens(ctx context.Context, pair *store.TokenPair) error {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO token_pairs (access_token, refresh_token, subject_id, scope, issued_at, expires_at)
		VALUES (:access_token, :refresh_token, :subject_id, :scope, :issued_at, :expires_at)
		ON CONFLICT DO NOTHING`,
		pairRow{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			SubjectID:    pair.SubjectID,
			Scope:        pair.Scope,
			IssuedAt:     pair.IssuedAt.UnixMilli(),
			ExpiresAt:    pair.ExpiresAt.UnixMilli(),
		})
	if err != nil {
		return errors.Wrap(err, "[sqlitestore.PutTokens] failed to insert token pair")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrTokenExists
	}
	return nil
}

func (s *Store) GetByAccessToken(ctx context.Context, accessToken string) (*store.TokenPair, error) {
	var row pairRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM token_pairs WHERE access_token = ?`, accessToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.GetByAccessToken] failed to read token pair")
	}
	return row.toPair(), nil
}

func (s *Store) TakeByRefreshToken(ctx context.Context, refreshToken string) (*store.TokenPair, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.TakeByRefreshToken] failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row pairRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM token_pairs WHERE refresh_token = ?`, refreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.TakeByRefreshToken] failed to read token pair")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM token_pairs WHERE access_token = ?`, row.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.TakeByRefreshToken] failed to delete token pair")
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return nil, store.ErrTokenNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.TakeByRefreshToken] failed to commit")
	}
	return row.toPair(), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
