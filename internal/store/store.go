// Package store is the on-device SQLite store: a mirror of the verified
// organizations directory, the verified-message records, and the
// append-only verification attempt log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tusharbhayani/SigText/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT,
	wallet_address TEXT NOT NULL UNIQUE,
	public_key TEXT,
	verification_status TEXT NOT NULL,
	logo_url TEXT,
	website TEXT,
	contact_email TEXT,
	metadata TEXT,
	created_by TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS verified_messages (
	id TEXT PRIMARY KEY,
	organization_id TEXT,
	message_content TEXT NOT NULL,
	signature TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	sender_address TEXT NOT NULL,
	recipient_address TEXT,
	verification_status TEXT NOT NULL,
	verification_details TEXT,
	block_reference TEXT,
	transaction_reference TEXT,
	created_at TEXT NOT NULL,
	verified_at TEXT,
	UNIQUE(signature, content_hash)
);

CREATE TABLE IF NOT EXISTS verification_attempts (
	id TEXT PRIMARY KEY,
	message_id TEXT,
	user_id TEXT,
	method TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT,
	details TEXT,
	content_hash TEXT,
	signature TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_sender ON verified_messages(sender_address);
CREATE INDEX IF NOT EXISTS idx_attempts_created ON verification_attempts(created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_fingerprint ON verification_attempts(content_hash, signature);
`

// Store manages the SQLite mirror and attempt log. Attempt writes are
// asynchronous and best-effort: a full buffer drops the entry with a
// warning rather than blocking a verification in progress.
type Store struct {
	db      *sql.DB
	writes  chan model.VerificationAttempt
	done    chan struct{}
	flushed chan struct{}
	logger  *slog.Logger
}

// Open opens (or creates) the SQLite database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// WAL improves concurrent read behavior while a sync is writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("setting WAL mode: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("creating schema: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &Store{
		db:      db,
		writes:  make(chan model.VerificationAttempt, 256),
		done:    make(chan struct{}),
		flushed: make(chan struct{}, 1),
		logger:  logger,
	}

	go s.writeLoop()
	return s, nil
}

// Close flushes pending attempt writes and closes the database.
func (s *Store) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

// LogAttempt enqueues a verification attempt for async writing.
func (s *Store) LogAttempt(a model.VerificationAttempt) {
	select {
	case s.writes <- a:
	default:
		s.logger.Warn("attempt write buffer full, dropping entry", "id", a.ID)
	}
}

// Flush blocks until every attempt enqueued so far has been written.
func (s *Store) Flush() {
	marker := model.VerificationAttempt{ID: flushMarker}
	s.writes <- marker
	<-s.flushed
}

const flushMarker = "\x00flush"

func (s *Store) writeLoop() {
	defer close(s.done)
	for a := range s.writes {
		if a.ID == flushMarker {
			s.flushed <- struct{}{}
			continue
		}
		_, err := s.db.Exec(
			`INSERT INTO verification_attempts (id, message_id, user_id, method, success, error, details, content_hash, signature, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.MessageID, a.UserID, string(a.Method), boolInt(a.Success),
			a.Error, a.Details, a.ContentHash, a.Signature,
			a.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			s.logger.Error("attempt write failed", "id", a.ID, "error", err)
		}
	}
}

// SaveMessage inserts a verified message, skipping silently when a row
// with the same (signature, content_hash) already exists. It reports
// whether a new row was written.
func (s *Store) SaveMessage(m model.VerifiedMessage) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO verified_messages
		 (id, organization_id, message_content, signature, content_hash, sender_address, recipient_address,
		  verification_status, verification_details, block_reference, transaction_reference, created_at, verified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(signature, content_hash) DO NOTHING`,
		m.ID, m.OrgID, m.Content, m.Signature, m.ContentHash, m.Sender, m.Recipient,
		string(m.Status), m.Details, m.BlockRef, m.TxRef,
		m.CreatedAt.UTC().Format(time.RFC3339), m.VerifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("saving message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("saving message: %w", err)
	}
	return n > 0, nil
}

// QueryAttempts returns attempt log entries matching the given filters,
// most recent first.
func (s *Store) QueryAttempts(opts AttemptQuery) ([]model.VerificationAttempt, error) {
	query := `SELECT id, message_id, user_id, method, success, error, details, content_hash, signature, created_at
	          FROM verification_attempts WHERE 1=1`
	var args []any

	if opts.Method != "" {
		query += " AND method = ?"
		args = append(args, string(opts.Method))
	}
	if opts.FailedOnly {
		query += " AND success = 0"
	}
	if opts.ContentHash != "" {
		query += " AND content_hash = ?"
		args = append(args, opts.ContentHash)
	}
	if opts.Since != "" {
		query += " AND created_at >= ?"
		args = append(args, opts.Since)
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += " LIMIT 50"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.VerificationAttempt
	for rows.Next() {
		var a model.VerificationAttempt
		var success int
		var msgID, userID, errText, details, hash, sig sql.NullString
		var created string
		if err := rows.Scan(&a.ID, &msgID, &userID, &a.Method, &success, &errText, &details, &hash, &sig, &created); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.MessageID = msgID.String
		a.UserID = userID.String
		a.Success = success == 1
		a.Error = errText.String
		a.Details = details.String
		a.ContentHash = hash.String
		a.Signature = sig.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttemptQuery holds filters for attempt log queries.
type AttemptQuery struct {
	Method      model.Method
	FailedOnly  bool
	ContentHash string
	Since       string
	Limit       int
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func metadataJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
