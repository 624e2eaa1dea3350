package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ArchivedSession is one session's snapshot held in the local archive.
type ArchivedSession struct {
	Info     SessionInfo `json:"info"`
	Messages []Message   `json:"messages"`
}

// Archive is a local SQLite store of session snapshots. Sessions live in
// a single key-value table: "session:<id>" keys hold the session info,
// "transcript:<id>" keys hold the message list.
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS docchatKV (
	key TEXT PRIMARY KEY,
	value TEXT
)`

// OpenArchive opens (creating if needed) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &ArchiveError{Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ArchiveError{Op: "open", Err: fmt.Errorf("database ping failed: %w", err)}
	}

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, &ArchiveError{Op: "open", Err: fmt.Errorf("schema init failed: %w", err)}
	}

	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func sessionKey(id string) string    { return "session:" + id }
func transcriptKey(id string) string { return "transcript:" + id }

func (a *Archive) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	_, err = a.db.Exec(
		"INSERT INTO docchatKV (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(data),
	)
	return err
}

func (a *Archive) get(key string, v interface{}) (bool, error) {
	var value sql.NullString
	err := a.db.QueryRow("SELECT value FROM docchatKV WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !value.Valid {
		return false, nil
	}
	if err := json.Unmarshal([]byte(value.String), v); err != nil {
		return false, fmt.Errorf("unmarshal failed: %w", err)
	}
	return true, nil
}

// queryLike returns all key-value pairs whose key matches the LIKE pattern.
func (a *Archive) queryLike(pattern string) ([]archiveKV, error) {
	rows, err := a.db.Query("SELECT key, value FROM docchatKV WHERE key LIKE ? AND value IS NOT NULL", pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []archiveKV
	for rows.Next() {
		var pair archiveKV
		var value sql.NullString
		if err := rows.Scan(&pair.Key, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			pair.Value = value.String
			pairs = append(pairs, pair)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return pairs, nil
}

type archiveKV struct {
	Key   string
	Value string
}

// SaveSession archives one session snapshot, replacing any prior copy.
func (a *Archive) SaveSession(info SessionInfo, messages []Message) error {
	if info.UpdatedAt.IsZero() {
		info.UpdatedAt = time.Now()
	}
	if err := a.put(sessionKey(info.SessionID), info); err != nil {
		return &ArchiveError{Op: "save", Err: err}
	}
	if err := a.put(transcriptKey(info.SessionID), messages); err != nil {
		return &ArchiveError{Op: "save", Err: err}
	}
	return nil
}

// LoadSessions returns the info records of every archived session, most
// recently updated first. Unreadable entries are skipped.
func (a *Archive) LoadSessions() ([]SessionInfo, error) {
	pairs, err := a.queryLike("session:%")
	if err != nil {
		return nil, &ArchiveError{Op: "list", Err: err}
	}

	sessions := make([]SessionInfo, 0, len(pairs))
	for _, pair := range pairs {
		var info SessionInfo
		if err := json.Unmarshal([]byte(pair.Value), &info); err != nil {
			LogWarn("Skipping unreadable archive entry %s: %v", pair.Key, err)
			continue
		}
		sessions = append(sessions, info)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// LoadTranscript returns one archived session with its messages, or nil
// if the session is not archived.
func (a *Archive) LoadTranscript(sessionID string) (*ArchivedSession, error) {
	var info SessionInfo
	found, err := a.get(sessionKey(sessionID), &info)
	if err != nil {
		return nil, &ArchiveError{Op: "load", Err: err}
	}
	if !found {
		return nil, nil
	}

	var messages []Message
	if _, err := a.get(transcriptKey(sessionID), &messages); err != nil {
		return nil, &ArchiveError{Op: "load", Err: err}
	}
	return &ArchivedSession{Info: info, Messages: messages}, nil
}

// FindSessions returns archived sessions whose name contains the query,
// case-insensitively. An empty query matches everything.
func (a *Archive) FindSessions(query string) ([]SessionInfo, error) {
	sessions, err := a.LoadSessions()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return sessions, nil
	}
	query = strings.ToLower(query)
	matched := sessions[:0]
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.SessionName), query) {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

// DeleteSession removes one session and its transcript from the archive.
func (a *Archive) DeleteSession(sessionID string) error {
	_, err := a.db.Exec("DELETE FROM docchatKV WHERE key IN (?, ?)",
		sessionKey(sessionID), transcriptKey(sessionID))
	if err != nil {
		return &ArchiveError{Op: "delete", Err: err}
	}
	return nil
}
