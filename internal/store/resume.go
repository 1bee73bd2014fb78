package store

import (
	"database/sql"
	"time"
)

// DefaultResumeTTL bounds how long a parked resume blob survives.
const DefaultResumeTTL = 24 * time.Hour

// SaveResumeSession upserts an opaque payload under a caller-chosen key.
// Used to park extracted source text between confirmation steps.
func (s *Store) SaveResumeSession(key, payload string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultResumeTTL
	}
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO resume_sessions (key, payload, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = ?, expires_at = ?`,
		key, payload, now, now.Add(ttl), payload, now.Add(ttl),
	)
	return err
}

// GetResumeSession returns the payload for a key, or found=false when the
// key is unknown or expired. Expired rows are removed on read.
func (s *Store) GetResumeSession(key string) (payload string, found bool, err error) {
	var expiresAt time.Time
	err = s.db.QueryRow(
		`SELECT payload, expires_at FROM resume_sessions WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if time.Now().After(expiresAt) {
		_ = s.DeleteResumeSession(key)
		return "", false, nil
	}
	return payload, true, nil
}

// DeleteResumeSession removes a parked payload.
func (s *Store) DeleteResumeSession(key string) error {
	_, err := s.db.Exec(`DELETE FROM resume_sessions WHERE key = ?`, key)
	return err
}

// CleanupExpired removes expired resume and auth sessions.
func (s *Store) CleanupExpired() error {
	now := time.Now()
	if _, err := s.db.Exec(`DELETE FROM resume_sessions WHERE expires_at < ?`, now); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, now)
	return err
}
