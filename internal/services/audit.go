// Package services provides the snapshot engine, library scanning and the
// running-game watcher behind the daemon's RPC surface.
package services

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/deckops/steamback/internal/database"
)

// AuditService records snapshot operations to the database.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEntry describes one recorded operation.
type AuditEntry struct {
	Action   string
	GameID   int
	Filename string
	Details  map[string]interface{}
}

// Log records an audit entry. Failures are logged, never propagated: audit
// must not break a backup or restore.
func (s *AuditService) Log(entry AuditEntry) {
	var detailsJSON string
	if entry.Details != nil {
		if bytes, err := json.Marshal(entry.Details); err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_logs (entry_id, action, game_id, filename, details)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), entry.Action, entry.GameID, entry.Filename, detailsJSON)
	if err != nil {
		log.Printf("[Audit] failed to record %s: %v", entry.Action, err)
	}
}

// Recent returns the latest audit entries, newest first.
func (s *AuditService) Recent(limit int) ([]AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT action, game_id, filename, details
		FROM audit_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var details string
		if err := rows.Scan(&e.Action, &e.GameID, &e.Filename, &details); err != nil {
			return nil, err
		}
		if details != "" {
			_ = json.Unmarshal([]byte(details), &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
