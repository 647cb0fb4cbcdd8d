package iteration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petrel-quant/petrel/internal/database"
)

// Pool is the append-only patch proposal ledger. Rows are inserted once
// with status "proposed"; SetStatus is the only mutation afterwards and is
// driven exclusively by the review endpoint.
type Pool struct {
	db  *database.DB
	log zerolog.Logger
}

func NewPool(db *database.DB, log zerolog.Logger) *Pool {
	return &Pool{db: db, log: log.With().Str("repo", "patch_pool").Logger()}
}

// Append inserts a proposal. Status is forced to "proposed" regardless of
// the incoming value; an empty id gets a fresh uuid.
func (p *Pool) Append(prop Proposal) (Proposal, error) {
	if prop.ID == "" {
		prop.ID = uuid.NewString()
	}
	prop.Status = StatusProposed
	if prop.CreatedAt.IsZero() {
		prop.CreatedAt = time.Now().UTC()
	}

	evidence, err := json.Marshal(prop.Evidence)
	if err != nil {
		return prop, fmt.Errorf("failed to marshal proposal evidence: %w", err)
	}

	_, err = p.db.Conn().Exec(`
		INSERT INTO patch_proposals (id, trade_date, type, title, suggestion, evidence, confidence, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prop.ID, prop.TradeDate, prop.Type, prop.Title, prop.Suggestion,
		string(evidence), prop.Confidence, prop.Status, prop.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return prop, fmt.Errorf("failed to append proposal: %w", err)
	}
	return prop, nil
}

// SetStatus moves a proposal between proposed/accepted/rejected. No other
// column is touched.
func (p *Pool) SetStatus(id, status string) error {
	switch status {
	case StatusProposed, StatusAccepted, StatusRejected:
	default:
		return fmt.Errorf("invalid proposal status %q", status)
	}

	res, err := p.db.Conn().Exec(`UPDATE patch_proposals SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("proposal %s not found", id)
	}
	p.log.Info().Str("id", id).Str("status", status).Msg("Proposal status updated")
	return nil
}

// List returns proposals, newest first, optionally filtered by status.
func (p *Pool) List(status string) ([]Proposal, error) {
	query := `SELECT id, trade_date, type, title, suggestion, evidence, confidence, status, created_at
		FROM patch_proposals`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := p.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []Proposal
	for rows.Next() {
		prop, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, prop)
	}
	return out, rows.Err()
}

// Get returns a single proposal by id.
func (p *Pool) Get(id string) (Proposal, error) {
	row := p.db.Conn().QueryRow(`SELECT id, trade_date, type, title, suggestion, evidence, confidence, status, created_at
		FROM patch_proposals WHERE id = ?`, id)
	return scanProposal(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (Proposal, error) {
	var prop Proposal
	var evidence, createdAt string
	err := row.Scan(&prop.ID, &prop.TradeDate, &prop.Type, &prop.Title,
		&prop.Suggestion, &evidence, &prop.Confidence, &prop.Status, &createdAt)
	if err == sql.ErrNoRows {
		return prop, fmt.Errorf("proposal not found")
	}
	if err != nil {
		return prop, fmt.Errorf("failed to scan proposal: %w", err)
	}
	if evidence != "" {
		if err := json.Unmarshal([]byte(evidence), &prop.Evidence); err != nil {
			return prop, fmt.Errorf("failed to decode proposal evidence: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		prop.CreatedAt = t
	}
	return prop, nil
}
