package digest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/database"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

// Repository persists digests and their ranked recommendations
type Repository struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewRepository creates a new digest repository
func NewRepository(db *sqlx.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "digest").Logger(),
	}
}

type digestRow struct {
	ID          string `db:"id"`
	DigestDate  string `db:"digest_date"`
	GeneratedAt int64  `db:"generated_at"`
	Payload     string `db:"payload"`
}

type recordRow struct {
	ID               string  `db:"id"`
	DigestID         string  `db:"digest_id"`
	DigestDate       string  `db:"digest_date"`
	Ticker           string  `db:"ticker"`
	Rank             int     `db:"rank"`
	Action           string  `db:"action"`
	TotalScore       float64 `db:"total_score"`
	TechnicalScore   float64 `db:"technical_score"`
	FundamentalScore float64 `db:"fundamental_score"`
	CatalystScore    float64 `db:"catalyst_score"`
	Price            float64 `db:"price"`
	CreatedAt        int64   `db:"created_at"`
}

func (r recordRow) toRecord() Record {
	return Record{
		ID:               r.ID,
		DigestID:         r.DigestID,
		DigestDate:       r.DigestDate,
		Ticker:           r.Ticker,
		Rank:             r.Rank,
		Action:           scorers.Action(r.Action),
		TotalScore:       r.TotalScore,
		TechnicalScore:   r.TechnicalScore,
		FundamentalScore: r.FundamentalScore,
		CatalystScore:    r.CatalystScore,
		Price:            r.Price,
		CreatedAt:        time.Unix(r.CreatedAt, 0).UTC(),
	}
}

// Save stores a digest, replacing any digest already stored for the same date
func (r *Repository) Save(ctx context.Context, d *Digest) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}

	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM recommendations WHERE digest_date = ?"), d.Date); err != nil {
			return fmt.Errorf("failed to delete previous recommendations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM digests WHERE digest_date = ?"), d.Date); err != nil {
			return fmt.Errorf("failed to delete previous digest: %w", err)
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO digests (id, digest_date, generated_at, payload) VALUES (?, ?, ?, ?)`),
			d.ID, d.Date, d.GeneratedAt.Unix(), string(payload))
		if err != nil {
			return fmt.Errorf("failed to insert digest: %w", err)
		}

		insert := tx.Rebind(`
			INSERT INTO recommendations (
				id, digest_id, digest_date, ticker, rank, action,
				total_score, technical_score, fundamental_score, catalyst_score, price, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for _, rec := range d.Rankings {
			_, err := tx.ExecContext(ctx, insert,
				rec.ID, d.ID, d.Date, rec.Ticker, rec.Rank, string(rec.Action),
				rec.TotalScore, rec.TechnicalScore, rec.FundamentalScore, rec.CatalystScore,
				rec.Price, rec.CreatedAt.Unix())
			if err != nil {
				return fmt.Errorf("failed to insert recommendation %s: %w", rec.Ticker, err)
			}
		}
		return nil
	})
}

// GetByDate returns the digest for a YYYY-MM-DD date or database.ErrNotFound
func (r *Repository) GetByDate(ctx context.Context, date string) (*Digest, error) {
	var row digestRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		"SELECT id, digest_date, generated_at, payload FROM digests WHERE digest_date = ?"), date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("digest for %s: %w", date, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get digest for %s: %w", date, err)
	}
	return decodeDigest(row)
}

// List returns the newest digests first
func (r *Repository) List(ctx context.Context, limit int) ([]Digest, error) {
	var rows []digestRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT id, digest_date, generated_at, payload FROM digests ORDER BY digest_date DESC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}

	digests := make([]Digest, 0, len(rows))
	for _, row := range rows {
		d, err := decodeDigest(row)
		if err != nil {
			r.log.Warn().Err(err).Str("date", row.DigestDate).Msg("Skipping undecodable digest")
			continue
		}
		digests = append(digests, *d)
	}
	return digests, nil
}

// TopPicks returns the rank-one recommendation of the newest digests
func (r *Repository) TopPicks(ctx context.Context, limit int) ([]Record, error) {
	var rows []recordRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, digest_id, digest_date, ticker, rank, action,
			total_score, technical_score, fundamental_score, catalyst_score, price, created_at
		FROM recommendations
		WHERE rank = 1
		ORDER BY digest_date DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top picks: %w", err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}

// Recommendations returns every ranked recommendation of a digest date in rank order
func (r *Repository) Recommendations(ctx context.Context, date string) ([]Record, error) {
	var rows []recordRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, digest_id, digest_date, ticker, rank, action,
			total_score, technical_score, fundamental_score, catalyst_score, price, created_at
		FROM recommendations
		WHERE digest_date = ?
		ORDER BY rank`), date)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations for %s: %w", date, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}

func decodeDigest(row digestRow) (*Digest, error) {
	var d Digest
	if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
		return nil, fmt.Errorf("failed to decode digest %s: %w", row.ID, err)
	}
	return &d, nil
}
