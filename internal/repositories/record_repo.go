package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwhitlock/tether/internal/database"
	"github.com/mwhitlock/tether/internal/models"
)

// RecordRepository is the user record store: one JSONB document per
// provider-issued user id. All writes are field-level merges so
// interleaved webhook deliveries for the same user converge instead of
// clobbering each other; per-document atomicity comes from Postgres.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(db *database.DB) *RecordRepository {
	return &RecordRepository{pool: db.Pool}
}

func (r *RecordRepository) Get(ctx context.Context, providerID string) (*models.UserRecord, error) {
	query := `SELECT doc FROM user_records WHERE provider_id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, query, providerID).Scan(&doc); err != nil {
		return nil, database.MapPostgresError(err)
	}

	var record models.UserRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user record %s: %w", providerID, err)
	}
	record.ProviderID = providerID

	return &record, nil
}

func (r *RecordRepository) Exists(ctx context.Context, providerID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_records WHERE provider_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, providerID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// Apply performs a single merge-upsert: Set updates are folded into the
// stored document, Delete updates remove their keys, and the record is
// created when absent. Re-applying the same updates is idempotent, which
// is what makes webhook redelivery safe.
func (r *RecordRepository) Apply(ctx context.Context, providerID string, updates []models.FieldUpdate) error {
	set := make(map[string]any)
	deletes := make([]string, 0)

	for _, u := range updates {
		switch u.Op {
		case models.OpSet:
			set[u.Field] = u.Value
		case models.OpDelete:
			deletes = append(deletes, u.Field)
		case models.OpUnchanged:
			// no-op
		}
	}

	if len(set) == 0 && len(deletes) == 0 {
		return nil
	}

	set["providerId"] = providerID

	doc, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode field updates: %w", err)
	}

	query := `
		INSERT INTO user_records (provider_id, doc)
		VALUES ($1, $2::jsonb - $3::text[])
		ON CONFLICT (provider_id) DO UPDATE
		SET doc = (user_records.doc || excluded.doc) - $3::text[],
		    updated_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, providerID, string(doc), deletes); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

func (r *RecordRepository) List(ctx context.Context, limit, offset int) ([]*models.UserRecord, error) {
	query := `
		SELECT provider_id, doc FROM user_records
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query user records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.UserRecord, 0)
	for rows.Next() {
		var providerID string
		var doc []byte
		if err := rows.Scan(&providerID, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan user record: %w", err)
		}

		var record models.UserRecord
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("failed to decode user record %s: %w", providerID, err)
		}
		record.ProviderID = providerID
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// ClearExpiredCredentials removes expired session credentials so the next
// protected access remints. Returns the number of records touched.
func (r *RecordRepository) ClearExpiredCredentials(ctx context.Context) (int64, error) {
	query := `
		UPDATE user_records
		SET doc = doc - ARRAY['sessionCredential','credentialExpiresAt'],
		    updated_at = now()
		WHERE doc ? 'sessionCredential'
		  AND ((doc ->> 'credentialExpiresAt') IS NULL
		       OR (doc ->> 'credentialExpiresAt')::timestamptz < now())
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
