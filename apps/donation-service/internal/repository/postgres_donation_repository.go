package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/pkg/database"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

// Schema creates the donations table and its indexes
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS donations (
		id VARCHAR(36) PRIMARY KEY,
		campaign VARCHAR(100) NOT NULL,
		external_id VARCHAR(150) NOT NULL UNIQUE,
		transaction_id VARCHAR(255) NOT NULL,
		provider VARCHAR(30) NOT NULL,
		method VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		amount_minor BIGINT NOT NULL,
		base_amount_minor BIGINT NOT NULL,
		split JSONB NOT NULL DEFAULT '[]',
		demo_mode BOOLEAN NOT NULL DEFAULT FALSE,
		customer_email VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMP WITH TIME ZONE,
		paid_at TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_transaction_id ON donations (transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_campaign_status ON donations (campaign, status)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_status_updated ON donations (status, updated_at)`,
}

const donationColumns = `id, campaign, external_id, transaction_id, provider, method, status,
		       amount_minor, base_amount_minor, split, demo_mode, customer_email,
		       created_at, updated_at, expires_at, paid_at`

// PostgresDonationRepository implements DonationRepository using PostgreSQL
type PostgresDonationRepository struct {
	db *database.PostgresDB
}

// NewPostgresDonationRepository creates a new PostgreSQL donation repository
func NewPostgresDonationRepository(db *database.PostgresDB) *PostgresDonationRepository {
	return &PostgresDonationRepository{db: db}
}

// Migrate creates the schema when missing
func (r *PostgresDonationRepository) Migrate(ctx context.Context) error {
	return r.db.Migrate(ctx, Schema...)
}

func (r *PostgresDonationRepository) Create(ctx context.Context, d *domain.Donation) error {
	query := `
		INSERT INTO donations (
			id, campaign, external_id, transaction_id, provider, method, status,
			amount_minor, base_amount_minor, split, demo_mode, customer_email,
			created_at, updated_at, expires_at, paid_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	splitJSON, err := json.Marshal(d.Split)
	if err != nil {
		return fmt.Errorf("failed to marshal split: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		d.ID,
		d.Campaign,
		d.ExternalID,
		d.TransactionID,
		d.Provider,
		string(d.Method),
		string(d.Status),
		d.AmountMinor,
		d.BaseAmountMinor,
		splitJSON,
		d.DemoMode,
		d.CustomerEmail,
		d.CreatedAt,
		d.UpdatedAt,
		d.ExpiresAt,
		d.PaidAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrDonationExists
		}
		return fmt.Errorf("failed to create donation: %w", err)
	}

	return nil
}

func (r *PostgresDonationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	d, err := scanDonation(r.db.QueryRow(ctx, query, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDonationNotFound
	}
	return d, err
}

func (r *PostgresDonationRepository) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, paidAt *time.Time) error {
	query := `
		UPDATE donations
		SET status = $2,
		    paid_at = COALESCE($3, paid_at),
		    updated_at = NOW()
		WHERE transaction_id = $1`

	result, err := r.db.Exec(ctx, query, transactionID, string(status), paidAt)
	if err != nil {
		return fmt.Errorf("failed to update donation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDonationNotFound
	}
	return nil
}

func (r *PostgresDonationRepository) ListPending(ctx context.Context, limit int) ([]*domain.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE status = $1
		ORDER BY updated_at ASC, created_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, string(domain.TransactionStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending donations: %w", err)
	}
	return collectDonations(rows)
}

func (r *PostgresDonationRepository) MarkChecked(ctx context.Context, transactionID string) error {
	result, err := r.db.Exec(ctx, `UPDATE donations SET updated_at = NOW() WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark donation checked: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDonationNotFound
	}
	return nil
}

func (r *PostgresDonationRepository) ListByCampaign(ctx context.Context, campaign string, limit, offset int) ([]*domain.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE campaign = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, campaign, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	return collectDonations(rows)
}

func (r *PostgresDonationRepository) CampaignStats(ctx context.Context, campaign string) (*domain.CampaignStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'APPROVED'),
		       COALESCE(SUM(amount_minor) FILTER (WHERE status = 'APPROVED'), 0)
		FROM donations
		WHERE campaign = $1 AND demo_mode = FALSE`

	stats := &domain.CampaignStats{Campaign: campaign}
	err := r.db.QueryRow(ctx, query, campaign).Scan(
		&stats.DonationCount,
		&stats.PendingCount,
		&stats.SettledCount,
		&stats.RaisedMinor,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate donations: %w", err)
	}
	return stats, nil
}

// scanDonation reads one row; pgx.Rows satisfies pgx.Row as well
func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	var method, status string
	var email *string
	var splitJSON []byte

	err := row.Scan(
		&d.ID,
		&d.Campaign,
		&d.ExternalID,
		&d.TransactionID,
		&d.Provider,
		&method,
		&status,
		&d.AmountMinor,
		&d.BaseAmountMinor,
		&splitJSON,
		&d.DemoMode,
		&email,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ExpiresAt,
		&d.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan donation: %w", err)
	}

	d.Method = domain.PaymentMethod(method)
	d.Status = domain.TransactionStatus(status)
	if email != nil {
		d.CustomerEmail = *email
	}
	if len(splitJSON) > 0 {
		if err := json.Unmarshal(splitJSON, &d.Split); err != nil {
			return nil, fmt.Errorf("failed to unmarshal split: %w", err)
		}
	}

	return &d, nil
}

func collectDonations(rows pgx.Rows) ([]*domain.Donation, error) {
	defer rows.Close()

	var donations []*domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}
	return donations, nil
}
