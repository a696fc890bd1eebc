package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperpath/docusign-connect/internal/domain"
)

// Compile-time interface assertions.
var (
	_ EnvelopeRepository  = (*PostgresEnvelopeRepo)(nil)
	_ RecipientRepository = (*PostgresRecipientRepo)(nil)
)

// PostgresEnvelopeRepo implements EnvelopeRepository on pgx.
type PostgresEnvelopeRepo struct {
	db *pgxpool.Pool
}

func NewPostgresEnvelopeRepo(pool *pgxpool.Pool) *PostgresEnvelopeRepo {
	return &PostgresEnvelopeRepo{db: pool}
}

const envelopeColumns = `id, envelope_id, original_filename, extension, path, name, subject, status, created_at, updated_at`

const insertEnvelopeSQL = `INSERT INTO envelopes (id, original_filename, extension, path, name, subject, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + envelopeColumns

func (r *PostgresEnvelopeRepo) Create(ctx context.Context, envelope domain.Envelope) (domain.Envelope, error) {
	row := r.db.QueryRow(ctx, insertEnvelopeSQL,
		envelope.ID,
		envelope.OriginalFilename,
		envelope.Extension,
		envelope.Path,
		envelope.Name,
		envelope.Subject,
		string(envelope.Status),
	)
	created, err := scanEnvelope(row)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}
	return created, nil
}

func (r *PostgresEnvelopeRepo) GetByProviderID(ctx context.Context, envelopeID string) (*domain.Envelope, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE envelope_id = $1 LIMIT 1`, envelopeID)
	envelope, err := scanEnvelope(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get envelope by provider id: %w", err)
	}
	return &envelope, nil
}

func (r *PostgresEnvelopeRepo) GetByID(ctx context.Context, id int64) (domain.Envelope, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE id = $1 LIMIT 1`, id)
	envelope, err := scanEnvelope(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Envelope{}, domain.ErrEnvelopeNotFound
		}
		return domain.Envelope{}, fmt.Errorf("get envelope: %w", err)
	}
	return envelope, nil
}

func (r *PostgresEnvelopeRepo) MarkSent(ctx context.Context, id int64, providerEnvelopeID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE envelopes SET envelope_id = $2, status = $3, updated_at = now() WHERE id = $1`,
		id, providerEnvelopeID, string(domain.EnvelopeSent))
	if err != nil {
		return fmt.Errorf("mark envelope sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnvelopeNotFound
	}
	return nil
}

func (r *PostgresEnvelopeRepo) UpdateStatus(ctx context.Context, id int64, status domain.EnvelopeStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE envelopes SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update envelope status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnvelopeNotFound
	}
	return nil
}

func scanEnvelope(row pgx.Row) (domain.Envelope, error) {
	var (
		e          domain.Envelope
		providerID sql.NullString
		status     string
	)
	if err := row.Scan(
		&e.ID,
		&providerID,
		&e.OriginalFilename,
		&e.Extension,
		&e.Path,
		&e.Name,
		&e.Subject,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return domain.Envelope{}, err
	}
	e.EnvelopeID = providerID.String
	e.Status = domain.EnvelopeStatus(status)
	return e, nil
}

// PostgresRecipientRepo implements RecipientRepository on pgx.
type PostgresRecipientRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRecipientRepo(pool *pgxpool.Pool) *PostgresRecipientRepo {
	return &PostgresRecipientRepo{db: pool}
}

const recipientColumns = `id, envelope_id, name, email, signing_order, is_cc, status, created_at, updated_at`

func (r *PostgresRecipientRepo) CreateAll(ctx context.Context, recipients []domain.Recipient) ([]domain.Recipient, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin recipients tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]domain.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		row := tx.QueryRow(ctx,
			`INSERT INTO envelope_recipients (id, envelope_id, name, email, signing_order, is_cc)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+recipientColumns,
			recipient.ID,
			recipient.EnvelopeID,
			recipient.Name,
			recipient.Email,
			recipient.Order,
			recipient.IsCC,
		)
		inserted, err := scanRecipient(row)
		if err != nil {
			return nil, fmt.Errorf("insert recipient: %w", err)
		}
		created = append(created, inserted)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit recipients: %w", err)
	}
	return created, nil
}

func (r *PostgresRecipientRepo) ListByEnvelope(ctx context.Context, envelopeID int64) ([]domain.Recipient, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recipientColumns+` FROM envelope_recipients WHERE envelope_id = $1 ORDER BY signing_order`,
		envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return recipients, nil
}

func (r *PostgresRecipientRepo) GetByOrder(ctx context.Context, envelopeID int64, order int) (*domain.Recipient, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recipientColumns+` FROM envelope_recipients WHERE envelope_id = $1 AND signing_order = $2 LIMIT 1`,
		envelopeID, order)
	recipient, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipient by order: %w", err)
	}
	return &recipient, nil
}

func (r *PostgresRecipientRepo) UpdateStatus(ctx context.Context, id int64, status domain.RecipientStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE envelope_recipients SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update recipient status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

func scanRecipient(row pgx.Row) (domain.Recipient, error) {
	var (
		recipient domain.Recipient
		status    sql.NullString
	)
	if err := row.Scan(
		&recipient.ID,
		&recipient.EnvelopeID,
		&recipient.Name,
		&recipient.Email,
		&recipient.Order,
		&recipient.IsCC,
		&status,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
	); err != nil {
		return domain.Recipient{}, err
	}
	recipient.Status = domain.RecipientStatus(status.String)
	return recipient, nil
}
