package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const splitBillColumns = `split_bill_id, user_id, title, total_amount, currency_code, payer_account_id,
	created_at, created_by, last_updated_at, last_updated_by`

func scanSplitBill(row pgx.Row) (domain.SplitBill, error) {
	var (
		bill  domain.SplitBill
		payer *string
	)
	err := row.Scan(
		&bill.SplitBillID,
		&bill.UserID,
		&bill.Title,
		&bill.TotalAmount,
		&bill.CurrencyCode,
		&payer,
		&bill.CreatedAt,
		&bill.CreatedBy,
		&bill.LastUpdatedAt,
		&bill.LastUpdatedBy,
	)
	bill.PayerAccountID = deref(payer)
	bill.CreatedAt = domain.NormalizeTime(bill.CreatedAt)
	bill.LastUpdatedAt = domain.NormalizeTime(bill.LastUpdatedAt)
	return bill, err
}

// participantsOf loads the participants of the given bills keyed by bill id,
// each slice in position order.
func (r reader) participantsOf(ctx context.Context, billIDs []string) (map[string][]domain.SplitBillParticipant, error) {
	query := `
		SELECT participant_id, split_bill_id, position, name, amount, is_paid, paid_at, payment_transaction_id
		FROM split_bill_participants
		WHERE split_bill_id = ANY($1)
		ORDER BY split_bill_id, position;
	`
	rows, err := r.q.Query(ctx, query, billIDs)
	if err != nil {
		return nil, mapError(err, "failed to load split bill participants")
	}
	defer rows.Close()

	out := make(map[string][]domain.SplitBillParticipant, len(billIDs))
	for rows.Next() {
		var (
			p         domain.SplitBillParticipant
			paymentID *string
		)
		if err := rows.Scan(&p.ParticipantID, &p.SplitBillID, &p.Position, &p.Name, &p.Amount, &p.IsPaid, &p.PaidAt, &paymentID); err != nil {
			return nil, mapError(err, "failed to scan participant row")
		}
		if p.PaidAt != nil {
			paidAt := domain.NormalizeTime(*p.PaidAt)
			p.PaidAt = &paidAt
		}
		p.PaymentTransactionID = deref(paymentID)
		out[p.SplitBillID] = append(out[p.SplitBillID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating participant rows")
	}
	return out, nil
}

func (r reader) findSplitBill(ctx context.Context, splitBillID string, forUpdate bool) (*domain.SplitBill, error) {
	query := `SELECT ` + splitBillColumns + ` FROM split_bills WHERE split_bill_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	bill, err := scanSplitBill(r.q.QueryRow(ctx, query, splitBillID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: split bill %s", apperrors.ErrNotFound, splitBillID)
		}
		return nil, mapError(err, "failed to find split bill "+splitBillID)
	}
	participants, err := r.participantsOf(ctx, []string{splitBillID})
	if err != nil {
		return nil, err
	}
	bill.Participants = participants[splitBillID]
	return &bill, nil
}

// FindSplitBillByID retrieves a bill with its participants.
func (r reader) FindSplitBillByID(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	return r.findSplitBill(ctx, splitBillID, false)
}

// ListSplitBillsByUser retrieves every bill of a user, newest first.
func (r reader) ListSplitBillsByUser(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	query := `SELECT ` + splitBillColumns + ` FROM split_bills WHERE user_id = $1 ORDER BY created_at DESC, split_bill_id DESC;`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError(err, "failed to list split bills")
	}
	bills := make([]domain.SplitBill, 0)
	for rows.Next() {
		bill, err := scanSplitBill(rows)
		if err != nil {
			rows.Close()
			return nil, mapError(err, "failed to scan split bill row")
		}
		bills = append(bills, bill)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating split bill rows")
	}
	if len(bills) == 0 {
		return bills, nil
	}

	ids := make([]string, len(bills))
	for i := range bills {
		ids[i] = bills[i].SplitBillID
	}
	participants, err := r.participantsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		bills[i].Participants = participants[bills[i].SplitBillID]
	}
	return bills, nil
}

// SaveSplitBill inserts a bill and its participants in one batch.
func (w writer) SaveSplitBill(ctx context.Context, bill domain.SplitBill) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO split_bills (`+splitBillColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		bill.SplitBillID,
		bill.UserID,
		bill.Title,
		bill.TotalAmount,
		bill.CurrencyCode,
		nullIfEmpty(bill.PayerAccountID),
		bill.CreatedAt,
		bill.CreatedBy,
		bill.LastUpdatedAt,
		bill.LastUpdatedBy,
	)
	for _, p := range bill.Participants {
		batch.Queue(`
			INSERT INTO split_bill_participants (participant_id, split_bill_id, position, name, amount, is_paid, paid_at, payment_transaction_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			p.ParticipantID, bill.SplitBillID, p.Position, p.Name, p.Amount, p.IsPaid, p.PaidAt, nullIfEmpty(p.PaymentTransactionID),
		)
	}

	br := w.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return mapError(err, "failed to save split bill "+bill.SplitBillID)
		}
	}
	if err := br.Close(); err != nil {
		return mapError(err, "failed to save split bill "+bill.SplitBillID)
	}
	return nil
}

// LockSplitBill selects a bill FOR UPDATE together with its participants.
func (w writer) LockSplitBill(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	return w.findSplitBill(ctx, splitBillID, true)
}

// UpdateParticipant writes the settlement fields of a participant.
func (w writer) UpdateParticipant(ctx context.Context, p domain.SplitBillParticipant) error {
	query := `
		UPDATE split_bill_participants
		SET is_paid = $3, paid_at = $4, payment_transaction_id = $5
		WHERE participant_id = $1 AND split_bill_id = $2;
	`
	tag, err := w.q.Exec(ctx, query, p.ParticipantID, p.SplitBillID, p.IsPaid, p.PaidAt, nullIfEmpty(p.PaymentTransactionID))
	if err != nil {
		return mapError(err, "failed to update participant "+p.ParticipantID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: participant %s", apperrors.ErrNotFound, p.ParticipantID)
	}
	return nil
}
