package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
)

const splitBillColumns = `split_bill_id, user_id, title, total_amount, currency_code, payer_account_id,
	created_at, created_by, last_updated_at, last_updated_by`

func scanSplitBill(row rowScanner) (domain.SplitBill, error) {
	var (
		bill                 domain.SplitBill
		payer                sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&bill.SplitBillID, &bill.UserID, &bill.Title, &bill.TotalAmount, &bill.CurrencyCode, &payer,
		&createdAt, &bill.CreatedBy, &updatedAt, &bill.LastUpdatedBy)
	bill.PayerAccountID = payer.String
	bill.CreatedAt = fromMicros(createdAt)
	bill.LastUpdatedAt = fromMicros(updatedAt)
	return bill, err
}

// participantsOf loads the participants of the given bills keyed by bill id,
// each slice in position order.
func (r reader) participantsOf(ctx context.Context, billIDs []string) (map[string][]domain.SplitBillParticipant, error) {
	out := make(map[string][]domain.SplitBillParticipant, len(billIDs))
	if len(billIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(billIDs)), ",")
	args := make([]any, len(billIDs))
	for i, id := range billIDs {
		args[i] = id
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT participant_id, split_bill_id, position, name, amount, is_paid, paid_at, payment_transaction_id
		 FROM split_bill_participants WHERE split_bill_id IN (`+placeholders+`)
		 ORDER BY split_bill_id, position`,
		args...,
	)
	if err != nil {
		return nil, mapError(err, "failed to load participants")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         domain.SplitBillParticipant
			paidAt    sql.NullInt64
			paymentID sql.NullString
		)
		if err := rows.Scan(&p.ParticipantID, &p.SplitBillID, &p.Position, &p.Name, &p.Amount, &p.IsPaid, &paidAt, &paymentID); err != nil {
			return nil, mapError(err, "failed to scan participant")
		}
		if paidAt.Valid {
			t := fromMicros(paidAt.Int64)
			p.PaidAt = &t
		}
		p.PaymentTransactionID = paymentID.String
		out[p.SplitBillID] = append(out[p.SplitBillID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate participants")
	}
	return out, nil
}

// FindSplitBillByID retrieves a bill with its participants.
func (r reader) FindSplitBillByID(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	bill, err := scanSplitBill(r.q.QueryRowContext(ctx,
		`SELECT `+splitBillColumns+` FROM split_bills WHERE split_bill_id = ?`, splitBillID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: split bill %s", apperrors.ErrNotFound, splitBillID)
	}
	if err != nil {
		return nil, mapError(err, "failed to get split bill")
	}
	participants, err := r.participantsOf(ctx, []string{splitBillID})
	if err != nil {
		return nil, err
	}
	bill.Participants = participants[splitBillID]
	return &bill, nil
}

// ListSplitBillsByUser retrieves every bill of a user, newest first.
func (r reader) ListSplitBillsByUser(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+splitBillColumns+` FROM split_bills WHERE user_id = ? ORDER BY created_at DESC, split_bill_id DESC`, userID)
	if err != nil {
		return nil, mapError(err, "failed to list split bills")
	}
	bills := make([]domain.SplitBill, 0)
	for rows.Next() {
		bill, err := scanSplitBill(rows)
		if err != nil {
			rows.Close()
			return nil, mapError(err, "failed to scan split bill")
		}
		bills = append(bills, bill)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate split bills")
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

// SaveSplitBill inserts a bill and its participants.
func (w writer) SaveSplitBill(ctx context.Context, bill domain.SplitBill) error {
	_, err := w.q.ExecContext(ctx,
		`INSERT INTO split_bills (`+splitBillColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.SplitBillID, bill.UserID, bill.Title, bill.TotalAmount.String(), bill.CurrencyCode, nullString(bill.PayerAccountID),
		toMicros(bill.CreatedAt), bill.CreatedBy, toMicros(bill.LastUpdatedAt), bill.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to insert split bill")
	}
	for _, p := range bill.Participants {
		_, err = w.q.ExecContext(ctx,
			`INSERT INTO split_bill_participants (participant_id, split_bill_id, position, name, amount, is_paid, paid_at, payment_transaction_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ParticipantID, bill.SplitBillID, p.Position, p.Name, p.Amount.String(), p.IsPaid, paidAtMicros(p), nullString(p.PaymentTransactionID),
		)
		if err != nil {
			return mapError(err, "failed to insert participant")
		}
	}
	return nil
}

// LockSplitBill reads a bill inside the write transaction, which already
// holds the database write lock.
func (w writer) LockSplitBill(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	return w.FindSplitBillByID(ctx, splitBillID)
}

// UpdateParticipant writes the settlement fields of a participant.
func (w writer) UpdateParticipant(ctx context.Context, p domain.SplitBillParticipant) error {
	res, err := w.q.ExecContext(ctx,
		`UPDATE split_bill_participants SET is_paid = ?, paid_at = ?, payment_transaction_id = ?
		 WHERE participant_id = ? AND split_bill_id = ?`,
		p.IsPaid, paidAtMicros(p), nullString(p.PaymentTransactionID), p.ParticipantID, p.SplitBillID,
	)
	if err != nil {
		return mapError(err, "failed to update participant")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: participant %s", apperrors.ErrNotFound, p.ParticipantID)
	}
	return nil
}

func paidAtMicros(p domain.SplitBillParticipant) sql.NullInt64 {
	if p.PaidAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*p.PaidAt), Valid: true}
}
