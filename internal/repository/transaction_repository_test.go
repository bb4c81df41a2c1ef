package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

func TestTransactionRepo_CompleteTx_OnlyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTransactionRepo(db)
	at := time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)

	q := regexp.QuoteMeta(`UPDATE bowar_transactions SET status = 'completed', approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`)
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs(uint64(2), at, uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(uint64(2), at, uint64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	assert.NoError(t, repo.CompleteTx(context.Background(), tx, 7, 2, at))
	assert.ErrorIs(t, repo.CompleteTx(context.Background(), tx, 7, 2, at), ErrConflict)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	proof := "/uploads/topup/a.png"
	tr := &model.BowarTransaction{
		UserID: 5, WarnetID: 1, Type: model.TxTopup, Status: model.TxPending,
		Amount: decimal.NewFromInt(50000), ProofURL: &proof,
	}
	mock.ExpectExec(`INSERT INTO bowar_transactions`).WillReturnResult(sqlmock.NewResult(77, 1))

	require.NoError(t, NewTransactionRepo(db).Create(context.Background(), tr))
	assert.Equal(t, uint64(77), tr.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)
	user := uint64(5)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bowar_transactions WHERE user_id = ? AND type = ?`)).
		WithArgs(uint64(5), model.TxPayment).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	cols := []string{"id", "user_id", "warnet_id", "booking_id", "type", "amount", "status", "payment_method",
		"proof_url", "payer_name", "description", "approved_by", "approved_at", "rejection_note", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT ? OFFSET ?`)).
		WithArgs(uint64(5), model.TxPayment, 10, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, 5, 1, 42, "payment", "-20000.00", "completed", "dompet_bowar", nil, nil, nil, nil, nil, nil, now, now))

	items, total, err := NewTransactionRepo(db).List(context.Background(),
		TransactionFilter{UserID: &user, Type: model.TxPayment})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(decimal.NewFromInt(-20000)))
	require.NotNil(t, items[0].BookingID)
	assert.Equal(t, uint64(42), *items[0].BookingID)
	assert.Nil(t, items[0].ProofURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
