package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeUniqueViolation      = "23505"
)

const staffColumns = `staff_code, owner_identity, phone, wage_balance, bonus,
        session_holder, session_created_at, session_last_seen,
        name, branch, address, upi_id, bank_account, ifsc,
        works_initiated, category, created_by, created_at, updated_at`

const paymentColumns = `id, staff_code, owner_identity, amount, payment_type, status, reason, actor, request_id, created_at`

const requestColumns = `id, number, staff_code, staff_name, amount, upi_id, status, requested_by,
        created_at, updated_at, approved_at, approved_by, rejected_at, rejected_by, rejection_reason`

// PostgresStore implements Store on a pgx pool. Each RunInTx call is one
// database transaction; rows read for update are locked with FOR UPDATE.
type PostgresStore struct {
	pool    *pgxpool.Pool
	retries int
	logger  *zap.Logger
}

// NewPostgresStore builds the store. retries bounds re-execution on
// serialization failures, deadlocks and key races.
func NewPostgresStore(pool *pgxpool.Pool, retries int, logger *zap.Logger) *PostgresStore {
	if retries < 0 {
		retries = 0
	}
	return &PostgresStore{pool: pool, retries: retries, logger: logger}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		s.logger.Debug("retrying transaction", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrTxConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected:
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCodeUniqueViolation
}

func (s *PostgresStore) GetStaff(ctx context.Context, staffCode string) (*domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE staff_code=$1`
	rec, err := scanStaff(s.pool.QueryRow(ctx, query, staffCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff`
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		query += fmt.Sprintf(" WHERE LOWER(staff_code) LIKE $%d OR LOWER(name) LIKE $%d OR phone LIKE $%d", len(args), len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", normalizeLimit(filter.Limit, 50), offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffRecord
	for rows.Next() {
		rec, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Totals(ctx context.Context) (Totals, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM staff),
            (SELECT COALESCE(SUM(wage_balance), 0) FROM staff),
            (SELECT COALESCE(SUM(bonus), 0) FROM staff),
            (SELECT COUNT(*) FROM payment_requests WHERE status=$1),
            (SELECT COALESCE(SUM(amount), 0) FROM payment_requests WHERE status=$1)`

	var totals Totals
	err := s.pool.QueryRow(ctx, query, string(domain.PaymentRequestPending)).Scan(
		&totals.StaffCount,
		&totals.TotalBalance,
		&totals.TotalBonus,
		&totals.PendingRequests,
		&totals.PendingAmount,
	)
	return totals, err
}

func (s *PostgresStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM staff_payments`
	args := []any{}
	clauses := []string{}
	if filter.StaffCode != "" {
		args = append(args, filter.StaffCode)
		clauses = append(clauses, fmt.Sprintf("staff_code=$%d", len(args)))
	}
	if filter.OwnerIdentity != "" {
		args = append(args, filter.OwnerIdentity)
		clauses = append(clauses, fmt.Sprintf("owner_identity=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT %d", normalizeLimit(filter.Limit, 50))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PaymentRecord
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *payment)
	}
	return result, rows.Err()
}

func (s *PostgresStore) GetPaymentRequest(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id=$1`
	req, err := scanPaymentRequest(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (s *PostgresStore) ListPaymentRequests(ctx context.Context, filter PaymentRequestFilter) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests`
	args := []any{}
	clauses := []string{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.StaffCode != "" {
		args = append(args, filter.StaffCode)
		clauses = append(clauses, fmt.Sprintf("staff_code=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		idx := len(args)
		clauses = append(clauses, fmt.Sprintf("(LOWER(staff_code) LIKE $%d OR LOWER(staff_name) LIKE $%d OR LOWER(upi_id) LIKE $%d)", idx, idx, idx))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY number DESC LIMIT %d OFFSET %d", normalizeLimit(filter.Limit, 50), offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

// Close is a no-op; the pool is owned by persistence.Postgres.
func (s *PostgresStore) Close() {}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) GetStaffForUpdate(ctx context.Context, staffCode string) (*domain.StaffRecord, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE staff_code=$1 FOR UPDATE`
	rec, err := scanStaff(t.tx.QueryRow(ctx, query, staffCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// InsertStaff reports a lost insert race as ErrTxConflict so the caller's
// transaction is re-run and observes the winner's row.
func (t *postgresTx) InsertStaff(ctx context.Context, rec *domain.StaffRecord) error {
	const query = `
        INSERT INTO staff (staff_code, owner_identity, phone, wage_balance, bonus,
            session_holder, session_created_at, session_last_seen,
            name, branch, address, upi_id, bank_account, ifsc,
            works_initiated, category, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        ON CONFLICT (staff_code) DO NOTHING`

	holder, createdAt, lastSeen := sessionColumns(rec.ActiveSession)
	cmd, err := t.tx.Exec(ctx, query,
		rec.StaffCode,
		rec.OwnerIdentity,
		rec.Phone,
		rec.WageBalance,
		rec.Bonus,
		holder,
		createdAt,
		lastSeen,
		rec.Profile.Name,
		rec.Profile.Branch,
		rec.Profile.Address,
		rec.Profile.UpiID,
		rec.Profile.BankAccount,
		rec.Profile.IFSC,
		rec.WorksInitiated,
		rec.Category,
		rec.CreatedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTxConflict
	}
	return nil
}

func (t *postgresTx) UpdateStaff(ctx context.Context, rec *domain.StaffRecord) error {
	const query = `
        UPDATE staff
        SET owner_identity=$1, phone=$2, wage_balance=$3, bonus=$4,
            session_holder=$5, session_created_at=$6, session_last_seen=$7,
            name=$8, branch=$9, address=$10, upi_id=$11, bank_account=$12, ifsc=$13,
            works_initiated=$14, category=$15, updated_at=$16
        WHERE staff_code=$17`

	holder, createdAt, lastSeen := sessionColumns(rec.ActiveSession)
	cmd, err := t.tx.Exec(ctx, query,
		rec.OwnerIdentity,
		rec.Phone,
		rec.WageBalance,
		rec.Bonus,
		holder,
		createdAt,
		lastSeen,
		rec.Profile.Name,
		rec.Profile.Branch,
		rec.Profile.Address,
		rec.Profile.UpiID,
		rec.Profile.BankAccount,
		rec.Profile.IFSC,
		rec.WorksInitiated,
		rec.Category,
		rec.UpdatedAt,
		rec.StaffCode,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) InsertPayment(ctx context.Context, payment *domain.PaymentRecord) error {
	const query = `
        INSERT INTO staff_payments (id, staff_code, owner_identity, amount, payment_type, status, reason, actor, request_id, created_at)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()),$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`

	return t.tx.QueryRow(ctx, query,
		payment.ID,
		payment.StaffCode,
		payment.OwnerIdentity,
		payment.Amount,
		string(payment.Type),
		string(payment.Status),
		payment.Reason,
		payment.Actor,
		payment.RequestID,
		payment.CreatedAt,
	).Scan(&payment.ID)
}

func (t *postgresTx) GetPaymentRequestForUpdate(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id=$1 FOR UPDATE`
	req, err := scanPaymentRequest(t.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (t *postgresTx) InsertPaymentRequest(ctx context.Context, req *domain.PaymentRequest) error {
	const query = `
        INSERT INTO payment_requests (id, number, staff_code, staff_name, amount, upi_id, status, requested_by, created_at, updated_at)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()),$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`

	err := t.tx.QueryRow(ctx, query,
		req.ID,
		req.Number,
		req.StaffCode,
		req.StaffName,
		req.Amount,
		req.UpiID,
		string(req.Status),
		req.RequestedBy,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (t *postgresTx) UpdatePaymentRequest(ctx context.Context, req *domain.PaymentRequest) error {
	const query = `
        UPDATE payment_requests
        SET status=$1, updated_at=$2, approved_at=$3, approved_by=$4, rejected_at=$5, rejected_by=$6, rejection_reason=$7
        WHERE id=$8`

	cmd, err := t.tx.Exec(ctx, query,
		string(req.Status),
		req.UpdatedAt,
		req.ApprovedAt,
		req.ApprovedBy,
		req.RejectedAt,
		req.RejectedBy,
		req.RejectionReason,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) NextSequence(ctx context.Context, name string) (int64, error) {
	const query = `
        INSERT INTO counters (name, value) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
        RETURNING value`

	var value int64
	err := t.tx.QueryRow(ctx, query, name).Scan(&value)
	return value, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func sessionColumns(session *domain.ActiveSession) (*string, *time.Time, *time.Time) {
	if session == nil {
		return nil, nil, nil
	}
	holder := session.Holder
	createdAt := session.CreatedAt
	lastSeen := session.LastSeen
	return &holder, &createdAt, &lastSeen
}

func scanStaff(row rowScanner) (*domain.StaffRecord, error) {
	var (
		rec              domain.StaffRecord
		sessionHolder    *string
		sessionCreatedAt *time.Time
		sessionLastSeen  *time.Time
	)
	if err := row.Scan(
		&rec.StaffCode,
		&rec.OwnerIdentity,
		&rec.Phone,
		&rec.WageBalance,
		&rec.Bonus,
		&sessionHolder,
		&sessionCreatedAt,
		&sessionLastSeen,
		&rec.Profile.Name,
		&rec.Profile.Branch,
		&rec.Profile.Address,
		&rec.Profile.UpiID,
		&rec.Profile.BankAccount,
		&rec.Profile.IFSC,
		&rec.WorksInitiated,
		&rec.Category,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if sessionHolder != nil && *sessionHolder != "" {
		session := &domain.ActiveSession{Holder: *sessionHolder}
		if sessionCreatedAt != nil {
			session.CreatedAt = *sessionCreatedAt
		}
		if sessionLastSeen != nil {
			session.LastSeen = *sessionLastSeen
		}
		rec.ActiveSession = session
	}
	return &rec, nil
}

func scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var (
		payment     domain.PaymentRecord
		paymentType string
		status      string
	)
	if err := row.Scan(
		&payment.ID,
		&payment.StaffCode,
		&payment.OwnerIdentity,
		&payment.Amount,
		&paymentType,
		&status,
		&payment.Reason,
		&payment.Actor,
		&payment.RequestID,
		&payment.CreatedAt,
	); err != nil {
		return nil, err
	}
	payment.Type = domain.PaymentType(paymentType)
	payment.Status = domain.PaymentStatus(status)
	return &payment, nil
}

func scanPaymentRequest(row rowScanner) (*domain.PaymentRequest, error) {
	var (
		req    domain.PaymentRequest
		status string
	)
	if err := row.Scan(
		&req.ID,
		&req.Number,
		&req.StaffCode,
		&req.StaffName,
		&req.Amount,
		&req.UpiID,
		&status,
		&req.RequestedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ApprovedAt,
		&req.ApprovedBy,
		&req.RejectedAt,
		&req.RejectedBy,
		&req.RejectionReason,
	); err != nil {
		return nil, err
	}
	req.Status = domain.PaymentRequestStatus(status)
	return &req, nil
}
