package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/rs/zerolog/log"
)

// TransactionRepository reads the queue transaction log. The log is never written.
// List skips rows that cannot be read and reports each one as a bad record diagnostic.
type TransactionRepository interface {
	List(ctx context.Context) ([]domain.Transaction, []domain.Diagnostic, error)
	LogVersion(ctx context.Context) (LogVersion, error)
}

// LogVersion fingerprints the log so derived reports can be memoized.
type LogVersion struct {
	Count  int    `json:"count"`
	LastID string `json:"last_id"`
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type transactionRow struct {
	RequestID    sql.NullString `db:"request_id"`
	RequestType  sql.NullString `db:"request_type"`
	Items        sql.NullString `db:"items"`
	QueueInTime  sql.NullString `db:"queue_in_time"`
	QueueOutTime sql.NullString `db:"queue_out_time"`
	Priority     sql.NullString `db:"priority"`
	StationNo    sql.NullInt64  `db:"station_no"`
}

type transactionRepository struct {
	db    *DB
	table string
}

func NewTransactionRepository(db *DB, table string) (TransactionRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid source table name %q", table)
	}
	return &transactionRepository{db: db, table: table}, nil
}

func (r *transactionRepository) List(ctx context.Context) ([]domain.Transaction, []domain.Diagnostic, error) {
	query := fmt.Sprintf(`
		SELECT request_id, request_type, items, queue_in_time, queue_out_time, priority, station_no
		FROM %s
		ORDER BY queue_in_time, request_id
	`, r.table)

	var rows []transactionRow
	err := r.db.withPermit(ctx, func() error {
		return r.db.SelectContext(ctx, &rows, query)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: list transactions: %v", domain.ErrSourceUnavailable, err)
	}

	txs := make([]domain.Transaction, 0, len(rows))
	var bad []domain.Diagnostic
	for _, row := range rows {
		tx, err := row.toDomain()
		if err != nil {
			log.Warn().Err(err).Str("request_id", tx.RequestID).Msg("skipping unreadable transaction record")
			bad = append(bad, domain.NewDiagnostic(tx.RequestID, "", err))
			continue
		}
		txs = append(txs, tx)
	}

	log.Debug().
		Int("transactions", len(txs)).
		Int("bad_records", len(bad)).
		Str("table", r.table).
		Msg("transaction log loaded")
	return txs, bad, nil
}

func (r *transactionRepository) LogVersion(ctx context.Context) (LogVersion, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)
	lastQuery := fmt.Sprintf(`
		SELECT request_id
		FROM %s
		ORDER BY queue_in_time DESC, request_id DESC
		LIMIT 1
	`, r.table)

	var version LogVersion
	err := r.db.withPermit(ctx, func() error {
		if err := r.db.GetContext(ctx, &version.Count, countQuery); err != nil {
			return err
		}
		if version.Count == 0 {
			return nil
		}

		var last sql.NullString
		if err := r.db.GetContext(ctx, &last, lastQuery); err != nil {
			return err
		}
		version.LastID = last.String
		return nil
	})
	if err != nil {
		return LogVersion{}, fmt.Errorf("%w: log version: %v", domain.ErrSourceUnavailable, err)
	}

	return version, nil
}

func (row transactionRow) toDomain() (domain.Transaction, error) {
	requestID := strings.TrimSpace(row.RequestID.String)

	in, err := parseTime(row.QueueInTime.String)
	if err != nil {
		return domain.Transaction{RequestID: requestID}, fmt.Errorf("%w: queue_in_time: %v", domain.ErrBadRecord, err)
	}

	rt, _ := domain.ParseRequestType(row.RequestType.String)
	tx := domain.Transaction{
		RequestID:   requestID,
		RequestType: rt,
		Items:       row.Items.String,
		QueueInTime: in,
		Priority:    row.Priority.String,
	}

	if row.QueueOutTime.Valid && strings.TrimSpace(row.QueueOutTime.String) != "" {
		out, err := parseTime(row.QueueOutTime.String)
		if err != nil {
			log.Warn().Str("request_id", requestID).Err(err).Msg("unreadable queue_out_time, treating as still queued")
		} else {
			tx.QueueOutTime = &out
		}
	}

	if row.StationNo.Valid {
		station := int(row.StationNo.Int64)
		tx.StationNo = &station
	}

	return tx, nil
}

func parseTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
