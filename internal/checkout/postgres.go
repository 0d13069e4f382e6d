package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresJournal implements Journal on top of database/sql.
type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(cred *Credentials) (*PostgresJournal, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresJournal{db: db}, nil
}

func (j *PostgresJournal) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(j.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}

func (j *PostgresJournal) GetOpenSubmission(ctx context.Context, customerID int64) (*Submission, []SubmissionLine, error) {
	var sub Submission
	err := j.db.QueryRowContext(ctx, `
		SELECT id, customer_id, order_id, reused, cart_snapshot, status, created_at, updated_at
		FROM order_submissions
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		customerID, SubmissionStatusInProgress,
	).Scan(&sub.ID, &sub.CustomerID, &sub.OrderID, &sub.Reused, &sub.Snapshot, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoOpenSubmission
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query open submission: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT submission_id, line_index, menu_item_id, quantity, notes, done, order_item_id
		FROM order_submission_lines
		WHERE submission_id = $1
		ORDER BY line_index`,
		sub.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query submission lines: %w", err)
	}
	defer rows.Close()

	var lines []SubmissionLine
	for rows.Next() {
		var line SubmissionLine
		var orderItemID sql.NullInt64
		if err := rows.Scan(&line.SubmissionID, &line.LineIndex, &line.MenuItemID, &line.Quantity, &line.Notes, &line.Done, &orderItemID); err != nil {
			return nil, nil, fmt.Errorf("failed to scan submission line: %w", err)
		}
		if orderItemID.Valid {
			line.OrderItemID = &orderItemID.Int64
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read submission lines: %w", err)
	}

	return &sub, lines, nil
}

func (j *PostgresJournal) CreateSubmission(ctx context.Context, sub *Submission, lines []SubmissionLine) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_submissions (id, customer_id, order_id, reused, cart_snapshot, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.CustomerID, sub.OrderID, sub.Reused, sub.Snapshot, SubmissionStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_submission_lines (submission_id, line_index, menu_item_id, quantity, notes, done)
			VALUES ($1, $2, $3, $4, $5, FALSE)`,
			sub.ID, line.LineIndex, line.MenuItemID, line.Quantity, line.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert submission line %d: %w", line.LineIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission: %w", err)
	}
	return nil
}

func (j *PostgresJournal) MarkLineDone(ctx context.Context, submissionID string, lineIndex int, orderItemID int64) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE order_submission_lines
		SET done = TRUE, order_item_id = $3
		WHERE submission_id = $1 AND line_index = $2`,
		submissionID, lineIndex, orderItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark line done: %w", err)
	}
	return nil
}

// CompleteSubmission flips the submission to COMPLETED and appends the
// order-submitted event in the same transaction, so a completed submission
// can never be missing its event.
func (j *PostgresJournal) CompleteSubmission(ctx context.Context, submissionID string, eventPayload []byte) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE order_submissions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		submissionID, SubmissionStatusCompleted, SubmissionStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to complete submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("submission %s is not in progress", submissionID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (payload) VALUES ($1)`,
		eventPayload,
	)
	if err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

func (j *PostgresJournal) FailSubmission(ctx context.Context, submissionID string) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE order_submissions
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		submissionID, SubmissionStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to fail submission: %w", err)
	}
	return nil
}

func (j *PostgresJournal) GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, payload, created_at
		FROM outbox_events
		WHERE processed = FALSE
		ORDER BY id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox events: %w", err)
	}
	return events, nil
}

func (j *PostgresJournal) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE outbox_events SET processed = TRUE WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}
