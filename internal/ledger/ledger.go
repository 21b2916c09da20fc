package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrSaleNotFound = errors.New("sale not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		order_id     VARCHAR(64) PRIMARY KEY,
		email        VARCHAR(255) NOT NULL,
		total_amount DOUBLE PRECISION NOT NULL,
		item_count   INTEGER NOT NULL,
		status       VARCHAR(32) NOT NULL,
		placed_at    TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id     VARCHAR(64) NOT NULL,
		consumer     VARCHAR(64) NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (event_id, consumer)
	)`,
}

// Sale is one row of the sales ledger
type Sale struct {
	OrderID     string    `db:"order_id" json:"orderId"`
	Email       string    `db:"email" json:"email"`
	TotalAmount float64   `db:"total_amount" json:"totalAmount"`
	ItemCount   int       `db:"item_count" json:"itemCount"`
	Status      string    `db:"status" json:"status"`
	PlacedAt    time.Time `db:"placed_at" json:"placedAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// StatusTotal aggregates sales sharing one status
type StatusTotal struct {
	Status  string  `db:"status" json:"status"`
	Orders  int64   `db:"orders" json:"orders"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

// Ledger records sales for reporting and remembers which events were applied
type Ledger struct {
	db *sqlx.DB
}

// Open connects with driver "postgres" or "sqlite3" and creates the tables
func Open(driver, dsn string) (*Ledger, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create ledger schema: %w", err)
		}
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Ping checks the connection for readiness probes
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// RecordSale inserts a sale; replaying the same order is a no-op
func (l *Ledger) RecordSale(ctx context.Context, sale Sale) error {
	ctx, span := util.StartSpan(ctx, "Ledger.RecordSale")
	defer span.End()

	query := l.db.Rebind(`
		INSERT INTO sales (order_id, email, total_amount, item_count, status, placed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO NOTHING`)

	_, err := l.db.ExecContext(ctx, query,
		sale.OrderID, sale.Email, sale.TotalAmount, sale.ItemCount, sale.Status, sale.PlacedAt.UTC(), sale.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	return nil
}

// UpdateSaleStatus mirrors an order status change
func (l *Ledger) UpdateSaleStatus(ctx context.Context, orderID, status string, at time.Time) error {
	ctx, span := util.StartSpan(ctx, "Ledger.UpdateSaleStatus")
	defer span.End()

	query := l.db.Rebind(`UPDATE sales SET status = ?, updated_at = ? WHERE order_id = ?`)
	result, err := l.db.ExecContext(ctx, query, status, at.UTC(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSaleNotFound
	}
	return nil
}

// GetSale returns one sale by order id
func (l *Ledger) GetSale(ctx context.Context, orderID string) (*Sale, error) {
	var sale Sale
	err := l.db.GetContext(ctx, &sale, l.db.Rebind(`SELECT * FROM sales WHERE order_id = ?`), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// SalesSummary groups orders and revenue by status
func (l *Ledger) SalesSummary(ctx context.Context) ([]StatusTotal, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.SalesSummary")
	defer span.End()

	totals := []StatusTotal{}
	err := l.db.SelectContext(ctx, &totals, `
		SELECT status, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS revenue
		FROM sales
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise sales: %w", err)
	}
	return totals, nil
}

// RecentSales returns the newest sales first
func (l *Ledger) RecentSales(ctx context.Context, limit int) ([]Sale, error) {
	if limit <= 0 {
		limit = 20
	}

	sales := []Sale{}
	query := l.db.Rebind(`SELECT * FROM sales ORDER BY placed_at DESC, order_id DESC LIMIT ?`)
	if err := l.db.SelectContext(ctx, &sales, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// IsEventProcessed reports whether consumer already applied the event
func (l *Ledger) IsEventProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	var count int
	query := l.db.Rebind(`SELECT COUNT(*) FROM processed_events WHERE event_id = ? AND consumer = ?`)
	if err := l.db.GetContext(ctx, &count, query, eventID, consumer); err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

// MarkEventProcessed remembers that consumer applied the event
func (l *Ledger) MarkEventProcessed(ctx context.Context, consumer, eventID string) error {
	query := l.db.Rebind(`
		INSERT INTO processed_events (event_id, consumer, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (event_id, consumer) DO NOTHING`)
	if _, err := l.db.ExecContext(ctx, query, eventID, consumer, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
