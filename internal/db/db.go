package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres using environment variables and ensures the schema.
func Init() {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	if err := Connect(dsn); err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	if err := EnsureSchema(); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}
}

// Connect opens the shared pool. Split from Init so tests can point the pool
// at a throwaway database.
func Connect(dsn string) error {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		return err
	}
	return Conn.Ping(context.Background())
}

// EnsureSchema creates every table the engine owns. Statements are idempotent
// so repeated startups are safe.
func EnsureSchema() error {
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone TEXT,
			role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer', 'employee', 'manager')),
			emp_type TEXT NULL CHECK (emp_type IN ('chef', 'delivery')),
			status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'DEREGISTERED', 'TERMINATED')),
			warnings INTEGER NOT NULL DEFAULT 0,
			is_vip BOOLEAN NOT NULL DEFAULT FALSE,
			orders_count INTEGER NOT NULL DEFAULT 0,
			spent BIGINT NOT NULL DEFAULT 0,
			salary BIGINT NOT NULL DEFAULT 0,
			demotions INTEGER NOT NULL DEFAULT 0,
			deregistered_at TIMESTAMPTZ NULL,
			deregistered_by UUID NULL,
			deregistration_reason TEXT NULL,
			terminated_at TIMESTAMPTZ NULL,
			termination_reason TEXT NULL,
			last_login TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			phone TEXT,
			role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer', 'employee')),
			emp_type TEXT NULL CHECK (emp_type IN ('chef', 'delivery')),
			salary BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			approved_by UUID NULL REFERENCES users(id),
			approved_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			reason TEXT NOT NULL,
			banned_by UUID NULL,
			banned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL UNIQUE REFERENCES users(id),
			balance BIGINT NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			wallet_id UUID NOT NULL REFERENCES wallets(id),
			type TEXT NOT NULL CHECK (type IN ('DEPOSIT', 'ORDER', 'REFUND', 'WITHDRAWAL')),
			amount BIGINT NOT NULL,
			description TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			balance_after BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_ts ON transactions(wallet_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS dishes (
			id UUID PRIMARY KEY,
			chef_id UUID NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			description TEXT,
			price BIGINT NOT NULL,
			image_url TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (chef_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'ASSIGNED', 'COMPLETED', 'REFUNDED')),
			subtotal BIGINT NOT NULL,
			discount BIGINT NOT NULL DEFAULT 0,
			total BIGINT NOT NULL,
			delivery_address TEXT NOT NULL,
			free_delivery BOOLEAN NOT NULL DEFAULT FALSE,
			delivery_id UUID NULL,
			refund_reason TEXT NULL,
			refunded_at TIMESTAMPTZ NULL,
			order_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, status)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			dish_id UUID NOT NULL REFERENCES dishes(id),
			chef_id UUID NOT NULL REFERENCES users(id),
			quantity INTEGER NOT NULL,
			price BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE TABLE IF NOT EXISTS delivery_bids (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			agent_id UUID NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED')),
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NULL,
			UNIQUE (order_id, agent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL UNIQUE REFERENCES orders(id),
			agent_id UUID NOT NULL REFERENCES users(id),
			bid_amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ASSIGNED' CHECK (status IN ('ASSIGNED', 'ON_ROUTE', 'DELIVERED', 'UNASSIGNED')),
			assigned_by UUID NOT NULL REFERENCES users(id),
			manager_memo TEXT,
			assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			picked_up_at TIMESTAMPTZ NULL,
			delivered_at TIMESTAMPTZ NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id UUID PRIMARY KEY,
			from_user_id UUID NOT NULL REFERENCES users(id),
			to_user_id UUID NOT NULL REFERENCES users(id),
			category TEXT NOT NULL CHECK (category IN ('CHEF', 'DELIVERY', 'CUSTOMER')),
			description TEXT NOT NULL,
			order_id UUID NULL REFERENCES orders(id),
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'UPHOLD', 'DISMISS', 'CANCELLED')),
			weight INTEGER NOT NULL DEFAULT 1,
			manager_id UUID NULL REFERENCES users(id),
			manager_note TEXT NULL,
			resolved_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_to_user ON complaints(to_user_id, status)`,
		`CREATE TABLE IF NOT EXISTS compliments (
			id UUID PRIMARY KEY,
			from_user_id UUID NOT NULL REFERENCES users(id),
			to_user_id UUID NOT NULL REFERENCES users(id),
			category TEXT NOT NULL CHECK (category IN ('CHEF', 'DELIVERY', 'CUSTOMER')),
			description TEXT,
			weight INTEGER NOT NULL DEFAULT 1,
			cancelled_complaint_id UUID NULL REFERENCES complaints(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS hr_actions (
			id UUID PRIMARY KEY,
			employee_id UUID NOT NULL REFERENCES users(id),
			action_type TEXT NOT NULL CHECK (action_type IN ('PROMOTION', 'DEMOTION', 'TERMINATION')),
			reason TEXT NOT NULL,
			salary_change BIGINT NULL,
			bonus BIGINT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT,
			reference UUID NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at TIMESTAMPTZ NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := Conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
