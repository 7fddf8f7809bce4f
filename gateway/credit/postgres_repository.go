// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBalance returns the balance row for a user
func (r *PostgresRepository) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	query := `
		SELECT user_id, credit, free_credit, credit_plan, updated_at
		FROM swarms_cloud_users_credits
		WHERE user_id = $1
	`

	var balance Balance
	var creditStr, freeStr string
	var plan sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&balance.UserID, &creditStr, &freeStr, &plan, &balance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Row is created lazily on first grant or deduction
		return NewBalance(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	if balance.Credit, err = decimal.NewFromString(creditStr); err != nil {
		return nil, fmt.Errorf("failed to parse credit: %w", err)
	}
	if balance.FreeCredit, err = decimal.NewFromString(freeStr); err != nil {
		return nil, fmt.Errorf("failed to parse free credit: %w", err)
	}

	balance.Plan = Plan(plan.String)
	if balance.Plan == "" {
		balance.Plan = PlanDefault
	}

	return &balance, nil
}

// Deduct atomically applies a usage cost to the balance row.
// Both SET expressions read the pre-update free_credit, so the split
// between free and paid credit happens in one statement with no
// read-modify-write window.
func (r *PostgresRepository) Deduct(ctx context.Context, userID string, cost decimal.Decimal) (*Balance, error) {
	query := `
		INSERT INTO swarms_cloud_users_credits (user_id, credit, free_credit, credit_plan, updated_at)
		VALUES ($1, -$2::numeric, 0, 'default', NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			free_credit = GREATEST(0, swarms_cloud_users_credits.free_credit - $2::numeric),
			credit = swarms_cloud_users_credits.credit
				- GREATEST(0, $2::numeric - swarms_cloud_users_credits.free_credit),
			updated_at = NOW()
		RETURNING user_id, credit, free_credit, credit_plan, updated_at
	`

	return r.scanBalanceRow(r.db.QueryRowContext(ctx, query, userID, cost.String()))
}

// AddCredit atomically increases the paid balance
func (r *PostgresRepository) AddCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error) {
	query := `
		INSERT INTO swarms_cloud_users_credits (user_id, credit, free_credit, credit_plan, updated_at)
		VALUES ($1, $2::numeric, 0, 'default', NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			credit = swarms_cloud_users_credits.credit + $2::numeric,
			updated_at = NOW()
		RETURNING user_id, credit, free_credit, credit_plan, updated_at
	`

	return r.scanBalanceRow(r.db.QueryRowContext(ctx, query, userID, amount.String()))
}

// AddFreeCredit atomically increases the promotional balance
func (r *PostgresRepository) AddFreeCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error) {
	query := `
		INSERT INTO swarms_cloud_users_credits (user_id, credit, free_credit, credit_plan, updated_at)
		VALUES ($1, 0, $2::numeric, 'default', NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			free_credit = swarms_cloud_users_credits.free_credit + $2::numeric,
			updated_at = NOW()
		RETURNING user_id, credit, free_credit, credit_plan, updated_at
	`

	return r.scanBalanceRow(r.db.QueryRowContext(ctx, query, userID, amount.String()))
}

// SetPlan switches the billing plan for an account
func (r *PostgresRepository) SetPlan(ctx context.Context, userID string, plan Plan) error {
	query := `
		INSERT INTO swarms_cloud_users_credits (user_id, credit, free_credit, credit_plan, updated_at)
		VALUES ($1, 0, 0, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			credit_plan = $2,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, userID, plan); err != nil {
		return fmt.Errorf("failed to set credit plan: %w", err)
	}
	return nil
}

// GetOrganizationOwner resolves an organization public ID to its owner's user ID
func (r *PostgresRepository) GetOrganizationOwner(ctx context.Context, publicID string) (string, error) {
	query := `
		SELECT owner_user_id
		FROM swarms_cloud_organizations
		WHERE public_id = $1
	`

	var ownerID sql.NullString
	err := r.db.QueryRowContext(ctx, query, publicID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", ErrOrganizationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get organization owner: %w", err)
	}
	if !ownerID.Valid || ownerID.String == "" {
		return "", ErrOrganizationOwnerNotFound
	}

	return ownerID.String, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) scanBalanceRow(row *sql.Row) (*Balance, error) {
	var balance Balance
	var creditStr, freeStr string
	var plan sql.NullString

	err := row.Scan(&balance.UserID, &creditStr, &freeStr, &plan, &balance.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if balance.Credit, err = decimal.NewFromString(creditStr); err != nil {
		return nil, fmt.Errorf("failed to parse credit: %w", err)
	}
	if balance.FreeCredit, err = decimal.NewFromString(freeStr); err != nil {
		return nil, fmt.Errorf("failed to parse free credit: %w", err)
	}

	balance.Plan = Plan(plan.String)
	if balance.Plan == "" {
		balance.Plan = PlanDefault
	}

	return &balance, nil
}
