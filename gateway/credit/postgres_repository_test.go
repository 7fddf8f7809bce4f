// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestPostgresGetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "credit", "free_credit", "credit_plan", "updated_at"}).
		AddRow("user-1", "2.00", "1.50", "default", time.Now())
	mock.ExpectQuery("SELECT user_id, credit, free_credit").
		WithArgs("user-1").
		WillReturnRows(rows)

	balance, err := repo.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Credit.Equal(decimal.NewFromFloat(2.00)) {
		t.Errorf("expected credit 2.00, got %s", balance.Credit)
	}
	if !balance.FreeCredit.Equal(decimal.NewFromFloat(1.50)) {
		t.Errorf("expected free_credit 1.50, got %s", balance.FreeCredit)
	}
	if balance.Plan != PlanDefault {
		t.Errorf("expected default plan, got %s", balance.Plan)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetBalanceMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT user_id, credit, free_credit").
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "credit", "free_credit", "credit_plan", "updated_at"}))

	balance, err := repo.GetBalance(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Credit.IsZero() || !balance.FreeCredit.IsZero() {
		t.Errorf("expected zero balance for missing row, got %+v", balance)
	}
	if balance.Plan != PlanDefault {
		t.Errorf("expected default plan, got %s", balance.Plan)
	}
}

func TestPostgresDeduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "credit", "free_credit", "credit_plan", "updated_at"}).
		AddRow("user-1", "0.50", "0", "default", time.Now())
	mock.ExpectQuery("INSERT INTO swarms_cloud_users_credits").
		WithArgs("user-1", "3").
		WillReturnRows(rows)

	balance, err := repo.Deduct(context.Background(), "user-1", decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Credit.Equal(decimal.NewFromFloat(0.50)) {
		t.Errorf("expected credit 0.50, got %s", balance.Credit)
	}
	if !balance.FreeCredit.IsZero() {
		t.Errorf("expected free_credit 0, got %s", balance.FreeCredit)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetOrganizationOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT owner_user_id").
		WithArgs("org-pub-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow("owner-1"))

	owner, err := repo.GetOrganizationOwner(context.Background(), "org-pub-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "owner-1" {
		t.Errorf("expected owner-1, got %s", owner)
	}
}

func TestPostgresGetOrganizationOwnerNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT owner_user_id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}))

	_, err = repo.GetOrganizationOwner(context.Background(), "nope")
	if err != ErrOrganizationNotFound {
		t.Errorf("expected ErrOrganizationNotFound, got %v", err)
	}
}
