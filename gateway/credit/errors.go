// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import "errors"

var (
	// ErrInvalidUserID is returned when no user can be resolved for an operation
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidAmount is returned for zero or negative credit grants
	ErrInvalidAmount = errors.New("amount must be greater than 0")

	// ErrInvalidPlan is returned for an unknown credit plan
	ErrInvalidPlan = errors.New("invalid credit plan")

	// ErrOrganizationNotFound is returned when an organization public ID resolves to nothing
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrOrganizationOwnerNotFound is returned when an organization has no owner member
	ErrOrganizationOwnerNotFound = errors.New("organization owner not found")

	// ErrInsufficientCredits is returned when a pay-as-you-go account has no balance left
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrDatabaseError is returned for database errors
	ErrDatabaseError = errors.New("database error")
)
