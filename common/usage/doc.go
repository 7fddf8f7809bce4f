// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

/*
Package usage provides API usage metering for the Swarms platform.

# Overview

The usage package records API activity to PostgreSQL for billing and
analytics, and prices model token consumption.

# Usage Recording

Create a recorder with a database connection:

	recorder := usage.NewRecorder(db)

Record API activity:

	err := recorder.RecordActivity(usage.ActivityEvent{
	    UserID:       "user-123",
	    Model:        "gpt-4o",
	    InputTokens:  150,
	    OutputTokens: 200,
	})

Costs are filled in automatically from the pricing table when the event
carries none.

# Cost Calculation

Token costs are calculated from the pricing module:

	costCents := usage.CalculateCost("gpt-4o", inputTokens, outputTokens)

Prices are stored in cents per 1K tokens to avoid floating point
issues. Deployments can override the built-in table with a YAML file
loaded at startup via LoadPricingFile.

# Best Practices

Record usage asynchronously to avoid blocking request processing:

	go func() {
	    if err := recorder.RecordActivity(event); err != nil {
	        log.Printf("Failed to record usage: %v", err)
	    }
	}()
*/
package usage
