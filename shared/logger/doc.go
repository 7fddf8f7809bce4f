// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for Swarms Platform
services.

Each log entry is a single JSON line on stdout carrying the timestamp,
level, component name, instance/container identifiers, the user and
request the entry relates to, and optional custom fields. Log
aggregation (CloudWatch, ELK, Loki) consumes the stream as-is.

Create a logger per component:

	log := logger.New("gateway")

Log with user and request context:

	log.Info(userID, requestID, "credit deducted", map[string]interface{}{
	    "cost_usd": 0.42,
	})

Logger instances are safe for concurrent use.
*/
package logger
