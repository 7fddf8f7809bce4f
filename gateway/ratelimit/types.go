// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements per-user request throttling for the
// platform API: a coarse fixed-window limiter backed by Postgres, an
// optional Redis sliding-window limiter, and the daily content
// creation quota for marketplace publishing.
package ratelimit

import (
	"strings"
	"time"
)

// DefaultRequestsPerMinute is the ceiling applied when a caller does not supply one
const DefaultRequestsPerMinute = 100

// ContentType distinguishes the two marketplace content tables
type ContentType string

const (
	ContentPrompt ContentType = "prompt"
	ContentAgent  ContentType = "agent"
)

// Decision is the outcome of a per-minute rate limit check
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	ResetTime time.Time `json:"reset_time"`
}

// DailyLimitConfig holds the per-day publishing quotas
type DailyLimitConfig struct {
	PaidPrompts int `json:"paid_prompts" yaml:"paid_prompts"`
	PaidAgents  int `json:"paid_agents" yaml:"paid_agents"`
	FreeContent int `json:"free_content" yaml:"free_content"`
}

// DailyUsage is today's publishing activity for one user
type DailyUsage struct {
	PaidPrompts int    `json:"paid_prompts"`
	PaidAgents  int    `json:"paid_agents"`
	FreeContent int    `json:"free_content"`
	Date        string `json:"date"`
}

// DailyDecision is the outcome of a daily quota check
type DailyDecision struct {
	Allowed      bool             `json:"allowed"`
	Reason       string           `json:"reason,omitempty"`
	CurrentUsage DailyUsage       `json:"current_usage"`
	Limits       DailyLimitConfig `json:"limits"`
	ResetTime    time.Time        `json:"reset_time"`
}

// DefaultDailyLimits are the quotas for regular users
var DefaultDailyLimits = DailyLimitConfig{
	PaidPrompts: 5,
	PaidAgents:  3,
	FreeContent: 10,
}

// VIPDailyLimits are the raised quotas for users on the VIP list
var VIPDailyLimits = DailyLimitConfig{
	PaidPrompts: 20,
	PaidAgents:  15,
	FreeContent: 50,
}

// ParseVIPList parses the comma-separated VIP_USERS environment value
func ParseVIPList(value string) []string {
	if value == "" {
		return nil
	}
	var users []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			users = append(users, v)
		}
	}
	return users
}
