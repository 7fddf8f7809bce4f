// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"swarms/platform/shared/logger"
)

// DailyLimiter enforces the per-day publishing quotas for marketplace
// prompts and agents. Counting errors fail open: availability is
// preferred over strict enforcement, and every fail-open is logged.
type DailyLimiter struct {
	counter ContentCounter
	vip     map[string]bool
	limits  DailyLimitConfig
	vipLim  DailyLimitConfig
	log     *logger.Logger

	nowFn func() time.Time
}

// NewDailyLimiter creates a daily limiter with the default quotas.
// vipUsers get the raised VIP quotas.
func NewDailyLimiter(counter ContentCounter, vipUsers []string) *DailyLimiter {
	vip := make(map[string]bool, len(vipUsers))
	for _, u := range vipUsers {
		vip[u] = true
	}
	return &DailyLimiter{
		counter: counter,
		vip:     vip,
		limits:  DefaultDailyLimits,
		vipLim:  VIPDailyLimits,
		log:     logger.New("dailylimit"),
		nowFn:   time.Now,
	}
}

// SetLimits overrides the default quotas (e.g. from a config file)
func (d *DailyLimiter) SetLimits(defaults, vip DailyLimitConfig) {
	d.limits = defaults
	d.vipLim = vip
}

func (d *DailyLimiter) limitsFor(userID string) DailyLimitConfig {
	if d.vip[userID] {
		return d.vipLim
	}
	return d.limits
}

// Check decides whether the user may create one more item of the given
// type today. "Today" is the server-local calendar day.
func (d *DailyLimiter) Check(ctx context.Context, userID string, contentType ContentType, isPaid bool) *DailyDecision {
	now := d.nowFn()
	limits := d.limitsFor(userID)

	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24*time.Hour - time.Nanosecond)
	resetTime := startOfDay.Add(24 * time.Hour)
	today := now.Format("2006-01-02")

	usage, err := d.collectUsage(ctx, userID, startOfDay, endOfDay)
	if err != nil {
		// Fail open - allow the request if we can't check limits
		d.log.Warn(userID, "", "daily limit check failed, failing open", map[string]interface{}{
			"error": err.Error(),
		})
		return &DailyDecision{
			Allowed:      true,
			CurrentUsage: DailyUsage{Date: today},
			Limits:       limits,
			ResetTime:    resetTime,
		}
	}
	usage.Date = today

	var reason string
	if isPaid {
		switch {
		case contentType == ContentPrompt && usage.PaidPrompts >= limits.PaidPrompts:
			reason = fmt.Sprintf("Daily limit reached: %d paid prompts per day. Resets at midnight.", limits.PaidPrompts)
		case contentType == ContentAgent && usage.PaidAgents >= limits.PaidAgents:
			reason = fmt.Sprintf("Daily limit reached: %d paid agents per day. Resets at midnight.", limits.PaidAgents)
		}
	} else if usage.FreeContent >= limits.FreeContent {
		reason = fmt.Sprintf("Daily limit reached: %d free items per day. Resets at midnight.", limits.FreeContent)
	}

	return &DailyDecision{
		Allowed:      reason == "",
		Reason:       reason,
		CurrentUsage: *usage,
		Limits:       limits,
		ResetTime:    resetTime,
	}
}

func (d *DailyLimiter) collectUsage(ctx context.Context, userID string, start, end time.Time) (*DailyUsage, error) {
	paidPrompts, err := d.counter.CountPrompts(ctx, userID, false, start, end)
	if err != nil {
		return nil, err
	}
	paidAgents, err := d.counter.CountAgents(ctx, userID, false, start, end)
	if err != nil {
		return nil, err
	}
	freePrompts, err := d.counter.CountPrompts(ctx, userID, true, start, end)
	if err != nil {
		return nil, err
	}
	freeAgents, err := d.counter.CountAgents(ctx, userID, true, start, end)
	if err != nil {
		return nil, err
	}

	return &DailyUsage{
		PaidPrompts: paidPrompts,
		PaidAgents:  paidAgents,
		FreeContent: freePrompts + freeAgents,
	}, nil
}
