package domain

import (
	"fmt"
	"time"
)

// ─── Package Tiers ──────────────────────────────────────────────────────────

// Package is one fixed price tier of the compensation plan.
type Package struct {
	Tier  int    `json:"tier"`
	Name  string `json:"name"`
	Price Amount `json:"price"`
}

// ─── Compensation Plan ──────────────────────────────────────────────────────

// Plan is the immutable compensation plan: package tiers, bonus rates and
// pool allocations. Loaded once at engine init and never mutated.
//
// All rates are basis points of the distributable amount (the deposit after
// the platform fee). Direct + levels + upline + pools must sum to exactly
// 10000 so every deposited unit is accounted for.
type Plan struct {
	Packages []Package

	// AdminFeeBps is taken off the top of every deposit.
	AdminFeeBps int64

	// DirectBonusBps goes to the immediate sponsor.
	DirectBonusBps int64

	// LevelBonusBps[i] goes to the ancestor at depth i+1. The walk is bounded
	// by len(LevelBonusBps); deeper ancestors receive nothing.
	LevelBonusBps []int64

	// UplineBonusBps is split equally among up to UplineSlots ancestors.
	UplineBonusBps int64
	UplineSlots    int

	// Shared pool allocations.
	LeaderPoolBps int64
	ClubPoolBps   int64
	HelpPoolBps   int64

	// EarningsCapMultiple bounds lifetime earnings to a multiple of invested.
	EarningsCapMultiple int64

	// Leader rank qualification thresholds.
	ShiningStarTeam    int
	ShiningStarDirects int
	SilverStarTeam     int

	// Withdrawal policy.
	MinWithdrawal      Amount
	WithdrawalFeeBps   int64             // treasury fee on the withdrawn portion only
	WithdrawalSplits   []WithdrawalSplit
	WithdrawalInterval time.Duration
	ClubTierMin        int               // minimum package tier for club pool eligibility
}

// WithdrawalSplit maps a direct-referral threshold to a withdraw/reinvest
// ratio in basis points. Entries are ordered by ascending MinDirects; the
// last entry whose threshold the user meets applies.
type WithdrawalSplit struct {
	MinDirects  int
	WithdrawBps int64
	ReinvestBps int64
}

// DefaultPlan returns the production compensation plan: $30/$50/$100/$200
// packages, 5% platform fee, 40% direct, 10% over ten levels, 10% across
// thirty uplines, 10%/5%/25% to the leader/club/help pools, 4x earnings cap
// and introduction-based withdrawal splits (70/30, 75/25, 80/20).
func DefaultPlan() *Plan {
	return &Plan{
		Packages: []Package{
			{Tier: 1, Name: "Entry", Price: USDT(30)},
			{Tier: 2, Name: "Standard", Price: USDT(50)},
			{Tier: 3, Name: "Advanced", Price: USDT(100)},
			{Tier: 4, Name: "Premium", Price: USDT(200)},
		},
		AdminFeeBps:    500,
		DirectBonusBps: 4000,
		LevelBonusBps:  []int64{300, 100, 100, 100, 100, 100, 50, 50, 50, 50},
		UplineBonusBps: 1000,
		UplineSlots:    30,
		LeaderPoolBps:  1000,
		ClubPoolBps:    500,
		HelpPoolBps:    2500,

		EarningsCapMultiple: 4,

		ShiningStarTeam:    250,
		ShiningStarDirects: 10,
		SilverStarTeam:     500,

		MinWithdrawal:    USDT(10),
		WithdrawalFeeBps: 500,
		WithdrawalSplits: []WithdrawalSplit{
			{MinDirects: 0, WithdrawBps: 7000, ReinvestBps: 3000},
			{MinDirects: 5, WithdrawBps: 7500, ReinvestBps: 2500},
			{MinDirects: 20, WithdrawBps: 8000, ReinvestBps: 2000},
		},
		WithdrawalInterval: 24 * time.Hour,
		ClubTierMin:        3,
	}
}

// Validate checks the plan's internal consistency. Called once at startup;
// a plan that fails validation must never reach the engine.
func (p *Plan) Validate() error {
	if len(p.Packages) == 0 {
		return fmt.Errorf("plan: no packages defined")
	}
	var prev Amount
	for i, pkg := range p.Packages {
		if pkg.Tier != i+1 {
			return fmt.Errorf("plan: package %d has tier %d, want %d", i, pkg.Tier, i+1)
		}
		if pkg.Price <= prev {
			return fmt.Errorf("plan: package prices must be strictly increasing")
		}
		prev = pkg.Price
	}

	var levelSum int64
	for _, bps := range p.LevelBonusBps {
		if bps < 0 {
			return fmt.Errorf("plan: negative level bonus")
		}
		levelSum += bps
	}
	total := p.DirectBonusBps + levelSum + p.UplineBonusBps +
		p.LeaderPoolBps + p.ClubPoolBps + p.HelpPoolBps
	if total != BpsDenominator {
		return fmt.Errorf("plan: allocations sum to %d bps, want %d", total, BpsDenominator)
	}

	if p.AdminFeeBps < 0 || p.AdminFeeBps >= BpsDenominator {
		return fmt.Errorf("plan: admin fee %d bps out of range", p.AdminFeeBps)
	}
	if p.UplineSlots <= 0 {
		return fmt.Errorf("plan: upline slots must be positive")
	}
	if p.EarningsCapMultiple <= 0 {
		return fmt.Errorf("plan: earnings cap multiple must be positive")
	}

	if len(p.WithdrawalSplits) == 0 {
		return fmt.Errorf("plan: no withdrawal splits defined")
	}
	lastMin := -1
	for _, s := range p.WithdrawalSplits {
		if s.MinDirects <= lastMin {
			return fmt.Errorf("plan: withdrawal splits must be ordered by ascending min directs")
		}
		if s.WithdrawBps+s.ReinvestBps != BpsDenominator {
			return fmt.Errorf("plan: withdrawal split for %d directs does not sum to 10000 bps", s.MinDirects)
		}
		lastMin = s.MinDirects
	}
	return nil
}

// PackageByTier returns the package for a tier, or an error for unknown tiers.
func (p *Plan) PackageByTier(tier int) (Package, error) {
	if tier < 1 || tier > len(p.Packages) {
		return Package{}, ErrInvalidPackage
	}
	return p.Packages[tier-1], nil
}

// EarningsCap returns the lifetime earnings cap for an invested total.
func (p *Plan) EarningsCap(invested Amount) Amount {
	return invested * p.EarningsCapMultiple
}

// SplitFor returns the withdraw/reinvest split for a direct-referral count.
func (p *Plan) SplitFor(directs int) WithdrawalSplit {
	split := p.WithdrawalSplits[0]
	for _, s := range p.WithdrawalSplits {
		if directs >= s.MinDirects {
			split = s
		}
	}
	return split
}

// RankFor returns the leader rank earned by the given team metrics.
func (p *Plan) RankFor(teamSize, directs int) LeaderRank {
	switch {
	case teamSize >= p.SilverStarTeam:
		return RankSilverStar
	case teamSize >= p.ShiningStarTeam && directs >= p.ShiningStarDirects:
		return RankShiningStar
	default:
		return RankNone
	}
}
