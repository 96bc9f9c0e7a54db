package config

import "time"

const (
	DefaultQueryTimeout = 10 * time.Second
	BatchQueryTimeout   = 30 * time.Second

	// DispatchLockDuration bounds how long a dispatch may hold the
	// per-account lock before it is reaped.
	DispatchLockDuration = 30 * time.Second

	// SummonCost is the token price of one gacha summon.
	SummonCost = 100
)
