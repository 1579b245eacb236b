package solana

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// USDC constants for the devnet marketplace.
const (
	USDCMintDevnet  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	USDCMintMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCDecimals    = 6
)

// ToBaseUnits converts a decimal token amount to integer base units
// (amount × 10^decimals), truncating toward zero. Exact for amounts with
// at most `decimals` fractional digits.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	units := amount.Shift(decimals).Truncate(0)
	bi := units.BigInt()
	if bi.Sign() <= 0 {
		return 0, fmt.Errorf("payment amount %s is below the smallest token unit", amount)
	}
	if !bi.IsUint64() {
		return 0, fmt.Errorf("payment amount %s overflows base units", amount)
	}

	return bi.Uint64(), nil
}
