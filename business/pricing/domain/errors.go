package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

// NewCannotGetPrice reports that no direct or two-hop pool connects base and quote.
func NewCannotGetPrice(source string, base, quote common.Address, noLiquidity bool) error {
	reason := "does not exist"
	if noLiquidity {
		reason = "does not have liquidity"
	}
	return apperror.New(apperror.CodeCannotGetPriceFromOracle,
		apperror.WithMessage(fmt.Sprintf("%s pool %s for %s and %s", source, reason, base.Hex(), quote.Hex())),
		apperror.WithContext(base.Hex()+"/"+quote.Hex()),
	)
}

// NewRouterMissing reports that the source's router has no bytecode on network.
func NewRouterMissing(source string, router common.Address, network string) error {
	return apperror.New(apperror.CodeConfigurationError,
		apperror.WithMessage(fmt.Sprintf("%s Router Contract %s does not exist", source, router.Hex())),
		apperror.WithContext(network),
	)
}

// NewNotConfigured reports that the source has no deployment on network.
func NewNotConfigured(source, network string) error {
	return apperror.New(apperror.CodeConfigurationError,
		apperror.WithMessage(fmt.Sprintf("%s is not configured for network %s", source, network)),
		apperror.WithContext(network),
	)
}

// NewInconsistentPrice reports a price whose inverse does not round-trip within tolerance.
func NewInconsistentPrice(source string, q PriceQuery, c Consistency, tolerance float64) error {
	return apperror.New(apperror.CodeInconsistentPrice,
		apperror.WithMessage(fmt.Sprintf("%s price for %s deviates %s from its inverse (tolerance %g)",
			source, q, c.Deviation.StringFixed(6), tolerance)),
		apperror.WithContext(q.String()),
	)
}

// IsCannotGetPrice reports whether err means no pool could price the pair.
func IsCannotGetPrice(err error) bool {
	return apperror.HasCode(err, apperror.CodeCannotGetPriceFromOracle)
}

// IsConfigurationError reports whether err means the oracle cannot run on its network.
func IsConfigurationError(err error) bool {
	return apperror.HasCode(err, apperror.CodeConfigurationError)
}
