package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/fd1az/chain-oracles/business/blockchain"
	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	"github.com/fd1az/chain-oracles/business/pricing"
	pricingDI "github.com/fd1az/chain-oracles/business/pricing/di"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/config"
)

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price BASE [QUOTE]",
		Short: "Price BASE in QUOTE (default: the wrapped native token)",
		Long: `Price BASE in QUOTE using the configured sources in order.
Tokens are symbols of well-known tokens or addresses.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runPrice,
	}
	cmd.Flags().String("source", "", "use only this source (uniswap_v3, uniswap_v2, sushiswap)")
	cmd.Flags().StringSlice("sources", nil, "source order, overrides pricing.sources")
	cmd.Flags().Bool("check", false, "also price the inverse and check consistency")
	return cmd
}

func runPrice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, nil)
	defer log.Sync()

	source, _ := cmd.Flags().GetString("source")
	check, _ := cmd.Flags().GetBool("check")
	if source != "" {
		cfg.Pricing.Sources = []string{source}
	}

	mono, closeFn, err := startModules(ctx, cfg, log, &blockchain.Module{}, &pricing.Module{})
	if err != nil {
		return err
	}
	defer closeFn()

	svc := pricingDI.GetPricingService(mono.Services())
	chainID := blockchainDI.GetChainReader(mono.Services()).Network().ChainID()

	base, err := resolveToken(mono.AssetRegistry(), chainID, args[0])
	if err != nil {
		return err
	}
	var quote []common.Address
	if len(args) == 2 {
		q, err := resolveToken(mono.AssetRegistry(), chainID, args[1])
		if err != nil {
			return err
		}
		quote = append(quote, q.Address())
	}

	label := func(addr common.Address) string { return labelOf(mono.AssetRegistry(), chainID, addr) }
	return writePrice(ctx, cmd.OutOrStdout(), svc, label, base.Address(), quote, check)
}

// pricer is the part of the pricing service the price command needs.
type pricer interface {
	ReferenceToken() (common.Address, error)
	GetPrice(ctx context.Context, base common.Address, quote ...common.Address) (domain.Quote, error)
	CheckedPrice(ctx context.Context, base, quote common.Address) (domain.Quote, domain.Consistency, error)
}

// writePrice prices base and prints it. A check without an explicit quote
// runs against the reference token.
func writePrice(ctx context.Context, out io.Writer, svc pricer, label func(common.Address) string, base common.Address, quote []common.Address, check bool) error {
	if !check {
		q, err := svc.GetPrice(ctx, base, quote...)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "1 %s = %v %s (%s)\n", label(base), q.Price, label(q.Query.Quote), q.Source)
		return nil
	}

	if len(quote) == 0 {
		ref, err := svc.ReferenceToken()
		if err != nil {
			return err
		}
		quote = []common.Address{ref}
	}
	q, c, err := svc.CheckedPrice(ctx, base, quote[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "1 %s = %v %s (%s)\n", label(base), q.Price, label(q.Query.Quote), q.Source)
	fmt.Fprintf(out, "inverse %s, deviation %s\n", c.Inverse.String(), c.Deviation.StringFixed(6))
	return nil
}

func newAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "Report which price sources are deployed on the node's network",
		Args:  cobra.NoArgs,
		RunE:  runAvailable,
	}
}

func runAvailable(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, nil)
	defer log.Sync()

	mono, closeFn, err := startModules(ctx, cfg, log, &blockchain.Module{})
	if err != nil {
		return err
	}
	defer closeFn()

	reader := blockchainDI.GetChainReader(mono.Services())

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "network: %s (chain %d)\n\n", reader.Network(), reader.Network().ChainID())
	fmt.Fprintln(tw, "SOURCE\tAVAILABLE")
	for _, source := range []string{config.SourceUniswapV3, config.SourceUniswapV2, config.SourceSushiswap} {
		ok, err := pricing.IsAvailable(ctx, source, reader)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%t\n", source, ok)
	}
	return tw.Flush()
}

func labelOf(registry *asset.Registry, chainID uint64, addr common.Address) string {
	if a, ok := registry.GetToken(chainID, addr); ok {
		return a.Symbol()
	}
	return addr.Hex()
}
