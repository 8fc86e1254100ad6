package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/fd1az/chain-oracles/business/blockchain"
	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	chainDomain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/protocol"
	"github.com/fd1az/chain-oracles/business/protocol/app"
	protocolDI "github.com/fd1az/chain-oracles/business/protocol/di"
	"github.com/fd1az/chain-oracles/business/protocol/domain"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/logger"
)

// signerKeyEnv holds the hex private key used by place-order.
const signerKeyEnv = "ORC_SIGNER_KEY"

// orderSession is an order API client with the token registry of its network.
type orderSession struct {
	api      app.OrderAPI
	chainID  uint64
	registry *asset.Registry
	log      *logger.Logger
	close    func()
}

func addOrderAPIFlags(cmd *cobra.Command) {
	cmd.Flags().String("network", "", "network name or chain ID, skips the node")
	cmd.Flags().String("order-api", "", "order API base URL, overrides the network default")
	cmd.Flags().String("signing-scheme", "", "ethsign or eip712")
}

// openOrderAPI builds the client for --network without a node, or for the
// network of the configured node.
func openOrderAPI(cmd *cobra.Command) (*orderSession, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg, nil)

	if name, _ := cmd.Flags().GetString("network"); name != "" {
		network, err := chainDomain.ParseNetwork(name)
		if err != nil {
			return nil, err
		}
		client, err := protocol.NewOrderAPI(network, cfg, log)
		if err != nil {
			return nil, err
		}
		return &orderSession{
			api:      client,
			chainID:  network.ChainID(),
			registry: asset.DefaultRegistry(),
			log:      log,
			close:    func() { _ = log.Sync() },
		}, nil
	}

	mono, closeFn, err := startModules(ctx, cfg, log, &blockchain.Module{}, &protocol.Module{})
	if err != nil {
		return nil, err
	}
	return &orderSession{
		api:      protocolDI.GetOrderAPI(mono.Services()),
		chainID:  blockchainDI.GetChainReader(mono.Services()).Network().ChainID(),
		registry: mono.AssetRegistry(),
		log:      log,
		close: func() {
			closeFn()
			_ = log.Sync()
		},
	}, nil
}

func (s *orderSession) token(arg string) (token, error) {
	return resolveToken(s.registry, s.chainID, arg)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders OWNER",
		Short: "List the orders placed by OWNER",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid owner address %q", args[0])
			}
			s, err := openOrderAPI(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.api.GetOrders(cmd.Context(), common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			if res.IsError() {
				return fmt.Errorf("order API: %s", res.Failure.String())
			}
			return printJSON(cmd.OutOrStdout(), res.Value)
		},
	}
	addOrderAPIFlags(cmd)
	return cmd
}

func addAmountFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", string(domain.KindSell), "order kind: sell (AMOUNT is sold) or buy (AMOUNT is bought)")
	cmd.Flags().Bool("raw", false, "amounts are in base units")
}

// amountArgs resolves SELL BUY AMOUNT. AMOUNT is in sell token units for sell
// orders and buy token units for buy orders.
func amountArgs(cmd *cobra.Command, s *orderSession, args []string) (sell, buy token, kind domain.OrderKind, amount *big.Int, err error) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	raw, _ := cmd.Flags().GetBool("raw")

	if kind, err = domain.ParseOrderKind(kindFlag); err != nil {
		return
	}
	if sell, err = s.token(args[0]); err != nil {
		return
	}
	if buy, err = s.token(args[1]); err != nil {
		return
	}
	fixed := sell
	if kind == domain.KindBuy {
		fixed = buy
	}
	amount, err = parseAmount(fixed, args[2], raw)
	return
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate SELL BUY AMOUNT",
		Short: "Quote the counter amount of an order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openOrderAPI(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			sell, buy, kind, amount, err := amountArgs(cmd, s, args)
			if err != nil {
				return err
			}

			res, err := s.api.GetEstimatedAmount(cmd.Context(), sell.Address(), buy.Address(), kind, amount)
			if err != nil {
				return err
			}
			if res.IsError() {
				return fmt.Errorf("order API: %s", res.Failure.String())
			}

			counter := buy
			if kind == domain.KindBuy {
				counter = sell
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatAmount(counter, res.Value.Amount.Big()))
			return nil
		},
	}
	addOrderAPIFlags(cmd)
	addAmountFlags(cmd)
	return cmd
}

func newFeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee SELL BUY AMOUNT",
		Short: "Fee of an order, in sell token units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openOrderAPI(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			sell, buy, kind, amount, err := amountArgs(cmd, s, args)
			if err != nil {
				return err
			}

			order := domain.Order{SellToken: sell.Address(), BuyToken: buy.Address(), Kind: kind}
			if kind == domain.KindSell {
				order.SellAmount = amount
			} else {
				order.BuyAmount = amount
			}
			fee, err := s.api.GetFee(cmd.Context(), order)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatAmount(sell, fee))
			return nil
		},
	}
	addOrderAPIFlags(cmd)
	addAmountFlags(cmd)
	return cmd
}

func newTradesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List settled trades of an order or an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uidFlag, _ := cmd.Flags().GetString("order-uid")
			ownerFlag, _ := cmd.Flags().GetString("owner")

			var q domain.TradesQuery
			if uidFlag != "" {
				uid, err := domain.ParseOrderUID(uidFlag)
				if err != nil {
					return err
				}
				q.OrderUID = &uid
			}
			if ownerFlag != "" {
				if !common.IsHexAddress(ownerFlag) {
					return fmt.Errorf("invalid owner address %q", ownerFlag)
				}
				owner := common.HexToAddress(ownerFlag)
				q.Owner = &owner
			}
			if err := q.Validate(); err != nil {
				return err
			}

			s, err := openOrderAPI(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.api.GetTrades(cmd.Context(), q)
			if err != nil {
				return err
			}
			if res.IsError() {
				return fmt.Errorf("order API: %s", res.Failure.String())
			}
			return printJSON(cmd.OutOrStdout(), res.Value)
		},
	}
	addOrderAPIFlags(cmd)
	cmd.Flags().String("order-uid", "", "order UID (0x + 112 hex chars)")
	cmd.Flags().String("owner", "", "owner address")
	return cmd
}

func newPlaceOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place-order SELL BUY SELL_AMOUNT BUY_AMOUNT",
		Short: "Sign and submit an order with the key in " + signerKeyEnv,
		Long: `Sign and submit an order. The hex private key is read from ` + signerKeyEnv + `.
A zero fee is replaced with the fee quoted by the order API.`,
		Args: cobra.ExactArgs(4),
		RunE: runPlaceOrder,
	}
	addOrderAPIFlags(cmd)
	cmd.Flags().String("kind", string(domain.KindSell), "order kind: sell or buy")
	cmd.Flags().Bool("raw", false, "amounts are in base units")
	cmd.Flags().Duration("valid-for", 30*time.Minute, "order lifetime")
	cmd.Flags().String("receiver", "", "receiver of the bought tokens, defaults to the owner")
	cmd.Flags().String("fee", "", "fee in sell token units, quoted when empty")
	cmd.Flags().String("app-data", "", "32-byte app data hash")
	cmd.Flags().Bool("partially-fillable", false, "allow partial fills")
	return cmd
}

func runPlaceOrder(cmd *cobra.Command, args []string) error {
	key, err := signerKey()
	if err != nil {
		return err
	}

	s, err := openOrderAPI(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	order, err := orderFromFlags(cmd, s, args)
	if err != nil {
		return err
	}

	res, err := s.api.PlaceOrder(cmd.Context(), &order, key)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("order rejected: %s", res.Failure.String())
	}

	sell, _ := s.token(args[0])
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "uid:      %s\n", res.Value)
	fmt.Fprintf(out, "owner:    %s\n", res.Value.Owner().Hex())
	fmt.Fprintf(out, "valid to: %s\n", time.Unix(int64(order.ValidTo), 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "fee:      %s\n", formatAmount(sell, order.FeeAmount))
	return nil
}

func signerKey() (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(os.Getenv(signerKeyEnv)), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("%s is not set", signerKeyEnv)
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", signerKeyEnv, err)
	}
	return key, nil
}

func orderFromFlags(cmd *cobra.Command, s *orderSession, args []string) (domain.Order, error) {
	f := cmd.Flags()
	kindFlag, _ := f.GetString("kind")
	raw, _ := f.GetBool("raw")
	validFor, _ := f.GetDuration("valid-for")
	receiver, _ := f.GetString("receiver")
	fee, _ := f.GetString("fee")
	appData, _ := f.GetString("app-data")
	partial, _ := f.GetBool("partially-fillable")

	kind, err := domain.ParseOrderKind(kindFlag)
	if err != nil {
		return domain.Order{}, err
	}
	sell, err := s.token(args[0])
	if err != nil {
		return domain.Order{}, err
	}
	buy, err := s.token(args[1])
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		SellToken:         sell.Address(),
		BuyToken:          buy.Address(),
		ValidTo:           uint32(time.Now().Add(validFor).Unix()),
		Kind:              kind,
		PartiallyFillable: partial,
	}
	if order.SellAmount, err = parseAmount(sell, args[2], raw); err != nil {
		return domain.Order{}, err
	}
	if order.BuyAmount, err = parseAmount(buy, args[3], raw); err != nil {
		return domain.Order{}, err
	}
	if fee != "" {
		if order.FeeAmount, err = parseAmount(sell, fee, raw); err != nil {
			return domain.Order{}, err
		}
	}
	if receiver != "" {
		if !common.IsHexAddress(receiver) {
			return domain.Order{}, fmt.Errorf("invalid receiver %q", receiver)
		}
		order.Receiver = common.HexToAddress(receiver)
	}
	if appData != "" {
		order.AppData = common.HexToHash(appData)
	}
	return order, nil
}
