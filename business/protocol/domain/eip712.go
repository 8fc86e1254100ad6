package domain

import (
	"crypto/ecdsa"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

// Signing domain of the settlement contract.
const (
	DomainName    = "Gnosis Protocol"
	DomainVersion = "v2"
)

// SettlementContract is the GPv2 settlement address, identical on every network.
var SettlementContract = common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")

var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "sellToken", Type: "address"},
		{Name: "buyToken", Type: "address"},
		{Name: "receiver", Type: "address"},
		{Name: "sellAmount", Type: "uint256"},
		{Name: "buyAmount", Type: "uint256"},
		{Name: "validTo", Type: "uint32"},
		{Name: "appData", Type: "bytes32"},
		{Name: "feeAmount", Type: "uint256"},
		{Name: "kind", Type: "string"},
		{Name: "partiallyFillable", Type: "bool"},
		{Name: "sellTokenBalance", Type: "string"},
		{Name: "buyTokenBalance", Type: "string"},
	},
}

// SigningDomain identifies the chain and contract an order is valid for.
type SigningDomain struct {
	ChainID           uint64
	VerifyingContract common.Address
}

// NewSigningDomain returns the settlement domain for chainID.
func NewSigningDomain(chainID uint64) SigningDomain {
	return SigningDomain{ChainID: chainID, VerifyingContract: SettlementContract}
}

func (d SigningDomain) typedData(o Order) apitypes.TypedData {
	o = o.WithDefaults()
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(d.ChainID)),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sellToken":         o.SellToken.Hex(),
			"buyToken":          o.BuyToken.Hex(),
			"receiver":          o.Receiver.Hex(),
			"sellAmount":        decimalString(o.SellAmount),
			"buyAmount":         decimalString(o.BuyAmount),
			"validTo":           strconv.FormatUint(uint64(o.ValidTo), 10),
			"appData":           o.AppData.Hex(),
			"feeAmount":         decimalString(o.FeeAmount),
			"kind":              string(o.Kind),
			"partiallyFillable": o.PartiallyFillable,
			"sellTokenBalance":  string(o.SellTokenBalance),
			"buyTokenBalance":   string(o.BuyTokenBalance),
		},
	}
}

// Digest returns the EIP-712 hash of o under d.
func (d SigningDomain) Digest(o Order) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(d.typedData(o))
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeOrderSigningError,
			apperror.WithCause(err),
			apperror.WithContext("eip712 digest"))
	}
	return common.BytesToHash(hash), nil
}

// Signature is a 65-byte r‖s‖v signature with v in {27, 28}.
type Signature []byte

func (s Signature) String() string {
	return hexutil.Encode(s)
}

// SignedOrder is an order with its signature and UID.
type SignedOrder struct {
	Order     Order
	Owner     common.Address
	Scheme    SigningScheme
	Signature Signature
	UID       OrderUID
}

// Sign computes the digest of o and signs it with key under scheme.
// ethsign signs the personal-message hash of the digest; eip712 signs the digest itself.
func (d SigningDomain) Sign(o Order, key *ecdsa.PrivateKey, scheme SigningScheme) (SignedOrder, error) {
	if key == nil {
		return SignedOrder{}, apperror.New(apperror.CodeInvalidSignerKey)
	}
	o = o.WithDefaults()

	digest, err := d.Digest(o)
	if err != nil {
		return SignedOrder{}, err
	}

	var toSign []byte
	switch scheme {
	case SchemeEthSign:
		toSign = accounts.TextHash(digest.Bytes())
	case SchemeEIP712:
		toSign = digest.Bytes()
	default:
		return SignedOrder{}, apperror.New(apperror.CodeOrderSigningError,
			apperror.WithMessage("unknown signing scheme"),
			apperror.WithContext(string(scheme)))
	}

	sig, err := crypto.Sign(toSign, key)
	if err != nil {
		return SignedOrder{}, apperror.New(apperror.CodeOrderSigningError,
			apperror.WithCause(err),
			apperror.WithContext(string(scheme)))
	}
	sig[crypto.RecoveryIDOffset] += 27

	owner := crypto.PubkeyToAddress(key.PublicKey)
	return SignedOrder{
		Order:     o,
		Owner:     owner,
		Scheme:    scheme,
		Signature: sig,
		UID:       NewOrderUID(digest, owner, o.ValidTo),
	}, nil
}

// RecoverOwner returns the address that produced sig over digest under scheme.
func RecoverOwner(digest common.Hash, sig Signature, scheme SigningScheme) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, apperror.New(apperror.CodeOrderSigningError,
			apperror.WithMessage("signature must be 65 bytes"))
	}
	hash := digest.Bytes()
	if scheme == SchemeEthSign {
		hash = accounts.TextHash(hash)
	}
	raw := make([]byte, len(sig))
	copy(raw, sig)
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeOrderSigningError, apperror.WithCause(err))
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func decimalString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
