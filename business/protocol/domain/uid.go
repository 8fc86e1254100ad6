package domain

import (
	"encoding/binary"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

// OrderUIDLength is the byte length of an order UID.
const OrderUIDLength = 32 + common.AddressLength + 4

// OrderUID identifies an order: EIP-712 digest, owner, then validTo as a
// big-endian uint32.
type OrderUID [OrderUIDLength]byte

// NewOrderUID packs the three UID components.
func NewOrderUID(digest common.Hash, owner common.Address, validTo uint32) OrderUID {
	var uid OrderUID
	copy(uid[:32], digest[:])
	copy(uid[32:52], owner[:])
	binary.BigEndian.PutUint32(uid[52:], validTo)
	return uid
}

// ParseOrderUID decodes the 0x-prefixed hex form.
func ParseOrderUID(s string) (OrderUID, error) {
	var uid OrderUID
	b, err := hexutil.Decode(s)
	if err != nil {
		return uid, apperror.New(apperror.CodeInvalidOrderUID,
			apperror.WithCause(err),
			apperror.WithContext(s))
	}
	if len(b) != OrderUIDLength {
		return uid, apperror.New(apperror.CodeInvalidOrderUID,
			apperror.WithMessage("order UID must be 56 bytes"),
			apperror.WithContext(s))
	}
	copy(uid[:], b)
	return uid, nil
}

// Digest returns the signed order digest.
func (u OrderUID) Digest() common.Hash {
	return common.BytesToHash(u[:32])
}

// Owner returns the order owner.
func (u OrderUID) Owner() common.Address {
	return common.BytesToAddress(u[32:52])
}

// ValidTo returns the order expiry as a unix timestamp.
func (u OrderUID) ValidTo() uint32 {
	return binary.BigEndian.Uint32(u[52:])
}

// String returns the 0x-prefixed lowercase hex form.
func (u OrderUID) String() string {
	return hexutil.Encode(u[:])
}

func (u OrderUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *OrderUID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderUID(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// UnmarshalJSON accepts the bare JSON string the order API returns from POST orders.
func (u *OrderUID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return u.UnmarshalText([]byte(s))
}
