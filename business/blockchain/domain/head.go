package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Head is a new chain head as announced by the node.
type Head struct {
	Number    uint64
	Hash      common.Hash
	Timestamp time.Time
}
