package kvstore

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key layout, in the style of go-ethereum's rawdb schema: a short prefix
// followed by the record address and, for sequences, a big-endian index.
var (
	metaKey = []byte("si-meta")

	groupPrefix      = []byte("si-g") // groupPrefix + spokesperson -> Group RLP
	membershipPrefix = []byte("si-m") // membershipPrefix + member -> Membership RLP
	memberSeqPrefix  = []byte("si-l") // memberSeqPrefix + group + index -> member address
	childSeqPrefix   = []byte("si-c") // childSeqPrefix + group + index -> child spokesperson
)

func groupKey(addr common.Address) []byte {
	return append(append([]byte{}, groupPrefix...), addr.Bytes()...)
}

func membershipKey(addr common.Address) []byte {
	return append(append([]byte{}, membershipPrefix...), addr.Bytes()...)
}

func seqKey(prefix []byte, group common.Address, index uint64) []byte {
	key := make([]byte, 0, len(prefix)+common.AddressLength+8)
	key = append(key, prefix...)
	key = append(key, group.Bytes()...)
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], index)
	return append(key, enc[:]...)
}
