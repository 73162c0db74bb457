package evmcore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/insurance/kvstore"
	"github.com/rony4d/go-opera-insurance/opera/contracts/socialinsurance"
	"github.com/rony4d/go-opera-insurance/opera/genesis"
)

var (
	ErrNoGenesis        = errors.New("database holds no chain and no genesis was given")
	ErrGenesisMismatch  = errors.New("genesis does not match the stored chain")
	ErrUnknownRecipient = errors.New("transaction is not addressed to the insurance contract")
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrInvalidSender    = errors.New("invalid transaction sender")
	errMissingHeader    = errors.New("missing header")
)

const defaultBlockPeriod = time.Second

var (
	chainMetaKey  = []byte("si-genesis") // chainMeta RLP
	headNumberKey = []byte("si-head")    // number of the last sealed block
	headerPrefix  = []byte("si-H")       // headerPrefix + num (uint64 big endian) -> EvmHeader RLP
)

type chainMeta struct {
	GenesisHash common.Hash
	NetworkID   uint64
}

// ChainConfig tunes a Chain.
type ChainConfig struct {
	// GroupCache is the number of ledger records cached per table.
	GroupCache int

	// BlockPeriod advances header timestamps. Defaults to one second.
	BlockPeriod time.Duration

	Logger logrus.FieldLogger
}

// Receipt is the outcome of one call. A failed call still consumes its
// slot in the block: Status is ReceiptStatusFailed and Err holds the reason.
type Receipt struct {
	TxHash      common.Hash
	From        common.Address
	BlockNumber uint64
	Method      string
	Status      uint64
	Code        uint32 // insurance result code
	Err         error
	Return      []byte
	Logs        []*types.Log
}

// Chain hosts the ledger. Calls are executed against the block being
// built; Seal commits the balances and starts the next block. The number
// of the block being built is the ledger clock.
type Chain struct {
	mu sync.Mutex

	db       ethdb.Database
	sdb      state.Database
	statedb  *state.StateDB
	bank     *StateBank
	ledger   *insurance.Ledger
	contract *socialinsurance.Contract
	signer   types.Signer
	period   time.Duration

	head    *EvmHeader
	pending uint64 // atomic

	calls []common.Hash
	logs  []*types.Log

	log logrus.FieldLogger
}

// OpenChain opens the chain stored in db. An empty db is initialized from
// g; a non-empty db is checked against g when g is given.
func OpenChain(db ethdb.Database, g *genesis.Genesis, cfg ChainConfig) (*Chain, error) {
	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		logger = discard
	}
	if cfg.BlockPeriod <= 0 {
		cfg.BlockPeriod = defaultBlockPeriod
	}
	c := &Chain{
		db:     db,
		sdb:    state.NewDatabase(db),
		period: cfg.BlockPeriod,
		log:    logger,
	}

	var meta chainMeta
	exists, err := getRLP(db, chainMetaKey, &meta)
	if err != nil {
		return nil, err
	}
	var ledgerGenesis *insurance.Meta
	if !exists {
		if g == nil {
			return nil, ErrNoGenesis
		}
		if meta, err = c.applyGenesis(g); err != nil {
			return nil, err
		}
		ledgerGenesis = g.Meta()
	} else {
		if g != nil {
			hash, err := g.Hash()
			if err != nil {
				return nil, err
			}
			if hash != meta.GenesisHash {
				return nil, fmt.Errorf("%w: stored %s, given %s", ErrGenesisMismatch, meta.GenesisHash.Hex(), hash.Hex())
			}
		}
		if c.head, err = c.readHead(); err != nil {
			return nil, err
		}
	}

	statedb, err := state.New(c.head.Root, c.sdb, nil)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", c.head.Root.Hex(), err)
	}
	c.statedb = statedb
	c.bank = NewStateBank(statedb)
	c.signer = types.LatestSignerForChainID(new(big.Int).SetUint64(meta.NetworkID))
	atomic.StoreUint64(&c.pending, c.head.NumberU64()+1)

	store, err := kvstore.New(db, cfg.GroupCache)
	if err != nil {
		return nil, err
	}
	c.ledger, err = insurance.NewLedger(insurance.Config{
		Store:   store,
		Clock:   c,
		Bank:    c.bank,
		Account: socialinsurance.ContractAddress,
		Genesis: ledgerGenesis,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	c.contract = socialinsurance.New(c.ledger)

	// the chain only counts as initialized once the ledger genesis is in
	if !exists {
		if err := putRLP(db, chainMetaKey, &meta); err != nil {
			return nil, err
		}
	}
	c.log.WithFields(logrus.Fields{"head": c.head.NumberU64(), "hash": c.head.Hash.Hex()}).Info("Chain opened")
	return c, nil
}

func (c *Chain) applyGenesis(g *genesis.Genesis) (chainMeta, error) {
	if err := g.Validate(); err != nil {
		return chainMeta{}, err
	}
	hash, err := g.Hash()
	if err != nil {
		return chainMeta{}, err
	}
	statedb, err := state.New(common.Hash{}, c.sdb, nil)
	if err != nil {
		return chainMeta{}, err
	}
	block, err := ApplyFakeGenesis(statedb, g.Time, g.Alloc)
	if err != nil {
		return chainMeta{}, fmt.Errorf("apply genesis: %w", err)
	}
	if err := c.writeHead(&block.EvmHeader); err != nil {
		return chainMeta{}, err
	}
	c.head = &block.EvmHeader
	c.log.WithFields(logrus.Fields{"genesis": hash.Hex(), "network": g.Rules.Name}).Info("Applied genesis")
	return chainMeta{GenesisHash: hash, NetworkID: g.Rules.NetworkID}, nil
}

// Now returns the number of the block being built. It implements
// insurance.Clock.
func (c *Chain) Now() idx.Block {
	return idx.Block(atomic.LoadUint64(&c.pending))
}

// Call executes a call from an already authenticated caller.
func (c *Chain) Call(from common.Address, value *big.Int, input []byte) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	hash, err := c.callHash(from, value, input)
	if err != nil {
		return nil, err
	}
	return c.execute(hash, from, value, input)
}

// ApplyTransaction authenticates a signed transaction and executes it. The
// sender's nonce is consumed even if the call fails.
func (c *Chain) ApplyTransaction(tx *types.Transaction) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	if tx.To() == nil || *tx.To() != socialinsurance.ContractAddress {
		return nil, ErrUnknownRecipient
	}
	if want := c.statedb.GetNonce(from); tx.Nonce() != want {
		return nil, fmt.Errorf("%w: %s sent %d, want %d", ErrNonceMismatch, from.Hex(), tx.Nonce(), want)
	}
	c.statedb.SetNonce(from, tx.Nonce()+1)
	return c.execute(tx.Hash(), from, tx.Value(), tx.Data())
}

func (c *Chain) execute(hash common.Hash, from common.Address, value *big.Int, input []byte) (*Receipt, error) {
	number := atomic.LoadUint64(&c.pending)
	index := uint(len(c.calls))
	c.calls = append(c.calls, hash)

	res, err := c.contract.Call(socialinsurance.Call{Caller: from, Value: value, Input: input})
	r := &Receipt{
		TxHash:      hash,
		From:        from,
		BlockNumber: number,
		Status:      types.ReceiptStatusFailed,
		Code:        insurance.Code(err),
		Err:         err,
	}
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"tx": hash.Hex(), "from": from.Hex()}).Debug("Call failed")
		return r, err
	}

	r.Status = types.ReceiptStatusSuccessful
	r.Method = res.Method
	r.Return = res.Return
	for _, l := range res.Logs {
		l.TxHash = hash
		l.TxIndex = index
		l.BlockNumber = number
		l.Index = uint(len(c.logs))
		c.logs = append(c.logs, l)
	}
	r.Logs = res.Logs
	return r, nil
}

// NewCall builds an unsigned contract call transaction.
func NewCall(nonce uint64, value *big.Int, input []byte) *types.Transaction {
	if value == nil {
		value = new(big.Int)
	}
	return types.NewTransaction(nonce, socialinsurance.ContractAddress, value, 0, new(big.Int), input)
}

// Signer returns the transaction signer of the chain.
func (c *Chain) Signer() types.Signer { return c.signer }

// Nonce returns the next nonce expected from addr.
func (c *Chain) Nonce(addr common.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statedb.GetNonce(addr)
}

// Seal commits the balances of the block being built and starts the next one.
func (c *Chain) Seal() (*EvmBlock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seal()
}

// Advance seals n blocks; pending calls land in the first one.
func (c *Chain) Advance(n idx.Block) (*EvmHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := idx.Block(0); i < n; i++ {
		if _, err := c.seal(); err != nil {
			return nil, err
		}
	}
	head := *c.head
	return &head, nil
}

func (c *Chain) seal() (*EvmBlock, error) {
	root, err := flush(c.statedb, false, true)
	if err != nil {
		return nil, fmt.Errorf("commit state: %w", err)
	}
	statedb, err := state.New(root, c.sdb, nil)
	if err != nil {
		return nil, fmt.Errorf("reopen state: %w", err)
	}

	number := atomic.LoadUint64(&c.pending)
	block := NewEvmBlock(&EvmHeader{
		Number:     new(big.Int).SetUint64(number),
		ParentHash: c.head.Hash,
		Root:       root,
		Time:       c.head.Time + uint64(c.period),
	}, c.calls, c.logs)
	if err := c.writeHead(&block.EvmHeader); err != nil {
		return nil, err
	}

	c.statedb = statedb
	c.bank.reset(statedb)
	c.head = &block.EvmHeader
	c.calls, c.logs = nil, nil
	atomic.StoreUint64(&c.pending, number+1)

	c.log.WithFields(logrus.Fields{
		"number": number,
		"hash":   block.Hash.Hex(),
		"calls":  len(block.Calls),
		"logs":   len(block.Logs),
	}).Debug("Sealed block")
	return block, nil
}

// Head returns the last sealed header.
func (c *Chain) Head() *EvmHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	head := *c.head
	return &head
}

// Header returns the sealed header with the given number.
func (c *Chain) Header(number uint64) (*EvmHeader, error) {
	var h EvmHeader
	ok, err := getRLP(c.db, headerKey(number), &h)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", errMissingHeader, number)
	}
	h.Hash = h.computeHash()
	return &h, nil
}

// Balance returns the host balance of addr in the block being built.
func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bank.Balance(addr)
}

func (c *Chain) Ledger() *insurance.Ledger { return c.ledger }

func (c *Chain) Contract() *socialinsurance.Contract { return c.contract }

// Subscribe forwards committed premium events to sink.
func (c *Chain) Subscribe(sink insurance.EventSink) { c.ledger.Subscribe(sink) }

func (c *Chain) callHash(from common.Address, value *big.Int, input []byte) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes([]interface{}{from, value, input, atomic.LoadUint64(&c.pending), uint64(len(c.calls))})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

func (c *Chain) readHead() (*EvmHeader, error) {
	raw, err := c.db.Get(headNumberKey)
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	if len(raw) != 8 {
		return nil, fmt.Errorf("corrupt head number %x", raw)
	}
	return c.Header(binary.BigEndian.Uint64(raw))
}

func (c *Chain) writeHead(h *EvmHeader) error {
	batch := c.db.NewBatch()
	if err := putRLP(batch, headerKey(h.NumberU64()), h); err != nil {
		return err
	}
	var num [8]byte
	binary.BigEndian.PutUint64(num[:], h.NumberU64())
	if err := batch.Put(headNumberKey, num[:]); err != nil {
		return err
	}
	return batch.Write()
}

func headerKey(number uint64) []byte {
	key := make([]byte, len(headerPrefix)+8)
	copy(key, headerPrefix)
	binary.BigEndian.PutUint64(key[len(headerPrefix):], number)
	return key
}

func getRLP(db ethdb.KeyValueReader, key []byte, val interface{}) (bool, error) {
	ok, err := db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	raw, err := db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, val); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

func putRLP(db ethdb.KeyValueWriter, key []byte, val interface{}) error {
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	return db.Put(key, enc)
}
