// Package journal persists applied blocks to SQLite so the ledger can be rebuilt on restart.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/vechain/thor/v2/thor"

	"github.com/vechain/vouchledger/types"

	_ "modernc.org/sqlite"
)

const maxBusyTimeoutMs = 5000

var ErrNotFound = errors.New("not found in journal")

// Store is an append-only journal of blocks, their transactions and receipts.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

type genesis struct {
	Admin  types.Principal
	Params types.Params
}

func Open(filePath string) (*Store, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS blocks (
	number INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	digest TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS txs (
	block INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	ticket TEXT NOT NULL,
	tx_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	caller TEXT NOT NULL,
	payload BLOB NOT NULL,
	code INTEGER NOT NULL,
	value INTEGER NOT NULL,
	log TEXT NOT NULL,
	PRIMARY KEY (block, idx)
);
CREATE INDEX IF NOT EXISTS idx_txs_ticket ON txs(ticket);`)
	if err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Genesis returns the admin and params the journaled ledger was created with. ok is false for
// an empty journal.
func (s *Store) Genesis() (admin types.Principal, params types.Params, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	err = s.db.QueryRow(`SELECT value FROM meta WHERE key = 'genesis'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.Params{}, false, nil
	}
	if err != nil {
		return "", types.Params{}, false, fmt.Errorf("read genesis: %w", err)
	}
	var g genesis
	if err := rlp.DecodeBytes(raw, &g); err != nil {
		return "", types.Params{}, false, fmt.Errorf("decode genesis: %w", err)
	}
	return g.Admin, g.Params, true, nil
}

// SetGenesis records how the ledger was created. It fails if a genesis is already recorded.
func (s *Store) SetGenesis(admin types.Principal, params types.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := rlp.EncodeToBytes(&genesis{Admin: admin, Params: params})
	if err != nil {
		return fmt.Errorf("encode genesis: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO meta (key, value) VALUES ('genesis', ?)`, raw); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}

// Append records a block, the receipts of its transactions and the state digest after it, in
// one SQL transaction.
func (s *Store) Append(block *types.Block, receipts []*types.Receipt, digest thor.Bytes32) error {
	if len(receipts) != len(block.Txs) {
		return fmt.Errorf("block %d has %d txs but %d receipts", block.Number, len(block.Txs), len(receipts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO blocks (number, id, timestamp, digest) VALUES (?, ?, ?, ?)`,
		int64(block.Number), block.ID.String(), block.Timestamp.Unix(), digest.String()); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert block %d: %w", block.Number, err)
	}

	for i, t := range block.Txs {
		payload, err := rlp.EncodeToBytes(t)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode tx %d of block %d: %w", i, block.Number, err)
		}
		r := receipts[i]
		if _, err := tx.Exec(`INSERT INTO txs (block, idx, ticket, tx_id, kind, caller, payload, code, value, log)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(block.Number), i, t.Ticket.String(), r.TxID.String(), string(t.Kind), string(t.Caller),
			payload, int64(r.Code), int64(r.Value), r.Log); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert tx %d of block %d: %w", i, block.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Number, err)
	}
	return nil
}

// Last returns the newest journaled head and the digest stored with it, or a nil head for an
// empty journal.
func (s *Store) Last() (*types.Head, thor.Bytes32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		number    int64
		id        string
		timestamp int64
		digest    string
	)
	err := s.db.QueryRow(`SELECT number, id, timestamp, digest FROM blocks ORDER BY number DESC LIMIT 1`).
		Scan(&number, &id, &timestamp, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, thor.Bytes32{}, nil
	}
	if err != nil {
		return nil, thor.Bytes32{}, fmt.Errorf("read last block: %w", err)
	}

	head, err := parseHead(number, id, timestamp)
	if err != nil {
		return nil, thor.Bytes32{}, err
	}
	d, err := thor.ParseBytes32(digest)
	if err != nil {
		return nil, thor.Bytes32{}, fmt.Errorf("parse digest of block %d: %w", number, err)
	}
	return head, d, nil
}

// Entry is a journaled transaction with the outcome it had when first applied.
type Entry struct {
	Height uint64
	Tx     *types.Tx
	Code   uint32
}

// Entries calls fn for every journaled transaction in application order.
func (s *Store) Entries(fn func(e Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT block, payload, code FROM txs ORDER BY block, idx`)
	if err != nil {
		return fmt.Errorf("query txs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			block   int64
			payload []byte
			code    int64
		)
		if err := rows.Scan(&block, &payload, &code); err != nil {
			return fmt.Errorf("scan tx: %w", err)
		}
		var tx types.Tx
		if err := rlp.DecodeBytes(payload, &tx); err != nil {
			return fmt.Errorf("decode tx in block %d: %w", block, err)
		}
		if err := fn(Entry{Height: uint64(block), Tx: &tx, Code: uint32(code)}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Receipt returns the receipt of the transaction submitted with ticket.
func (s *Store) Receipt(ticket uuid.UUID) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		block  int64
		txID   string
		kind   string
		caller string
		code   int64
		value  int64
		log    string
	)
	err := s.db.QueryRow(`SELECT block, tx_id, kind, caller, code, value, log FROM txs WHERE ticket = ? ORDER BY block, idx LIMIT 1`,
		ticket.String()).Scan(&block, &txID, &kind, &caller, &code, &value, &log)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read receipt %s: %w", ticket, err)
	}
	id, err := thor.ParseBytes32(txID)
	if err != nil {
		return nil, fmt.Errorf("parse tx id %s: %w", txID, err)
	}
	return &types.Receipt{
		TxID:   id,
		Ticket: ticket,
		Kind:   types.TxKind(kind),
		Caller: types.Principal(caller),
		Height: uint64(block),
		Code:   uint32(code),
		Value:  uint64(value),
		Log:    log,
	}, nil
}

func parseHead(number int64, id string, timestamp int64) (*types.Head, error) {
	blockID, err := thor.ParseBytes32(id)
	if err != nil {
		return nil, fmt.Errorf("parse id of block %d: %w", number, err)
	}
	return &types.Head{
		Number:    uint64(number),
		ID:        blockID,
		Timestamp: time.Unix(timestamp, 0).UTC(),
	}, nil
}
