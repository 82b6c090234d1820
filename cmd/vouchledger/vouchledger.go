package vouchledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/influxdb"
	"github.com/vechain/vouchledger/journal"
	"github.com/vechain/vouchledger/ledger"
	"github.com/vechain/vouchledger/pubsub"
	"github.com/vechain/vouchledger/roster"
	"github.com/vechain/vouchledger/types"
)

type Cmd struct {
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	publisher  *pubsub.Publisher
	subscriber *pubsub.Subscriber
	mempool    *pubsub.Mempool
	ledger     *ledger.Ledger
	journal    *journal.Store
	influx     *influxdb.DB
}

type Options struct {
	Admin          types.Principal
	Params         types.Params
	ThorURL        string
	BlockInterval  time.Duration
	MaxTxsPerBlock int
	InfluxURL      string
	InfluxToken    string
	InfluxOrg      string
	InfluxBucket   string
	JournalPath    string
	RosterPath     string
}

func New(ctx context.Context, opts Options) (*Cmd, error) {
	slog.Info("initializing vouchledger",
		"admin", opts.Admin,
		"thor-url", opts.ThorURL,
		"influx-url", opts.InfluxURL,
		"influx-org", opts.InfluxOrg,
		"influx-bucket", opts.InfluxBucket,
		"journal", opts.JournalPath,
	)

	store, err := journal.Open(opts.JournalPath)
	if err != nil {
		return nil, errors.Wrap(err, config.ErrFailedToOpenJournal)
	}

	l, applied, fresh, err := restore(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}

	heads, err := headSource(opts, applied)
	if err != nil {
		slog.Error("failed to create head source", "error", err)
		store.Close()
		return nil, err
	}

	influx, err := influxdb.New(opts.InfluxURL, opts.InfluxToken, opts.InfluxOrg, opts.InfluxBucket)
	if err != nil {
		slog.Error("failed to create influxdb", "error", err)
		store.Close()
		return nil, err
	}
	if err := pruneStats(influx, applied); err != nil {
		slog.Warn("failed to prune stats ahead of the journal", "error", err)
	}

	mempool := pubsub.NewMempool(config.DefaultMempoolSize)
	if fresh && opts.RosterPath != "" {
		if err := submitRoster(mempool, opts.RosterPath, l.Admin()); err != nil {
			slog.Error("failed to import roster", "error", err)
			influx.Close()
			store.Close()
			return nil, err
		}
	}

	publisher, blockChan := pubsub.NewPublisher(heads, mempool, applied, opts.BlockInterval, opts.MaxTxsPerBlock)
	subscriber := pubsub.NewSubscriber(blockChan, l, store, influx, applied)

	appCtx, cancel := context.WithCancel(ctx)
	return &Cmd{
		ctx:        appCtx,
		cancel:     cancel,
		publisher:  publisher,
		subscriber: subscriber,
		mempool:    mempool,
		ledger:     l,
		journal:    store,
		influx:     influx,
	}, nil
}

// restore creates the ledger from the journal genesis and replays the journal into it. A journal
// without a genesis records one from opts and reports fresh.
func restore(store *journal.Store, opts Options) (*ledger.Ledger, *types.Head, bool, error) {
	admin, params, ok, err := store.Genesis()
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		l, err := ledger.New(opts.Admin, opts.Params)
		if err != nil {
			return nil, nil, false, err
		}
		if err := store.SetGenesis(opts.Admin, opts.Params); err != nil {
			return nil, nil, false, err
		}
		slog.Info("🌱 new ledger", "admin", opts.Admin)
		return l, nil, true, nil
	}

	if opts.Admin != "" && opts.Admin != admin {
		slog.Warn("admin differs from the journal genesis, using the journal", "flag", opts.Admin, "journal", admin)
	}
	if opts.Params != params {
		slog.Info("params are taken from the journal genesis, admin transactions change them")
	}
	l, err := ledger.New(admin, params)
	if err != nil {
		return nil, nil, false, err
	}
	applied, err := journal.Replay(store, l)
	if err != nil {
		return nil, nil, false, err
	}
	return l, applied, applied == nil, nil
}

func headSource(opts Options, applied *types.Head) (pubsub.HeadSource, error) {
	if opts.ThorURL != "" {
		return pubsub.NewThorHeads(opts.ThorURL, config.DefaultCacheSize)
	}
	offset := uint64(config.GenesisHeight)
	if applied != nil {
		offset = applied.Number + 1
	}
	slog.Info("no thor node configured, using local heads", "from", offset, "interval", opts.BlockInterval)
	return pubsub.NewLocalHeads(offset, opts.BlockInterval), nil
}

// pruneStats deletes the points written for blocks the journal never recorded, so that
// re-applied blocks are not counted twice.
func pruneStats(influx *influxdb.DB, applied *types.Head) error {
	latest, err := influx.Latest()
	if err != nil {
		return err
	}
	switch {
	case applied == nil && latest > 0:
		slog.Warn("influx holds blocks of an unknown ledger, deleting them", "latest", latest)
		return influx.DeleteSince(time.Unix(0, 0))
	case applied != nil && latest > applied.Number:
		slog.Warn("influx is ahead of the journal, deleting newer points", "latest", latest, "applied", applied.Number)
		return influx.DeleteSince(applied.Timestamp.Add(time.Nanosecond))
	}
	return nil
}

func submitRoster(mempool *pubsub.Mempool, path string, admin types.Principal) error {
	txs, err := roster.Import(path, admin)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if _, err := mempool.Submit(tx); err != nil {
			return err
		}
	}
	slog.Info("📋 roster imported", "path", path, "txs", len(txs))
	return nil
}

// Run starts the publisher and subscriber routines. The subscriber failing stops both. The
// subscriber is not cancelled directly: it returns once the publisher closes the block channel,
// so every published block is applied and journaled.
func (cmd *Cmd) Run() {
	slog.Info("starting vouchledger publisher and subscriber")
	group, ctx := errgroup.WithContext(cmd.ctx)
	group.Go(func() error {
		cmd.publisher.Publish(ctx)
		return nil
	})
	group.Go(func() error {
		if err := cmd.subscriber.Subscribe(context.WithoutCancel(ctx)); err != nil {
			slog.Error("subscriber stopped", "error", err)
			return err
		}
		return nil
	})
	cmd.group = group
}

// Wait blocks until both routines have returned.
func (cmd *Cmd) Wait() error {
	if cmd.group == nil {
		return nil
	}
	return cmd.group.Wait()
}

func (cmd *Cmd) Stop() error {
	slog.Info("stopping vouchledger")
	cmd.mempool.Close()
	cmd.cancel()
	if err := cmd.Wait(); err != nil {
		slog.Warn("vouchledger stopped with error", "error", err)
	}
	cmd.influx.Close()
	return cmd.journal.Close()
}

// Submit queues tx for the next block and returns the ticket its receipt will carry.
func (cmd *Cmd) Submit(tx *types.Tx) (uuid.UUID, error) {
	return cmd.mempool.Submit(tx)
}

// Receipt returns the journaled receipt of the tx submitted with ticket.
func (cmd *Cmd) Receipt(ticket uuid.UUID) (*types.Receipt, error) {
	return cmd.journal.Receipt(ticket)
}

func (cmd *Cmd) Ledger() *ledger.Ledger {
	return cmd.ledger
}

func (cmd *Cmd) Publisher() *pubsub.Publisher {
	return cmd.publisher
}

func (cmd *Cmd) Subscriber() *pubsub.Subscriber {
	return cmd.subscriber
}

func (cmd *Cmd) InfluxDB() *influxdb.DB {
	return cmd.influx
}
