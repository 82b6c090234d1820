package config

import (
	"time"
)

// Ledger parameter defaults
const (
	DefaultMinStakeAmount       = 100
	DefaultMaxStakeAmount       = 10000
	DefaultStakeLockPeriod      = 144 // blocks
	DefaultScoreDecayFactor     = 95
	DefaultMinEndorsers         = 3
	DefaultMaxEndorsersPerUser  = 50
	DefaultScoreThreshold       = 500
	DefaultVerificationRequired = true

	MaxWeight      = 100
	MaxDecayFactor = 100
	GenesisHeight  = 0
)

// Host constants
const (
	// Block intervals and timing
	DefaultBlockInterval = 10 * time.Second

	// Timeout constants
	DefaultTimeout    = 10 * time.Second
	DefaultRetryDelay = 100 * time.Millisecond

	// Sync constants
	DefaultQuerySize     = 200
	DefaultChannelBuffer = 2000
	DefaultMempoolSize   = 10000

	// Cache constants
	DefaultCacheSize = 100

	// Concurrency constants
	DefaultWorkerPoolSize = 10
	DefaultTaskQueueSize  = 100

	// Logging intervals
	LogIntervalBlocks = 250
)

// Default configuration values
const (
	DefaultThorURL      = ""
	DefaultInfluxDB     = "http://localhost:8086"
	DefaultInfluxToken  = "admin-token"
	DefaultInfluxOrg    = "vechain"
	DefaultInfluxBucket = "vouchledger"
	DefaultJournalPath  = "vouchledger.db"
	DefaultRosterSheet  = "Verified"
)

// Error messages
const (
	ErrInfluxTokenRequired   = "--influx-token or INFLUX_TOKEN is required"
	ErrAdminRequired         = "--admin or ADMIN is required"
	ErrFailedToCreateCache   = "failed to create LRU cache: %w"
	ErrFailedToFetchHead     = "failed to fetch head %d: %w"
	ErrFailedToOpenJournal   = "failed to open journal"
	ErrFailedToReplayJournal = "failed to replay journal"
	ErrFailedToAppendJournal = "failed to append block to journal"
	ErrDigestMismatch        = "replayed state digest %s does not match journal digest %s at height %d"
	ErrMempoolFull           = "mempool is full"
	ErrMempoolClosed         = "mempool is closed"

	// Worker pool error messages
	ErrWorkerPoolShutdown = "worker pool is shutdown"
)

// Measurement names for InfluxDB
const (
	BlockStatsMeasurement       = "block_stats"
	EndorseeScoreMeasurement    = "endorsee_score"
	EndorserStakeMeasurement    = "endorser_stake"
	ContractBalanceMeasurement  = "contract_balance"
	ReceiptCodesMeasurement     = "receipt_codes"
	LedgerParamsMeasurement     = "ledger_params"
	EndorsementEventMeasurement = "endorsement_events"
)

// Field names for InfluxDB
const (
	BlockNumberField = "block_number"
	ScoreField       = "score"
	StakeField       = "stake"
	BalanceField     = "balance"
	EligibleField    = "eligible"
)
