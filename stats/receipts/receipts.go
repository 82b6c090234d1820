package receipts

import (
	"maps"
	"strconv"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

func Write(ev *types.Event) []*write.Point {
	points := []*write.Point{blockStats(ev)}
	points = append(points, codeCounts(ev)...)
	points = append(points, endorsementEvents(ev)...)
	if p := params(ev); p != nil {
		points = append(points, p)
	}
	return points
}

func blockStats(ev *types.Event) *write.Point {
	rejected := 0
	for _, r := range ev.Receipts {
		if !r.OK() {
			rejected++
		}
	}

	flags := make(map[string]any)
	flags[config.BlockNumberField] = ev.Block.Number
	flags["block_id"] = ev.Block.ID.String()
	flags["txs"] = len(ev.Receipts)
	flags["accepted"] = len(ev.Receipts) - rejected
	flags["rejected"] = rejected
	flags["state_digest"] = ev.State.Digest().String()

	return influxdb2.NewPoint(config.BlockStatsMeasurement, ev.DefaultTags, flags, ev.Block.Timestamp)
}

// codeCounts emits one point per (kind, code) pair seen in the block.
func codeCounts(ev *types.Event) []*write.Point {
	type key struct {
		kind types.TxKind
		code uint32
	}
	counts := make(map[key]int)
	var order []key
	for _, r := range ev.Receipts {
		k := key{r.Kind, r.Code}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	points := make([]*write.Point, 0, len(order))
	for _, k := range order {
		tags := maps.Clone(ev.DefaultTags)
		tags["kind"] = string(k.kind)
		tags["code"] = strconv.FormatUint(uint64(k.code), 10)

		points = append(points, influxdb2.NewPoint(config.ReceiptCodesMeasurement, tags, map[string]any{
			"count": counts[k],
		}, ev.Block.Timestamp))
	}
	return points
}

// endorsementEvents emits a point for every endorsement created, revoked or verified.
func endorsementEvents(ev *types.Event) []*write.Point {
	var points []*write.Point
	for i, r := range ev.Receipts {
		if !r.OK() || i >= len(ev.Block.Txs) {
			continue
		}
		tx := ev.Block.Txs[i]

		var id uint64
		switch tx.Kind {
		case types.TxEndorseUser:
			id = r.Value
		case types.TxRevokeEndorsement, types.TxVerifyEndorsement:
			id = tx.ID
		default:
			continue
		}
		e, ok := ev.State.Endorsement(id)
		if !ok {
			continue
		}

		tags := maps.Clone(ev.DefaultTags)
		tags["kind"] = string(tx.Kind)
		tags["endorser"] = string(e.Endorser)
		tags["endorsee"] = string(e.Endorsee)
		tags["category"] = string(e.Category)

		flags := map[string]any{
			"id":              e.ID,
			config.StakeField: e.StakeAmount,
			"weight":          e.Weight,
			"tx_id":           r.TxID.String(),
		}
		if tx.Kind == types.TxRevokeEndorsement {
			flags["reason"] = tx.Reason
		}
		points = append(points, influxdb2.NewPoint(config.EndorsementEventMeasurement, tags, flags, ev.Block.Timestamp))
	}
	return points
}

// params emits the ledger parameters when an admin setter succeeded in the block, and
// periodically otherwise.
func params(ev *types.Event) *write.Point {
	changed := false
	for i, r := range ev.Receipts {
		if r.OK() && i < len(ev.Block.Txs) && strings.HasPrefix(string(ev.Block.Txs[i].Kind), "set-") {
			changed = true
			break
		}
	}
	if !changed && ev.Block.Number%config.LogIntervalBlocks != 0 {
		return nil
	}

	p := ev.State.Params()
	return influxdb2.NewPoint(config.LedgerParamsMeasurement, ev.DefaultTags, map[string]any{
		"min_stake_amount":       p.MinStakeAmount,
		"max_stake_amount":       p.MaxStakeAmount,
		"stake_lock_period":      p.StakeLockPeriod,
		"score_decay_factor":     p.ScoreDecayFactor,
		"min_endorsers":          p.MinEndorsers,
		"max_endorsers_per_user": p.MaxEndorsersPerUser,
		"score_threshold":        p.ScoreThreshold,
		"verification_required":  p.VerificationRequired,
	}, ev.Block.Timestamp)
}
