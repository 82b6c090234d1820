package stakes

import (
	"maps"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// Write emits the stake of every endorser touched by the block and the contract balance.
func Write(ev *types.Event) []*write.Point {
	_, endorsers := ev.Touched()

	points := make([]*write.Point, 0, len(endorsers)+1)
	for _, endorser := range endorsers {
		tags := maps.Clone(ev.DefaultTags)
		tags["endorser"] = string(endorser)

		p := influxdb2.NewPoint(config.EndorserStakeMeasurement, tags, map[string]any{
			config.StakeField: ev.State.Stake(endorser),
		}, ev.Block.Timestamp)
		points = append(points, p)
	}

	balance := influxdb2.NewPoint(config.ContractBalanceMeasurement, ev.DefaultTags, map[string]any{
		config.BalanceField:   ev.State.ContractBalance(),
		"next_endorsement_id": ev.State.NextEndorsementID(),
	}, ev.Block.Timestamp)

	return append(points, balance)
}
