package scores

import (
	"maps"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

// Write emits one point per endorsee whose score may have changed in the block.
func Write(ev *types.Event) []*write.Point {
	endorsees, _ := ev.Touched()

	points := make([]*write.Point, 0, len(endorsees))
	for _, endorsee := range endorsees {
		ids := ev.State.EndorseeEndorsements(endorsee)
		active := 0
		for _, id := range ids {
			if e, ok := ev.State.Endorsement(id); ok && e.Active {
				active++
			}
		}

		tags := maps.Clone(ev.DefaultTags)
		tags["endorsee"] = string(endorsee)

		flags := make(map[string]any)
		flags[config.ScoreField] = ev.State.Score(endorsee)
		flags[config.EligibleField] = ev.State.Eligible(endorsee)
		flags["endorsements"] = len(ids)
		flags["active_endorsements"] = active

		points = append(points, influxdb2.NewPoint(config.EndorseeScoreMeasurement, tags, flags, ev.Block.Timestamp))
	}
	return points
}
