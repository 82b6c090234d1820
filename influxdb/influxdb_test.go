package influxdb

import (
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcLog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vechain/vouchledger/config"
)

// newInfluxContainer starts an InfluxDB 2 instance initialised with the default org, bucket
// and token, and returns its URL.
func newInfluxContainer(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping InfluxDB container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	tcLog.SetDefault(tcLog.TestLogger(t))

	container, err := testcontainers.Run(ctx, "influxdb:2.7",
		testcontainers.WithExposedPorts("8086/tcp"),
		testcontainers.WithEnv(map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "password1234",
			"DOCKER_INFLUXDB_INIT_ORG":         config.DefaultInfluxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      config.DefaultInfluxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": config.DefaultInfluxToken,
		}),
		testcontainers.WithWaitStrategyAndDeadline(time.Minute, wait.ForHTTP("/health").WithPort("8086/tcp")),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.PortEndpoint(ctx, "8086/tcp", "http")
	require.NoError(t, err)
	return url
}

func blockPoint(number uint64, ts time.Time) *write.Point {
	return influxdb2.NewPoint(config.BlockStatsMeasurement,
		map[string]string{"admin": "admin"},
		map[string]any{config.BlockNumberField: number, "txs": 0},
		ts)
}

func TestDB(t *testing.T) {
	url := newInfluxContainer(t)

	db, err := New(url, config.DefaultInfluxToken, config.DefaultInfluxOrg, config.DefaultInfluxBucket)
	require.NoError(t, err)
	defer db.Close()

	latest, err := db.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(0), latest)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, db.WritePoints([]*write.Point{
		blockPoint(10, base),
		blockPoint(11, base.Add(10*time.Second)),
		blockPoint(12, base.Add(20*time.Second)),
	}))

	latest, err = db.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(12), latest)

	require.NoError(t, db.DeleteSince(base.Add(5*time.Second)))

	latest, err = db.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(10), latest)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New("http://127.0.0.1:1", config.DefaultInfluxToken, config.DefaultInfluxOrg, config.DefaultInfluxBucket)
	require.Error(t, err)
}
