// Package metrics exposes the server's operator-observable counters and gauges
// via Prometheus: open connections, online players, region tick lag, and login
// outcomes. Serve publishes them on a plain /metrics HTTP endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsOpen tracks sessions between accept and teardown.
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxelcore_connections_open",
		Help: "Currently open client connections, across all protocol states.",
	})

	// PlayersOnline tracks sessions with a spawned player controller.
	PlayersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxelcore_players_online",
		Help: "Players currently spawned into a world.",
	})

	// Logins counts login attempts by outcome: "success", "auth_failed", "protocol_error".
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxelcore_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	// RegionTickLag is the saturating lag counter of each region ticker, one
	// gauge per region_x/region_z label pair (spec: after too many queued ticks the timer drops firings and
	// accumulates lag; operators may observe but the region is not killed).
	RegionTickLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voxelcore_region_tick_lag",
		Help: "Accumulated dropped-tick lag per region ticker.",
	}, []string{"region_x", "region_z"})

	// PacketsRead and PacketsWritten count framed packets per direction.
	PacketsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxelcore_packets_read_total",
		Help: "Serverbound packets successfully framed and decoded.",
	})
	PacketsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxelcore_packets_written_total",
		Help: "Clientbound packets written to the wire.",
	})
)

// Serve blocks serving the Prometheus endpoint on addr. Intended to run on its
// own goroutine; an empty addr disables the endpoint and returns immediately.
func Serve(addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
