/*
Package monitoring provides Prometheus metrics for the daemon.

# Overview

Metrics cover the HTTP surface, websocket views, terminal sessions, the
sidecar port pool and API client, link resolution, consent prompts, and
palette command executions. Each Metrics value owns its own registry so
that several collectors can coexist in one process.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "sidecar", "append_prompt")
	err := client.AppendPrompt(ctx, text)
	timer.Stop(monitoring.Outcome(err))
*/
package monitoring
