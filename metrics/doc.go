/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics exposes the simulator's activity counters.
//
// Prometheus counters live in the default registry, so a process serving
// promhttp.Handler picks them up without further wiring:
//
//	gitsim_ticks_total{action}
//	gitsim_commits_total
//	gitsim_pushes_total{result}
//	gitsim_branches_created_total
//	gitsim_tick_errors_total{stage}
//
// Pushed commits are also reported through OpenTelemetry as
// gitsim.commits.pushed.
package metrics
