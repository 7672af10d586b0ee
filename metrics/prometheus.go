/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitsim_ticks_total",
			Help: "Total number of simulated activity ticks, by chosen action",
		},
		[]string{"action"},
	)

	commitCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitsim_commits_total",
			Help: "Total number of commits created",
		},
	)

	pushCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitsim_pushes_total",
			Help: "Total number of push attempts, by result",
		},
		[]string{"result"},
	)

	branchCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitsim_branches_created_total",
			Help: "Total number of branches created by the simulator",
		},
	)

	tickErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitsim_tick_errors_total",
			Help: "Total number of failed ticks, by the stage that failed",
		},
		[]string{"stage"},
	)
)
