/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suffixRE = regexp.MustCompile(`^[0-9a-f]{7}$`)

func TestBranchName(t *testing.T) {
	tests := []struct {
		bot, suffix, want string
	}{
		{"gitsim-bot", "abc1234", "gitsim-bot/branch-abc1234"},
		{"Activity Bot", "0000000", "Activity-Bot/branch-0000000"},
		{"  padded\tbot ", "fffffff", "padded-bot/branch-fffffff"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BranchName(tc.bot, tc.suffix))
	}
}

func TestRandomSuffix(t *testing.T) {
	src := RandomSuffix()
	seen := map[string]bool{}
	for range 20 {
		s, err := src.Suffix()
		require.NoError(t, err)
		assert.Len(t, s, SuffixLength)
		assert.Regexp(t, suffixRE, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 1, "random suffixes should vary")
}

func TestSeededSuffixIsReproducible(t *testing.T) {
	draw := func(seed uint64) []string {
		src := SeededSuffix(seed)
		var out []string
		for range 5 {
			s, err := src.Suffix()
			require.NoError(t, err)
			require.Regexp(t, suffixRE, s)
			out = append(out, s)
		}
		return out
	}

	assert.Equal(t, draw(17), draw(17))
	assert.NotEqual(t, draw(17), draw(18))
}

func TestBranchesSortedAndFiltered(t *testing.T) {
	s := newTestSession(t, testConfig(initRemote(t, "main", "feature", "alpha")))

	refs, err := s.branches()
	require.NoError(t, err)

	var got []string
	for _, r := range refs {
		got = append(got, r.Name().String())
	}
	assert.Equal(t, []string{
		"refs/heads/alpha",
		"refs/heads/feature",
		"refs/heads/main",
		"refs/remotes/origin/alpha",
		"refs/remotes/origin/feature",
		"refs/remotes/origin/main",
	}, got)
}

func TestReachableCommitsDeduplicates(t *testing.T) {
	// alpha and feature each add one commit on top of main's.
	s := newTestSession(t, testConfig(initRemote(t, "main", "feature", "alpha")))

	commits, err := s.reachableCommits()
	require.NoError(t, err)
	require.Len(t, commits, 3)
	for i := 1; i < len(commits); i++ {
		assert.Less(t, commits[i-1].String(), commits[i].String())
	}
}
