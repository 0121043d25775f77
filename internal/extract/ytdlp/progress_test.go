// SPDX-License-Identifier: MIT

package ytdlp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrab/vgrab/internal/extract"
)

// collector gathers progress events across the tracker's dispatch goroutine.
type collector struct {
	mu     sync.Mutex
	events []extract.Progress
}

func (c *collector) fn(ev extract.Progress) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) milestones() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int
	for _, ev := range c.events {
		if ev.Stage == extract.StageMilestone {
			out = append(out, ev.Percent)
		}
	}
	return out
}

func TestTracker_EmitsMilestonesInOrder(t *testing.T) {
	var c collector
	tr := newTracker(c.fn, 0)

	for _, line := range []string{
		"vgrab 10 100 NA\n",
		"vgrab 30 100 NA\n",
		"vgrab 80 100 NA\n",
		"vgrab 100 100 NA\n",
	} {
		_, err := tr.Write([]byte(line))
		require.NoError(t, err)
	}
	tr.close()

	assert.Equal(t, []int{25, 50, 75}, c.milestones())
}

func TestTracker_EachMilestoneFiresOnce(t *testing.T) {
	var c collector
	tr := newTracker(c.fn, 0)

	for i := 0; i < 5; i++ {
		_, err := tr.Write([]byte("vgrab 60 100 NA\n"))
		require.NoError(t, err)
	}
	tr.close()

	assert.Equal(t, []int{25, 50}, c.milestones())
}

func TestTracker_HandlesLinesSplitAcrossWrites(t *testing.T) {
	var c collector
	tr := newTracker(c.fn, 0)

	_, err := tr.Write([]byte("vgrab 50 "))
	require.NoError(t, err)
	_, err = tr.Write([]byte("100 NA\nvgrab 99 100 NA\n"))
	require.NoError(t, err)
	tr.close()

	assert.Equal(t, []int{25, 50, 75}, c.milestones())
}

func TestTracker_IgnoresForeignOutput(t *testing.T) {
	var c collector
	tr := newTracker(c.fn, 0)

	_, err := tr.Write([]byte("[youtube] abc: Downloading webpage\nvgrab garbled\n"))
	require.NoError(t, err)
	tr.close()

	assert.Empty(t, c.milestones())
}

func TestTracker_FlagsByteCapBreach(t *testing.T) {
	tr := newTracker(nil, 1000)

	_, err := tr.Write([]byte("vgrab 500 2000 NA\n"))
	require.NoError(t, err)
	assert.False(t, tr.capExceeded())

	_, err = tr.Write([]byte("vgrab 1500 2000 NA\n"))
	require.NoError(t, err)
	assert.True(t, tr.capExceeded())

	tr.close()
}

func TestTracker_UsesEstimateWhenTotalUnknown(t *testing.T) {
	var c collector
	tr := newTracker(c.fn, 0)

	_, err := tr.Write([]byte("vgrab 60 NA 100\n"))
	require.NoError(t, err)
	tr.close()

	assert.Equal(t, []int{25, 50}, c.milestones())
}

func TestParseBytes(t *testing.T) {
	cases := map[string]int64{
		"":        0,
		"NA":      0,
		"None":    0,
		"1024":    1024,
		"1536.7":  1536,
		"garbage": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseBytes(in), "input %q", in)
	}
}
