// SPDX-License-Identifier: MIT

package extract

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindTransient(t *testing.T) {
	transient := []Kind{KindBotChallenge, KindUnavailable, KindThrottled, KindAuthRequired}
	for _, k := range transient {
		assert.True(t, k.Transient(), "%s must advance the fallback plan", k)
	}

	permanent := []Kind{
		KindNotFound, KindGeoBlocked, KindTooLong, KindTooLarge,
		KindBadFormat, KindAmbiguousInput, KindNoSpace, KindInternal,
	}
	for _, k := range permanent {
		assert.False(t, k.Transient(), "%s must stop the fallback plan", k)
	}
}

func TestKindOf(t *testing.T) {
	err := NewError(KindGeoBlocked, "blocked", nil)
	assert.Equal(t, KindGeoBlocked, KindOf(err))

	wrapped := fmt.Errorf("attempt failed: %w", err)
	assert.Equal(t, KindGeoBlocked, KindOf(wrapped))

	assert.Equal(t, KindInternal, KindOf(errors.New("anything else")))
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewError(KindThrottled, "429", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestAttempt_ElapsedMs(t *testing.T) {
	a := Attempt{Elapsed: 1500000000} // 1.5s in nanoseconds
	assert.Equal(t, int64(1500), a.ElapsedMs())
}
