// SPDX-License-Identifier: MIT

package ytdlp

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrab/vgrab/internal/extract"
)

func TestClassify_KnownPatterns(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   extract.Kind
	}{
		{"bot challenge", "ERROR: [youtube] abc: Sign in to confirm you're not a bot", extract.KindBotChallenge},
		{"forbidden", "ERROR: unable to download video data: HTTP Error 403: Forbidden", extract.KindBotChallenge},
		{"throttled", "ERROR: HTTP Error 429: Too Many Requests", extract.KindThrottled},
		{"age gate", "ERROR: Sign in to confirm your age", extract.KindAuthRequired},
		{"cookies hint", "ERROR: This video is only available to Music Premium members. Use --cookies", extract.KindAuthRequired},
		{"members only", "ERROR: Join this channel to get access to members-only content", extract.KindAuthRequired},
		{"private", "ERROR: Private video. Sign in if you've been granted access", extract.KindNotFound},
		{"unavailable", "ERROR: Video unavailable", extract.KindNotFound},
		{"removed", "ERROR: This video has been removed by the uploader", extract.KindNotFound},
		{"geo", "ERROR: The uploader has not made this video available in your country", extract.KindGeoBlocked},
		{"geo alt", "ERROR: This video is not available in your country", extract.KindGeoBlocked},
		{"bad format", "ERROR: Requested format is not available", extract.KindBadFormat},
		{"too large", "File is larger than max-filesize", extract.KindTooLarge},
		{"no space", "ERROR: unable to write data: No space left on device", extract.KindNoSpace},
		{"unsupported", "ERROR: Unsupported URL: https://example.com", extract.KindAmbiguousInput},
		{"server error", "ERROR: HTTP Error 503: Service Unavailable", extract.KindUnavailable},
		{"timeout", "ERROR: The read operation timed out", extract.KindUnavailable},
	}

	base := errors.New("exit status 1")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify([]byte(tc.stderr), base)
			assert.Equal(t, tc.want, extract.KindOf(err))
		})
	}
}

func TestClassify_NilErrorStaysNil(t *testing.T) {
	assert.NoError(t, classify([]byte("whatever"), nil))
}

func TestClassify_CancellationPropagatesUntouched(t *testing.T) {
	err := classify(nil, context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)

	var classified *extract.Error
	assert.False(t, errors.As(err, &classified))
}

func TestClassify_DeadlineReadsAsUnavailable(t *testing.T) {
	err := classify(nil, context.DeadlineExceeded)
	assert.Equal(t, extract.KindUnavailable, extract.KindOf(err))
}

func TestClassify_UnrecognisedExtractorErrorIsTransient(t *testing.T) {
	err := classify([]byte("ERROR: something entirely novel happened"), errors.New("exit status 1"))
	assert.Equal(t, extract.KindUnavailable, extract.KindOf(err))
	assert.True(t, extract.KindOf(err).Transient(), "unknown extractor errors must let fallback advance")
}

func TestClassify_MissingBinaryIsInternal(t *testing.T) {
	execErr := &exec.Error{Name: "yt-dlp", Err: exec.ErrNotFound}
	err := classify(nil, execErr)
	assert.Equal(t, extract.KindInternal, extract.KindOf(err))
}

func TestClassify_SilentFailureIsInternal(t *testing.T) {
	err := classify(nil, errors.New("exit status 1"))
	assert.Equal(t, extract.KindInternal, extract.KindOf(err))
}

func TestFirstErrorLine_PicksTheErrorLine(t *testing.T) {
	stderr := "WARNING: something benign\nERROR: the actual problem\nmore noise"
	assert.Equal(t, "ERROR: the actual problem", firstErrorLine(stderr))
}

func TestFirstErrorLine_BoundsLength(t *testing.T) {
	stderr := "ERROR: " + strings.Repeat("x", 500)
	got := firstErrorLine(stderr)
	require.LessOrEqual(t, len(got), 200)
}

func TestFirstErrorLine_FallsBackToRawStderr(t *testing.T) {
	assert.Equal(t, "no error prefix here", firstErrorLine("  no error prefix here  "))
}
