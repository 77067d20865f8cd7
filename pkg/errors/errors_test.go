package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{
			name:     "wrap nil error",
			err:      nil,
			msg:      "additional context",
			expected: "",
		},
		{
			name:     "wrap sentinel",
			err:      ErrGenomeNotFound,
			msg:      "hg38",
			expected: "hg38: genome not found",
		},
		{
			name:     "wrap with empty message",
			err:      errors.New("original error"),
			msg:      "",
			expected: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, tt.expected, result.Error())
			assert.True(t, errors.Is(result, tt.err))
		})
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(ErrDownloadFailed, "fetch %s (%d)", "chr1.fa.gz", 404)
	assert.Equal(t, "fetch chr1.fa.gz (404): download failed", err.Error())
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Nil(t, Wrapf(nil, "x %d", 1))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport timeout", Wrap(ErrTransportTimeout, "GET x"), true},
		{"deadline", fmt.Errorf("head: %w", context.DeadlineExceeded), true},
		{"net timeout", Wrap(timeoutErr{}, "read"), true},
		{"not found", ErrGenomeNotFound, false},
		{"download failed", ErrDownloadFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
