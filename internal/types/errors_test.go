package types

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewError(KindNotFound, "read location", fs.ErrNotExist)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrIO)
	assert.Equal(t, "read location: not_found: file does not exist", err.Error())
}

func TestPartialApplyKeepsCause(t *testing.T) {
	cause := NewError(KindInvalidZone, "set timezone", errors.New("Mars/Base"))
	err := NewError(KindPartialApply, "commit", fmt.Errorf("event 2 of 3: %w", cause))

	assert.ErrorIs(t, err, ErrPartialApply)
	assert.ErrorIs(t, err, ErrInvalidZone)
	assert.Equal(t, KindPartialApply, KindOf(err))
	assert.Equal(t, KindInvalidZone, KindOf(cause))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindIOFailure, KindOf(errors.New("plain")))
	assert.Equal(t, KindParseError, KindOf(fmt.Errorf("wrapped: %w", ErrParse)))
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindAborted}, "aborted"},
		{&Error{Kind: KindIOFailure, Op: "sync"}, "sync: io_failure"},
		{&Error{Kind: KindParseError, Err: errors.New("bad")}, "parse_error: bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}
