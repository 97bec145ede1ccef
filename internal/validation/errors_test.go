package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Keyf("configs.release", 4, "%s is not permitted", "colour")

	assert.True(t, errors.Is(err, ErrKey))
	assert.False(t, errors.Is(err, ErrValue))

	wrapped := fmt.Errorf("loading policy: %w", err)
	assert.True(t, errors.Is(wrapped, ErrKey))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindKey, kind)
}

func TestErrorMessage(t *testing.T) {
	testCases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "path and line",
			err:  Typef("filters.strict", 7, "minimum-severity must be a string"),
			want: "type error in filters.strict (line 7): minimum-severity must be a string",
		},
		{
			name: "path only",
			err:  Valuef("config", 0, "Config %s is not defined", "nope"),
			want: "value error in config: Config nope is not defined",
		},
		{
			name: "wrapped cause without location",
			err:  &Error{Kind: KindIO, Msg: "policy file not found", Err: fs.ErrNotExist},
			want: "io error: policy file not found: file does not exist",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Kind: KindIO, Err: fs.ErrNotExist}
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, ErrIO))

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
