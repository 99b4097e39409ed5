package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrStorage, cause, "insert records")

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrDecode)
	require.Equal(t, "insert records: connection refused", err.Error())
	require.Equal(t, "insert records", err.Message())
}

func TestErrorThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", Errorf(ErrNotFound, "record %s not found", "x"))

	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, ErrNotFound, KindOf(err))
}

func TestKindOf(t *testing.T) {
	require.Nil(t, KindOf(errors.New("plain")))
	require.Nil(t, KindOf(nil))
	require.Equal(t, ErrEmptyBatch, KindOf(Errorf(ErrEmptyBatch, "")))
}

func TestErrorStringFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"kind only", &Error{kind: ErrDecode}, "decode error"},
		{"message only", Errorf(ErrDecode, "bad sheet"), "bad sheet"},
		{"cause only", &Error{kind: ErrStorage, err: errors.New("boom")}, "boom"},
		{"nil", nil, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}
