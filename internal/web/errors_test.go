package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/records/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "body too large",
			err:  &http.MaxBytesError{Limit: 10},
			want: http.StatusRequestEntityTooLarge,
		},
		{
			name: "rate limited",
			err:  errRateLimited,
			want: http.StatusTooManyRequests,
		},
		{
			name: "not found",
			err:  core.Errorf(core.ErrNotFound, "record not found"),
			want: http.StatusNotFound,
		},
		{
			name: "decode error",
			err:  core.Errorf(core.ErrDecode, "no file uploaded"),
			want: http.StatusBadRequest,
		},
		{
			name: "busy",
			err:  core.Errorf(core.ErrTooManyUploads, "too many uploads in progress"),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "storage deadline stays a storage failure",
			err:  core.Wrap(core.ErrStorage, fmt.Errorf("copy records: %w", context.DeadlineExceeded), "insert records"),
			want: http.StatusInternalServerError,
		},
		{
			name: "aborted by deadline",
			err:  core.Wrap(core.ErrAborted, context.DeadlineExceeded, "upload aborted before storing"),
			want: http.StatusGatewayTimeout,
		},
		{
			name: "unkinded deadline",
			err:  fmt.Errorf("list: %w", context.DeadlineExceeded),
			want: http.StatusGatewayTimeout,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
