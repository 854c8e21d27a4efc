package datamart

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name       string
		err        error
		connection bool
	}{
		{"dial refused", dialErr, true},
		{"wrapped dial refused", fmt.Errorf("exec failed: %w", dialErr), true},
		{"bad driver conn", driver.ErrBadConn, true},
		{"reset by peer", syscall.ECONNRESET, true},
		{"statement error", errors.New("syntax error near SELECT"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.connection, errors.Is(got, ErrConnection))
			if !tt.connection {
				assert.Equal(t, tt.err, got)
			}
		})
	}
}

func TestClassifyPassesThroughNilAndAlreadyClassified(t *testing.T) {
	assert.NoError(t, Classify(nil))

	already := fmt.Errorf("%w: ping failed", ErrConnection)
	assert.Equal(t, already, Classify(already))
}
