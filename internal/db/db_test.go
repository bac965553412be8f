package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPool_RequiresURL(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestNewPool_RejectsMalformedURL(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{URL: "postgres://%zz"})
	assert.ErrorContains(t, err, "unable to parse DATABASE_URL")
}
