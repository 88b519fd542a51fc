package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolOptionsDefaults(t *testing.T) {
	p := PoolOptions{}.withDefaults()
	assert.Equal(t, defaultMaxOpenConns, p.MaxOpenConns)
	assert.Equal(t, defaultMaxIdleConns, p.MaxIdleConns)
	assert.Equal(t, defaultConnMaxLifetime, p.ConnMaxLifetime)
}

func TestPoolOptionsExplicitValuesKept(t *testing.T) {
	p := PoolOptions{
		MaxOpenConns:    50,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
	}.withDefaults()
	assert.Equal(t, 50, p.MaxOpenConns)
	assert.Equal(t, 10, p.MaxIdleConns)
	assert.Equal(t, time.Hour, p.ConnMaxLifetime)
}

func TestPoolOptionsIdleCappedByOpen(t *testing.T) {
	p := PoolOptions{MaxOpenConns: 5, MaxIdleConns: 50}.withDefaults()
	assert.Equal(t, 5, p.MaxOpenConns)
	assert.Equal(t, 5, p.MaxIdleConns)
}
