package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRejectsMalformedURL(t *testing.T) {
	cfg := Config{URL: "not-a-redis-url", ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 5}

	client, err := cfg.New()
	assert.Error(t, err)
	assert.Nil(t, client)
}
