package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 2, 3, 23, 30, 0, 0, time.FixedZone("CET", -2*60*60))
	assert.Equal(t, "payloads/payment/2026/02/04/abc123.json", ArchiveKey("payment", "abc123", at))
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "eu-west-1"}, nil)
	assert.Error(t, err)
}
