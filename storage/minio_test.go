package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("connection refused")))
	assert.True(t, IsNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNotFound(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", minio.ErrorResponse{Code: "NoSuchKey"})))
	assert.False(t, IsNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}
