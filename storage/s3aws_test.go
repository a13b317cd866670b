package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Open_StreamsObjectBody(t *testing.T) {
	mock := NewMockS3Client()
	mock.Objects["paper/1.20.4/build-1.jar"] = &MockS3Object{
		Key:     "paper/1.20.4/build-1.jar",
		Content: "jar bytes",
	}

	client := NewWithS3Client(mock, "builds")

	rc, err := client.Open(context.Background(), "paper/1.20.4/build-1.jar")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jar bytes", string(body))
	assert.Equal(t, "builds", mock.LastBucket)
}

func TestClient_Open_TrimsLeadingSlash(t *testing.T) {
	mock := NewMockS3Client()
	mock.Objects["fabric/loader.jar"] = &MockS3Object{Key: "fabric/loader.jar", Content: "x"}

	client := NewWithS3Client(mock, "builds")

	_, err := client.Open(context.Background(), "/fabric/loader.jar")
	require.NoError(t, err)
	assert.Equal(t, "fabric/loader.jar", mock.LastObjectKey)
}

func TestClient_Open_NotFoundReturnsErrNotFound(t *testing.T) {
	mock := NewMockS3Client()
	client := NewWithS3Client(mock, "builds")

	_, err := client.Open(context.Background(), "missing.jar")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_Head_ReturnsContentLength(t *testing.T) {
	mock := NewMockS3Client()
	mock.Objects["velocity/3.3/build.jar"] = &MockS3Object{
		Key:  "velocity/3.3/build.jar",
		Size: 42,
	}

	client := NewWithS3Client(mock, "builds")

	size, err := client.Head(context.Background(), "velocity/3.3/build.jar")
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
}
