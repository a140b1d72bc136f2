package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///tmp/studio":              "file",
		"./data":                          "file",
		"postgres://u:p@localhost/studio": "postgres",
		"postgresql://localhost/studio":   "postgresql",
		"redis://localhost:6379/0":        "redis",
		"mongodb://localhost":             "file",
	}

	for url, want := range tests {
		assert.Equal(t, want, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	p, err := NewPersistence(context.Background(), slog.New(slog.DiscardHandler), "file://"+t.TempDir())
	require.NoError(t, err)

	assert.IsType(t, &file.Persistence{}, p)
}

func TestNewEventBus(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	bus, err := NewEventBus("gochannel", nil, logger)
	require.NoError(t, err)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", nil, logger)
	assert.Error(t, err)

	_, err = NewEventBus("rabbitmq", nil, logger)
	assert.Error(t, err)
}
