package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(func(...zap.Option) (*zap.Logger, error) {
		return nil, errors.New("cannot open sink")
	})
	assert.Error(t, err)
	assert.Nil(t, logger)

	logger, err = newLogger(func(...zap.Option) (*zap.Logger, error) { return nil, nil })
	assert.Error(t, err)
	assert.Nil(t, logger)

	logger, err = newLogger(zap.NewProduction)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestBuildVectorStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.txt")
	require.NoError(t, os.WriteFile(path, []byte("A queue is FIFO.\n\nA stack is LIFO.\n"), 0o600))

	cfg := config.Default()
	cfg.Provider = config.ProviderEcho
	cfg.Corpus = []string{"Quicksort partitions around a pivot."}
	cfg.CorpusFile = path

	store, err := buildVectorStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	passages, err := store.Retrieve(context.Background(), "What is a stack?", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A stack is LIFO."}, passages)
}

func TestBuildVectorStore_MissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderEcho
	cfg.CorpusFile = filepath.Join(t.TempDir(), "missing.txt")

	_, err := buildVectorStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
