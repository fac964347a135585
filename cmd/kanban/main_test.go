package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/h0rv/kanban/internal/config"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.WithField("board", "b1").Warn("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "b1", entry["board"])

	_, err = newLogger(config.Config{LogLevel: "loud"}, &buf)
	assert.Error(t, err)
}

func TestPrintBoards(t *testing.T) {
	boards := []domain.Board{
		{ID: "b1", Title: "Roadmap", Description: "Product work"},
		{ID: "b2", Title: "Ops"},
	}

	var table bytes.Buffer
	require.NoError(t, printBoards(&table, boards, false))
	assert.Contains(t, table.String(), "ID")
	assert.Contains(t, table.String(), "Roadmap")
	assert.Contains(t, table.String(), "Product work")

	var out bytes.Buffer
	require.NoError(t, printBoards(&out, boards, true))
	var decoded []domain.Board
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, boards, decoded)
}

func TestLoadConfigFlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KANBAN_API_URL", "http://env:1/api")

	require.NoError(t, loadConfig(rootCmd, nil))
	assert.Equal(t, "http://env:1/api", cfg.APIURL)

	require.NoError(t, rootCmd.PersistentFlags().Set("api-url", "http://flag:2/api"))
	t.Cleanup(func() {
		apiURLFlag = ""
		rootCmd.PersistentFlags().Lookup("api-url").Changed = false
	})
	require.NoError(t, loadConfig(rootCmd, nil))
	assert.Equal(t, "http://flag:2/api", cfg.APIURL)
}
