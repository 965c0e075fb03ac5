package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/bookflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChat_Text(t *testing.T) {
	var out bytes.Buffer
	err := RunChat(context.Background(), ChatOptions{
		Config: config.Default(),
		In:     strings.NewReader("añade 2 copias de Dune\n/salir\nbusca Hobbit\n"),
		Out:    &out,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "asistente de la librería")
	assert.Contains(t, text, "[carrito] 2 x Dune")
	assert.NotContains(t, text, "El Hobbit", "nothing after the exit command runs")
}

func TestRunChat_JSON(t *testing.T) {
	var out bytes.Buffer
	err := RunChat(context.Background(), ChatOptions{
		Config: config.Default(),
		UserID: "bot",
		JSON:   true,
		In:     strings.NewReader(`{"message":"busca Neuromante"}` + "\n"),
		Out:    &out,
	})
	require.NoError(t, err)

	var msg struct {
		Text string `json:"text"`
	}
	line, _, _ := strings.Cut(out.String(), "\n")
	require.NoError(t, json.Unmarshal([]byte(line), &msg))
	assert.Contains(t, msg.Text, "Neuromante")
}

func TestRunMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "shop.db")}

	var out bytes.Buffer
	require.NoError(t, RunMigrate(ctx, cfg, MigrateOptions{Seed: true}, &out))
	assert.Contains(t, out.String(), "Seeded 12 books")

	out.Reset()
	require.NoError(t, RunMigrate(ctx, cfg, MigrateOptions{Down: true}, &out))
	assert.Contains(t, out.String(), "Reverted")
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(nil))
	assert.Error(t, handleExecutionError(assert.AnError))
}
