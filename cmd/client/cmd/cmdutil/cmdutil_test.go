package cmdutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppFromMissing(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err := AppFrom(cmd)
	assert.ErrorIs(t, err, ErrNoApp)
}

func TestWantJSON(t *testing.T) {
	cmd := &cobra.Command{}
	assert.False(t, WantJSON(cmd), "flag not defined")

	cmd.Flags().Bool("json", false, "")
	assert.False(t, WantJSON(cmd))

	require.NoError(t, cmd.Flags().Set("json", "true"))
	assert.True(t, WantJSON(cmd))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]bool{"stale": true}))
	assert.Equal(t, "{\n  \"stale\": true\n}\n", buf.String())
}
