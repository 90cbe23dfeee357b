package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestG_FallsBackToL(t *testing.T) {
	assert.Same(t, L, G(context.Background()))

	entry := L.WithField("component", "test")
	ctx := WithLogger(context.Background(), entry)
	assert.Same(t, entry, G(ctx))
}

func TestConfigure_JSON(t *testing.T) {
	defer func() {
		require.NoError(t, Configure("info", "text", os.Stderr))
	}()

	var buf bytes.Buffer
	require.NoError(t, Configure("debug", "json", &buf))
	G(context.Background()).WithField("job", "j1").Debug("merge started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "merge started", line["msg"])
	assert.Equal(t, "j1", line["job"])
	assert.Equal(t, "debug", line["level"])
}

func TestConfigure_Errors(t *testing.T) {
	assert.Error(t, Configure("loud", "text", nil))
	assert.Error(t, Configure("info", "xml", nil))
}
