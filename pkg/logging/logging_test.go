package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	buf := &bytes.Buffer{}
	setup(buf, "warn", "json")

	log.Info().Msg("dropped")
	log.Warn().Str("keyword", "두쫀쿠").Msg("kept")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "두쫀쿠", line["keyword"])
}

func TestSetupUnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setup(&bytes.Buffer{}, "loud", "console")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
