package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{APIKey: "key", APISecret: "secret"}.Validate())
	assert.ErrorIs(t, Credentials{APIKey: "key"}.Validate(), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{APISecret: "secret"}.Validate(), ErrInvalidCredentials)
}

func TestCredentials_NeverPrintSecret(t *testing.T) {
	creds := Credentials{
		APIKey:    "vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zv",
		APISecret: "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP",
	}

	t.Run("fmt verbs", func(t *testing.T) {
		for _, verb := range []string{"%v", "%+v", "%#v", "%s"} {
			out := fmt.Sprintf(verb, creds)
			assert.NotContains(t, out, creds.APISecret, verb)
			assert.NotContains(t, out, creds.APIKey, verb)
			assert.Contains(t, out, "vmPU****", verb)
		}
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(creds)
		require.NoError(t, err)
		assert.NotContains(t, string(data), creds.APISecret)
		assert.Contains(t, string(data), redacted)
	})

	t.Run("zerolog", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		logger.Info().Object("credentials", creds).Msg("configured")

		assert.NotContains(t, buf.String(), creds.APISecret)
		assert.Contains(t, buf.String(), `"has_secret":true`)
	})
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey(""))
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "abcd****", MaskKey("abcdefghijkl"))
}
