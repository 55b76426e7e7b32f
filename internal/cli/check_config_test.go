package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"riddle-hunt-service/internal/domain"
)

func TestCheckConfigAcceptsShippedConfig(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config", "--config", "../../config/config.yaml"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "config ok: 10 keys")
}

func TestCheckConfigRejectsInvalidCatalog(t *testing.T) {
	data, err := os.ReadFile("../../config/config.yaml")
	require.NoError(t, err)
	broken := strings.Replace(string(data), "GABI2025HUNT27", "GABI2025HUNT20", 1)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check-config", "--config", path})

	err = cmd.Execute()
	require.ErrorIs(t, err, domain.ErrConfigurationInvalid)
}
