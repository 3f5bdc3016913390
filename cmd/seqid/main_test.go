package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/paraglidehq/seqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with env as the process environment. The dotenv file
// is switched off unless args set one.
func run(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--dotenv-file="}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// parseGenerated returns the ids of "index: id" lines.
func parseGenerated(t *testing.T, out string, f seqid.Format) []seqid.ID {
	t.Helper()
	var ids []seqid.ID
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "It took") {
			continue
		}
		idx, s, ok := strings.Cut(line, ": ")
		require.True(t, ok, "line %q", line)
		n, err := strconv.Atoi(idx)
		require.NoError(t, err)
		assert.Equal(t, i, n)
		id, err := seqid.ParseAs(f, s)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func defaultLayout(t *testing.T) seqid.Layout {
	t.Helper()
	l, err := seqid.DefaultConfig().Layout()
	require.NoError(t, err)
	return l
}

func TestGenerate(t *testing.T) {
	out, err := run(t, nil, "generate", "-n", "5", "--node-id", "3")
	require.NoError(t, err)

	ids := parseGenerated(t, out, seqid.FormatDecimal)
	require.Len(t, ids, 5)
	l := defaultLayout(t)
	for i, id := range ids {
		assert.Equal(t, uint64(3), l.DecodeNodeID(id))
		if i > 0 {
			assert.Greater(t, id, ids[i-1])
		}
	}
}

func TestGenerateDebug(t *testing.T) {
	out, err := run(t, nil, "generate", "-n", "3", "--debug")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[3], "It took "), lines[3])
	assert.True(t, strings.HasSuffix(lines[3], " nanoseconds"), lines[3])
	assert.Len(t, parseGenerated(t, out, seqid.FormatDecimal), 3)
}

func TestGenerateFormat(t *testing.T) {
	out, err := run(t, nil, "generate", "-n", "2", "--format", "base58")
	require.NoError(t, err)
	ids := parseGenerated(t, out, seqid.FormatBase58)
	require.Len(t, ids, 2)
	assert.Greater(t, ids[1], ids[0])

	_, err = run(t, nil, "generate", "--format", "base2")
	assert.Error(t, err)
}

func TestGenerateInvalidConfig(t *testing.T) {
	_, err := run(t, nil, "generate", "--node-id", "512")
	require.ErrorIs(t, err, seqid.ErrInvalidConfig)

	var cerr *seqid.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "node_id", cerr.Param)

	_, err = run(t, nil, "generate", "--node-id-bits", "40", "--sequence-bits", "20", "--unused-bits", "10")
	assert.ErrorIs(t, err, seqid.ErrInvalidConfig)
}

func TestDecode(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l, err := seqid.NewLayout(1, 10, 12, 3)
	require.NoError(t, err)
	id := l.Encode(1000, 5, 7)

	out, err := run(t, nil, "decode", id.String(), l.Encode(1001, 6, 0).Format(seqid.FormatDecimal),
		"--custom-epoch", epoch.Format(time.RFC3339),
		"--unused-bits", "1", "--node-id-bits", "10", "--sequence-bits", "12", "--micros-ten-power", "3",
	)
	require.NoError(t, err)

	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], "tick:     1000\n")
	assert.Contains(t, blocks[0], "time:     2024-01-01T00:00:01Z\n")
	assert.Contains(t, blocks[0], "node_id:  5\n")
	assert.Contains(t, blocks[0], "sequence: 7")
	assert.Contains(t, blocks[1], "time:     2024-01-01T00:00:01.001Z\n")
	assert.Contains(t, blocks[1], "node_id:  6\n")
}

func TestDecodeErrors(t *testing.T) {
	_, err := run(t, nil, "decode")
	assert.Error(t, err)

	_, err = run(t, nil, "decode", "not-a-number")
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	out, err := run(t, nil, "layout")
	require.NoError(t, err)
	assert.Contains(t, out, "timestamp_bits:   44\n")
	assert.Contains(t, out, "tick:             100µs\n")
	assert.Contains(t, out, "epoch:            2020-01-01T00:00:00Z\n")

	out, err = run(t, nil, "layout", "--unused-bits", "1", "--node-id-bits", "10", "--sequence-bits", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "timestamp_bits:   41\n")
	assert.Contains(t, out, "ids_per_tick:     4096\n")
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "seqid.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("node_id: 3\n"), 0o644))
	envPath := filepath.Join(dir, "seqid.env")
	require.NoError(t, os.WriteFile(envPath, []byte("NODE_ID=4\n"), 0o644))
	missingPath := filepath.Join(dir, "missing.env")

	tests := []struct {
		name string
		env  map[string]string
		args []string
		want uint64
	}{
		{"Defaults", nil, nil, 0},
		{"ConfigFile", nil, []string{"--config", yamlPath}, 3},
		{"DotEnv", nil, []string{"--config", yamlPath, "--dotenv-file", envPath}, 4},
		{"MissingDotEnvSkipped", nil, []string{"--config", yamlPath, "--dotenv-file", missingPath}, 3},
		{"Environment", map[string]string{"SEQID_NODE_ID": "5"}, []string{"--config", yamlPath, "--dotenv-file", envPath}, 5},
		{"Flag", map[string]string{"SEQID_NODE_ID": "5"}, []string{"--config", yamlPath, "--dotenv-file", envPath, "--node-id", "6"}, 6},
	}
	l := defaultLayout(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.env, append([]string{"generate"}, tt.args...)...)
			require.NoError(t, err)
			ids := parseGenerated(t, out, seqid.FormatDecimal)
			require.Len(t, ids, 1)
			assert.Equal(t, tt.want, l.DecodeNodeID(ids[0]))
		})
	}
}
