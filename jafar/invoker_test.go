// SPDX-License-Identifier: GPL-3.0-or-later

package jafar

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoker(t *testing.T) *Invoker {
	output := filepath.Join(t.TempDir(), "telegram.jsonl")
	return NewInvoker("/usr/local/bin/miniooni", "telegram", output, "alice")
}

func TestInvoker_MainCommand(t *testing.T) {
	inv := NewInvoker("/opt/ooni probe/miniooni", "telegram", "telegram.jsonl", "alice")
	words, err := shellquote.Split(inv.MainCommand())
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/ooni probe/miniooni", "-gno", "telegram.jsonl", "telegram"}, words)
}

func TestInvoker_Argv(t *testing.T) {
	inv := NewInvoker("./miniooni", "telegram", "telegram.jsonl", "alice")
	rules := []Rule{IPReset{Addr: netip.MustParseAddr("149.154.175.50")}}
	expect := []string{
		"./jafar",
		"-main-command", "./miniooni -gno telegram.jsonl telegram",
		"-main-user", "alice",
		"-iptables-reset-ip", "149.154.175.50",
	}
	assert.Equal(t, expect, inv.Argv(rules))
}

func TestInvoker_RemoveOutput(t *testing.T) {
	t.Run("missing artifact is not an error", func(t *testing.T) {
		inv := newTestInvoker(t)
		assert.NoError(t, inv.RemoveOutput())
	})

	t.Run("stale artifact is removed", func(t *testing.T) {
		inv := newTestInvoker(t)
		require.NoError(t, os.WriteFile(inv.Output, []byte("{}"), 0600))
		require.NoError(t, inv.RemoveOutput())
		assert.NoFileExists(t, inv.Output)
	})

	t.Run("other errors are reported", func(t *testing.T) {
		inv := newTestInvoker(t)
		require.NoError(t, os.MkdirAll(filepath.Join(inv.Output, "child"), 0700))
		assert.Error(t, inv.RemoveOutput())
	})
}

func TestInvoker_Run(t *testing.T) {
	t.Run("failing executable is not an error", func(t *testing.T) {
		inv := newTestInvoker(t)
		inv.Executable = filepath.Join(t.TempDir(), "nonexistent")
		require.NoError(t, os.WriteFile(inv.Output, []byte("{}"), 0600))

		var stdout, logs bytes.Buffer
		inv.Stdout = &stdout
		inv.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
		inv.TimeNow = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

		err := inv.Run(context.Background(), []Rule{KeywordReset{Keyword: "149.154.175.50"}})
		require.NoError(t, err)
		assert.NoFileExists(t, inv.Output)
		assert.True(t, strings.HasPrefix(stdout.String(), "+ "+shellquote.Join(inv.Executable, "-main-command")))
		assert.Contains(t, stdout.String(), "-iptables-reset-keyword 149.154.175.50")

		var messages []string
		for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
			messages = append(messages, entry["msg"].(string))
			if entry["msg"] == "execDone" {
				assert.Equal(t, "WARN", entry["level"])
				assert.NotEmpty(t, entry["errClass"])
				assert.Equal(t, float64(-1), entry["exitCode"])
			}
		}
		assert.Equal(t, []string{"execStart", "execDone"}, messages)
	})

	t.Run("successful executable", func(t *testing.T) {
		truePath, err := exec.LookPath("true")
		if err != nil {
			t.Skip("no true(1) executable on this system")
		}
		inv := newTestInvoker(t)
		inv.Executable = truePath
		inv.Stdout = &bytes.Buffer{}
		assert.NoError(t, inv.Run(context.Background(), nil))
	})

	t.Run("cannot remove stale artifact", func(t *testing.T) {
		inv := newTestInvoker(t)
		require.NoError(t, os.MkdirAll(filepath.Join(inv.Output, "child"), 0700))
		inv.Stdout = &bytes.Buffer{}
		assert.Error(t, inv.Run(context.Background(), nil))
	})
}
