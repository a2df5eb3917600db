// SPDX-License-Identifier: GPL-3.0-or-later

package telegramsim

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbmk-project/qa/failure"
	"github.com/rbmk-project/qa/jafar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Run(t *testing.T) {
	t.Run("without interference", func(t *testing.T) {
		m := NewConfig().Run(nil)
		tk := m.TestKeys
		assert.Len(t, tk.TCPConnect, 12)
		assert.Len(t, tk.Requests, 12)
		for _, entry := range tk.TCPConnect {
			assert.Nil(t, entry.Status.Failure)
			assert.True(t, entry.Status.Success)
		}
		for _, entry := range tk.Requests {
			assert.Nil(t, entry.Failure)
			assert.NotNil(t, entry.Response.Body)
		}
		assert.False(t, tk.TelegramTCPBlocking)
		assert.False(t, tk.TelegramHTTPBlocking)
		assert.Nil(t, tk.TelegramWebFailure)
		assert.Equal(t, "ok", tk.TelegramWebStatus)
		assert.Equal(t, "telegram", m.TestName)
	})

	t.Run("IP reset of one POP", func(t *testing.T) {
		cfg := NewConfig()
		addr := cfg.Endpoints.At(0)
		tk := cfg.Run([]jafar.Rule{jafar.IPReset{Addr: addr}}).TestKeys
		for _, entry := range tk.TCPConnect {
			if entry.IP == addr.String() {
				assert.Equal(t, failure.ConnectionRefused, failure.String(entry.Status.Failure))
				assert.False(t, entry.Status.Success)
				continue
			}
			assert.Nil(t, entry.Status.Failure)
		}
		assert.False(t, tk.TelegramTCPBlocking)
		assert.False(t, tk.TelegramHTTPBlocking)
	})

	t.Run("IP reset of all POPs", func(t *testing.T) {
		cfg := NewConfig()
		tk := cfg.Run(jafar.ResetIPs(cfg.Endpoints)).TestKeys
		assert.True(t, tk.TelegramTCPBlocking)
		assert.True(t, tk.TelegramHTTPBlocking)
		assert.Equal(t, "ok", tk.TelegramWebStatus)
	})

	t.Run("keyword reset of all POPs", func(t *testing.T) {
		cfg := NewConfig()
		tk := cfg.Run(jafar.ResetKeywords(cfg.Endpoints)).TestKeys
		for _, entry := range tk.TCPConnect {
			assert.Nil(t, entry.Status.Failure)
		}
		for _, entry := range tk.Requests[:10] {
			assert.Equal(t, failure.ConnectionReset, failure.String(entry.Failure))
		}
		assert.False(t, tk.TelegramTCPBlocking)
		assert.True(t, tk.TelegramHTTPBlocking)
	})

	t.Run("SNI reset", func(t *testing.T) {
		cfg := NewConfig()
		tk := cfg.Run([]jafar.Rule{jafar.ResetSNI(cfg.WebHost)}).TestKeys
		assert.Nil(t, tk.Requests[10].Failure)
		assert.Equal(t, failure.ConnectionReset, failure.String(tk.Requests[11].Failure))
		assert.Equal(t, failure.ConnectionReset, failure.String(tk.TelegramWebFailure))
		assert.Equal(t, "blocked", tk.TelegramWebStatus)
	})

	t.Run("unstable link", func(t *testing.T) {
		cfg := NewConfig()
		cfg.EOFURLs = []string{"http://149.154.167.51:443/"}
		tk := cfg.Run(nil).TestKeys
		var count int
		for _, entry := range tk.Requests {
			if entry.Failure != nil {
				assert.Equal(t, "http://149.154.167.51:443/", entry.Request.URL)
				assert.Equal(t, failure.EOFError, *entry.Failure)
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestClientHello(t *testing.T) {
	hello := clientHello("web.telegram.org")
	assert.True(t, bytes.Contains(hello, jafar.SNIPattern("web.telegram.org")))
	assert.Equal(t, byte(0x16), hello[0])
	assert.Equal(t, len(hello)-5, int(hello[3])<<8|int(hello[4]))
}

func TestMeasurement_WriteFile(t *testing.T) {
	cfg := NewConfig()
	cfg.WebAddr = netip.MustParseAddr("10.0.0.1")
	path := filepath.Join(t.TempDir(), "telegram.jsonl")
	require.NoError(t, cfg.Run(nil).WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	tk := record["test_keys"].(map[string]any)
	assert.Nil(t, tk["telegram_web_failure"])
	assert.Contains(t, tk, "telegram_web_failure")
	entry := tk["tcp_connect"].([]any)[11].(map[string]any)
	assert.Equal(t, "10.0.0.1", entry["ip"])
}
