// SPDX-License-Identifier: GPL-3.0-or-later

package telegram_test

import (
	"testing"

	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/oracle"
	"github.com/rbmk-project/qa/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios := telegram.Scenarios()

	t.Run("table is valid", func(t *testing.T) {
		require.NoError(t, oracle.ValidateTable(scenarios))
	})

	t.Run("execution order", func(t *testing.T) {
		var names []string
		for _, s := range scenarios {
			names = append(names, s.Name)
		}
		expect := []string{
			telegram.TCPBlockingAll,
			telegram.TCPBlockingSome,
			telegram.HTTPBlockingAll,
			telegram.HTTPBlockingSome,
			telegram.WebFailureHTTP,
			telegram.WebFailureHTTPS,
		}
		assert.Equal(t, expect, names)
	})

	t.Run("jafar arguments", func(t *testing.T) {
		type testcase struct {
			name   string
			expect []string
		}

		tests := []testcase{{
			name: telegram.TCPBlockingAll,
			expect: []string{
				"-iptables-reset-ip", "149.154.175.50",
				"-iptables-reset-ip", "149.154.167.51",
				"-iptables-reset-ip", "149.154.175.100",
				"-iptables-reset-ip", "149.154.167.91",
				"-iptables-reset-ip", "149.154.171.5",
			},
		}, {
			name:   telegram.TCPBlockingSome,
			expect: []string{"-iptables-reset-ip", "149.154.175.50"},
		}, {
			name: telegram.HTTPBlockingAll,
			expect: []string{
				"-iptables-reset-keyword", "149.154.175.50",
				"-iptables-reset-keyword", "149.154.167.51",
				"-iptables-reset-keyword", "149.154.175.100",
				"-iptables-reset-keyword", "149.154.167.91",
				"-iptables-reset-keyword", "149.154.171.5",
			},
		}, {
			name:   telegram.HTTPBlockingSome,
			expect: []string{"-iptables-reset-keyword", "149.154.175.50"},
		}, {
			name:   telegram.WebFailureHTTP,
			expect: []string{"-iptables-reset-keyword", "Host: web.telegram.org"},
		}, {
			name: telegram.WebFailureHTTPS,
			expect: []string{
				"-iptables-reset-keyword-hex",
				"|00 00 00 15 00 13 00 00 10 77 65 62 2e 74 65 6c 65 67 72 61 6d 2e 6f 72 67|",
			},
		}}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				selected, err := oracle.Select(scenarios, tt.name)
				require.NoError(t, err)
				require.Len(t, selected, 1)
				assert.Equal(t, tt.expect, jafar.Args(selected[0].Rules))
			})
		}
	})

	t.Run("returns a fresh table", func(t *testing.T) {
		other := telegram.Scenarios()
		other[0].Name = "mutated"
		assert.Equal(t, telegram.TCPBlockingAll, telegram.Scenarios()[0].Name)
	})
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, 5, telegram.Endpoints.Len())
	for _, addr := range telegram.Endpoints.Addrs() {
		assert.True(t, addr.Is4())
	}
}
