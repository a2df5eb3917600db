// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package jafar drives the jafar censorship simulator.

Jafar installs iptables rules that interfere with the traffic generated
by a measurement tool running as an unprivileged user, and then runs the
tool. This package models the rules and runs jafar.

# Rules

A [Rule] is one of [IPReset], [KeywordReset] or [KeywordResetHex]. Each
rule carries a typed payload and is serialized to jafar's command line
flags only by [Args], so callers never deal with flag syntax.

# Invoker

The [*Invoker] removes any stale artifact, composes the inner command
line running the measurement tool, and runs jafar. It emits structured
logs via the [log/slog] package when its Logger field is set.
*/
package jafar
