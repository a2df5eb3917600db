// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package measurement loads and validates measurement artifacts.

An artifact is the JSON document a measurement tool writes after running
an experiment. We only consume its "test_keys" section. [Load] parses the
artifact and [Validate] checks the minimal schema we depend on, returning
[*TestKeys] whose per-entry fields are already typed.

Validate does not check experiment-specific verdict fields, which remain
available as raw JSON through [*TestKeys.Get].

Errors are reported as [*LoadError] and [*ValidationError]; the latter
names the first offending field path (e.g., "test_keys.tcp_connect[2].port").
*/
package measurement
