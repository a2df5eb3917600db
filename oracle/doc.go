// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package oracle checks measurements against censorship scenarios.

A [*Scenario] is data: the jafar rules reproducing an interference
condition and the [Expectation] the resulting measurement must satisfy.
The [*Oracle] is a single evaluator driven by such a table.

# Expectations

An expectation contains the expected verdicts (top-level test keys such
as "telegram_tcp_blocking") and one [EntryPolicy] for "tcp_connect" and
one for "requests". A policy selects entries with a [Matcher] and requires
selected entries to fail with a given failure and all the other entries
to have a null failure.

Address matching compares the textual IP address with the entry IP or with
the hostname of the request URL. We never resolve hostnames.

# Errors

[*Oracle.Check] returns the first violation as a [*SemanticError]
naming the scenario, the field path, and the expected and actual values.

# Files

Scenario tables may also be loaded from YAML using [LoadFile].
*/
package oracle
