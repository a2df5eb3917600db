// SPDX-License-Identifier: GPL-3.0-or-later

package measurement

import (
	"bytes"
	"os"

	"github.com/tidwall/gjson"
)

// Load reads and parses the artifact at path.
//
// A missing, empty or syntactically invalid artifact is a [*LoadError].
func Load(path string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, &LoadError{Path: path, Message: "cannot read artifact", Cause: err}
	}
	if len(bytes.TrimSpace(data)) <= 0 {
		return gjson.Result{}, &LoadError{Path: path, Message: "empty artifact"}
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, &LoadError{Path: path, Message: "invalid JSON"}
	}
	return gjson.ParseBytes(data), nil
}

// LoadAndValidate combines [Load] and [Validate].
func LoadAndValidate(path string) (*TestKeys, error) {
	record, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Validate(record)
}
