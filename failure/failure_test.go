// SPDX-License-Identifier: GPL-3.0-or-later

package failure

import (
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/rbmk-project/common/errclass"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	// testcase is a test case implemented by this function.
	type testcase struct {
		input  error
		expect *string
	}

	ptr := func(s string) *string { return &s }

	// start with a test case for the nil error
	var tests = []testcase{{
		input:  nil,
		expect: nil,
	}}

	// add tests for cases we can test with errors.Is
	for key, value := range errorsIsMap {
		tests = append(tests, testcase{
			input:  key,
			expect: ptr(value),
		})
	}

	// add tests for cases we can test with string suffix matching
	for suffix, failure := range stringSuffixMap {
		tests = append(tests, testcase{
			input:  errors.New("lookup example.com: " + suffix),
			expect: ptr(failure),
		})
	}

	// make sure we unwrap the errors returned by the net package
	tests = append(tests, testcase{
		input: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: os.NewSyscallError("connect", errECONNREFUSED),
		},
		expect: ptr(ConnectionRefused),
	})

	// add test for unknown error
	tests = append(tests, testcase{
		input:  errors.New("antani"),
		expect: ptr("unknown_failure: antani"),
	})

	// run all tests
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.input), func(t *testing.T) {
			got := New(tt.input)
			assert.Equal(t, String(tt.expect), String(got))
		})
	}
}

func TestClass(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		assert.Equal(t, "", Class(""))
	})

	t.Run("known failures", func(t *testing.T) {
		for failure, class := range classMap {
			assert.Equal(t, class, Class(failure), failure)
		}
		assert.Equal(t, errclass.ECONNREFUSED, Class(ConnectionRefused))
		assert.Equal(t, errclass.EEOF, Class(EOFError))
	})

	t.Run("unknown failure", func(t *testing.T) {
		assert.Equal(t, errclass.EGENERIC, Class("unknown_failure: antani"))
	})
}

func TestEqual(t *testing.T) {
	a, b, c := "connection_reset", "connection_reset", "eof_error"
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(&a, &b))
	assert.False(t, Equal(&a, &c))
	assert.False(t, Equal(&a, nil))
	assert.False(t, Equal(nil, &c))
}

func TestString(t *testing.T) {
	s := ConnectionReset
	assert.Equal(t, "null", String(nil))
	assert.Equal(t, "connection_reset", String(&s))
}
