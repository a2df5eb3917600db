// SPDX-License-Identifier: GPL-3.0-or-later

package measurement

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Validate checks that record contains a well-formed "test_keys"
// section and returns it. The checks run in this order:
//
// 1. "test_keys" is an object;
//
// 2. "requests" is a non-empty array of objects, each containing a
// null-or-string "failure", a "request" object with a string "url",
// and a "response" object;
//
// 3. "tcp_connect" is a non-empty array of objects, each containing a
// string "ip", an integer "port", and a "status" object containing a
// null-or-string "failure" and a boolean "success".
//
// Failure strings must not be empty. The first violation is
// returned as a [*ValidationError].
func Validate(record gjson.Result) (*TestKeys, error) {
	tkv := record.Get("test_keys")
	if err := requireObject("test_keys", tkv); err != nil {
		return nil, err
	}
	tk := &TestKeys{Raw: tkv}

	requests := tkv.Get("requests")
	if err := requireNonEmptyArray("test_keys.requests", requests); err != nil {
		return nil, err
	}
	for idx, entry := range requests.Array() {
		req, err := validateRequest(fmt.Sprintf("test_keys.requests[%d]", idx), entry)
		if err != nil {
			return nil, err
		}
		tk.Requests = append(tk.Requests, req)
	}

	connects := tkv.Get("tcp_connect")
	if err := requireNonEmptyArray("test_keys.tcp_connect", connects); err != nil {
		return nil, err
	}
	for idx, entry := range connects.Array() {
		tc, err := validateTCPConnect(fmt.Sprintf("test_keys.tcp_connect[%d]", idx), entry)
		if err != nil {
			return nil, err
		}
		tk.TCPConnect = append(tk.TCPConnect, tc)
	}

	return tk, nil
}

func validateRequest(path string, entry gjson.Result) (Request, error) {
	if err := requireObject(path, entry); err != nil {
		return Request{}, err
	}
	failure, err := requireFailure(path+".failure", entry.Get("failure"))
	if err != nil {
		return Request{}, err
	}
	request := entry.Get("request")
	if err := requireObject(path+".request", request); err != nil {
		return Request{}, err
	}
	if err := requireObject(path+".response", entry.Get("response")); err != nil {
		return Request{}, err
	}
	url := request.Get("url")
	if url.Type != gjson.String {
		return Request{}, newValidationError(path+".request.url", "expected a string", url)
	}
	return Request{URL: url.String(), Failure: failure, Raw: entry}, nil
}

func validateTCPConnect(path string, entry gjson.Result) (TCPConnect, error) {
	if err := requireObject(path, entry); err != nil {
		return TCPConnect{}, err
	}
	ip := entry.Get("ip")
	if ip.Type != gjson.String {
		return TCPConnect{}, newValidationError(path+".ip", "expected a string", ip)
	}
	port, err := requireInteger(path+".port", entry.Get("port"))
	if err != nil {
		return TCPConnect{}, err
	}
	status := entry.Get("status")
	if err := requireObject(path+".status", status); err != nil {
		return TCPConnect{}, err
	}
	failure, err := requireFailure(path+".status.failure", status.Get("failure"))
	if err != nil {
		return TCPConnect{}, err
	}
	success := status.Get("success")
	if !success.IsBool() {
		return TCPConnect{}, newValidationError(path+".status.success", "expected a boolean", success)
	}
	return TCPConnect{
		IP:      ip.String(),
		Port:    port,
		Success: success.Bool(),
		Failure: failure,
	}, nil
}

func newValidationError(path, message string, value gjson.Result) *ValidationError {
	actual := "<missing>"
	if value.Exists() {
		actual = value.Raw
	}
	return &ValidationError{Path: path, Message: message, Actual: actual}
}

func requireObject(path string, value gjson.Result) error {
	if !value.IsObject() {
		return newValidationError(path, "expected an object", value)
	}
	return nil
}

func requireNonEmptyArray(path string, value gjson.Result) error {
	if !value.IsArray() {
		return newValidationError(path, "expected an array", value)
	}
	if len(value.Array()) <= 0 {
		return newValidationError(path, "expected a non-empty array", value)
	}
	return nil
}

// requireFailure requires value to be null or a non-empty string. A
// missing value is a violation.
func requireFailure(path string, value gjson.Result) (*string, error) {
	switch {
	case value.Exists() && value.Type == gjson.Null:
		return nil, nil
	case value.Type == gjson.String && value.String() != "":
		failure := value.String()
		return &failure, nil
	default:
		return nil, newValidationError(path, "expected null or a non-empty string", value)
	}
}

func requireInteger(path string, value gjson.Result) (int64, error) {
	if value.Type != gjson.Number {
		return 0, newValidationError(path, "expected an integer", value)
	}
	number, err := strconv.ParseInt(value.Raw, 10, 64)
	if err != nil {
		return 0, newValidationError(path, "expected an integer", value)
	}
	return number, nil
}
