// SPDX-License-Identifier: GPL-3.0-or-later

package oracle

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/rbmk-project/qa/jafar"
	"github.com/rbmk-project/qa/netipx"
	"gopkg.in/yaml.v3"
)

// fileV1 is the YAML representation of a scenario table.
type fileV1 struct {
	Endpoints []string     `yaml:"endpoints"`
	Scenarios []scenarioV1 `yaml:"scenarios"`
}

type scenarioV1 struct {
	Name   string   `yaml:"name"`
	Rules  []ruleV1 `yaml:"rules"`
	Expect expectV1 `yaml:"expect"`
}

// ruleV1 is a rule. Exactly one of Target, Endpoints and SNI must be set.
type ruleV1 struct {
	Kind      string `yaml:"kind"`
	Target    string `yaml:"target"`
	Endpoints string `yaml:"endpoints"`
	SNI       string `yaml:"sni"`
}

type expectV1 struct {
	Verdicts   yaml.Node `yaml:"verdicts"`
	TCPConnect policyV1  `yaml:"tcp_connect"`
	Requests   policyV1  `yaml:"requests"`
}

type policyV1 struct {
	Failure string `yaml:"failure"`
	Match   string `yaml:"match"`
	URL     string `yaml:"url"`
}

// LoadFile loads a scenario table from a YAML file.
//
// The endpoints argument is used when the file does not
// contain its own "endpoints" list.
func LoadFile(path string, endpoints netipx.AddrList) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	scenarios, err := Parse(data, endpoints)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// Parse parses a scenario table from YAML. See [LoadFile].
//
// A table looks like this:
//
//	endpoints:
//	  - 149.154.175.50
//	scenarios:
//	  - name: tcp_blocking_some
//	    rules:
//	      - kind: ip_reset
//	        endpoints: first
//	    expect:
//	      verdicts:
//	        telegram_tcp_blocking: false
//	        telegram_web_failure: null
//	      tcp_connect:
//	        failure: connection_refused
//	        match: first_endpoint
//	      requests:
//	        failure: connection_reset
//	        url: https://web.telegram.org/
//
// Rules use "target" for a literal address, keyword or hex pattern,
// "endpoints" ("all" or "first") to emit a rule per endpoint, or "sni"
// to reset the TLS server_name extension of a hostname.
//
// Policies use either "match" ("none", "endpoints" or "first_endpoint")
// or "url" to select entries. The "url" selector is only valid for
// "requests" and a "failure" requires a selector other than "none".
func Parse(data []byte, endpoints netipx.AddrList) ([]*Scenario, error) {
	var file fileV1
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScenario, err.Error())
	}
	if len(file.Endpoints) > 0 {
		list, err := netipx.ParseAddrList(file.Endpoints...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidScenario, err.Error())
		}
		endpoints = list
	}
	if len(file.Scenarios) <= 0 {
		return nil, fmt.Errorf("%w: no scenarios", ErrInvalidScenario)
	}
	var scenarios []*Scenario
	for _, sv := range file.Scenarios {
		s, err := sv.build(endpoints)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidScenario, sv.Name, err.Error())
		}
		scenarios = append(scenarios, s)
	}
	if err := ValidateTable(scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (sv *scenarioV1) build(endpoints netipx.AddrList) (*Scenario, error) {
	s := &Scenario{Name: sv.Name}
	for _, rv := range sv.Rules {
		rules, err := rv.build(endpoints)
		if err != nil {
			return nil, err
		}
		s.Rules = append(s.Rules, rules...)
	}
	verdicts, err := buildVerdicts(&sv.Expect.Verdicts)
	if err != nil {
		return nil, err
	}
	s.Expect.Verdicts = verdicts
	if s.Expect.TCPConnect, err = sv.Expect.TCPConnect.build(endpoints, false); err != nil {
		return nil, fmt.Errorf("tcp_connect: %w", err)
	}
	if s.Expect.Requests, err = sv.Expect.Requests.build(endpoints, true); err != nil {
		return nil, fmt.Errorf("requests: %w", err)
	}
	return s, nil
}

func selectEndpoints(which string, endpoints netipx.AddrList) (netipx.AddrList, error) {
	if endpoints.Len() <= 0 {
		return netipx.AddrList{}, fmt.Errorf("no endpoints defined")
	}
	switch which {
	case "all":
		return endpoints, nil
	case "first":
		return endpoints.Head(1), nil
	default:
		return netipx.AddrList{}, fmt.Errorf("unknown endpoints selector: %q", which)
	}
}

func (rv *ruleV1) build(endpoints netipx.AddrList) ([]jafar.Rule, error) {
	var numSet int
	for _, value := range []string{rv.Target, rv.Endpoints, rv.SNI} {
		if value != "" {
			numSet++
		}
	}
	if numSet != 1 {
		return nil, fmt.Errorf("%q rule: exactly one of target, endpoints and sni must be set", rv.Kind)
	}
	switch {
	case rv.Endpoints != "" && rv.Kind == jafar.KindIPReset:
		addrs, err := selectEndpoints(rv.Endpoints, endpoints)
		if err != nil {
			return nil, err
		}
		return jafar.ResetIPs(addrs), nil

	case rv.Endpoints != "" && rv.Kind == jafar.KindKeywordReset:
		addrs, err := selectEndpoints(rv.Endpoints, endpoints)
		if err != nil {
			return nil, err
		}
		return jafar.ResetKeywords(addrs), nil

	case rv.Target != "" && rv.Kind == jafar.KindIPReset:
		addr, err := netip.ParseAddr(rv.Target)
		if err != nil {
			return nil, err
		}
		return []jafar.Rule{jafar.IPReset{Addr: addr}}, nil

	case rv.Target != "" && rv.Kind == jafar.KindKeywordReset:
		return []jafar.Rule{jafar.KeywordReset{Keyword: rv.Target}}, nil

	case rv.Target != "" && rv.Kind == jafar.KindKeywordResetHex:
		pattern, err := jafar.ParseHexPattern(rv.Target)
		if err != nil {
			return nil, err
		}
		return []jafar.Rule{jafar.KeywordResetHex{Pattern: pattern}}, nil

	case rv.SNI != "" && rv.Kind == jafar.KindKeywordResetHex:
		return []jafar.Rule{jafar.ResetSNI(rv.SNI)}, nil

	default:
		return nil, fmt.Errorf("invalid %q rule", rv.Kind)
	}
}

// buildVerdicts walks the mapping node to preserve the keys order.
func buildVerdicts(node *yaml.Node) ([]Verdict, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("verdicts: expected a mapping")
	}
	var verdicts []Verdict
	for idx := 0; idx+1 < len(node.Content); idx += 2 {
		key, value := node.Content[idx], node.Content[idx+1]
		var decoded any
		if err := value.Decode(&decoded); err != nil {
			return nil, err
		}
		switch decoded.(type) {
		case nil, bool, string:
		default:
			return nil, fmt.Errorf("verdicts: %s: expected bool, string or null", key.Value)
		}
		verdicts = append(verdicts, Verdict{Key: key.Value, Value: decoded})
	}
	return verdicts, nil
}

// build builds the policy. The url selector only applies to
// "requests" entries, so allowURL is false for "tcp_connect".
func (pv *policyV1) build(endpoints netipx.AddrList, allowURL bool) (EntryPolicy, error) {
	policy := EntryPolicy{Failure: pv.Failure}
	switch {
	case pv.URL != "" && !allowURL:
		return EntryPolicy{}, fmt.Errorf("url matcher not applicable")
	case pv.URL != "" && pv.Match != "":
		return EntryPolicy{}, fmt.Errorf("both url and match are set")
	case pv.URL != "":
		policy.Match = MatchURL{URL: pv.URL}
	case pv.Match == "" || pv.Match == "none":
		if pv.Failure != "" {
			return EntryPolicy{}, fmt.Errorf("failure %q without matcher", pv.Failure)
		}
	case pv.Match == "endpoints":
		addrs, err := selectEndpoints("all", endpoints)
		if err != nil {
			return EntryPolicy{}, err
		}
		policy.Match = MatchEndpoints{Endpoints: addrs}
	case pv.Match == "first_endpoint":
		addrs, err := selectEndpoints("first", endpoints)
		if err != nil {
			return EntryPolicy{}, err
		}
		policy.Match = MatchEndpoints{Endpoints: addrs}
	default:
		return EntryPolicy{}, fmt.Errorf("unknown matcher: %q", pv.Match)
	}
	return policy, nil
}
