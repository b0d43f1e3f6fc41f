package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrInvalidSignature is returned when a human-readable ABI line can't be parsed.
var ErrInvalidSignature = errors.New("invalid function signature")

type abiParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

type abiEntry struct {
	Type            string     `json:"type"`
	Name            string     `json:"name"`
	Inputs          []abiParam `json:"inputs"`
	Outputs         []abiParam `json:"outputs,omitempty"`
	StateMutability string     `json:"stateMutability,omitempty"`
}

// ParseABI decodes a standard JSON ABI document.
func ParseABI(data []byte) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing ABI: %w", err)
	}
	return parsed, nil
}

// ParseSignatures builds an ABI from human-readable lines such as
//
//	function balanceOf(address owner) view returns (uint256)
//	event Transfer(address indexed from, address indexed to, uint256 value)
//
// Tuple parameters are not supported.
func ParseSignatures(lines []string) (abi.ABI, error) {
	data, err := SignaturesJSON(lines)
	if err != nil {
		return abi.ABI{}, err
	}
	return ParseABI(data)
}

// SignaturesJSON converts human-readable lines into a JSON ABI document.
func SignaturesJSON(lines []string) ([]byte, error) {
	entries := make([]abiEntry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e, err := parseSignature(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSignature, line, err)
		}
		entries = append(entries, e)
	}
	return json.Marshal(entries)
}

func parseSignature(line string) (abiEntry, error) {
	e := abiEntry{Type: "function", StateMutability: "nonpayable"}
	switch {
	case strings.HasPrefix(line, "function "):
		line = strings.TrimPrefix(line, "function ")
	case strings.HasPrefix(line, "event "):
		line = strings.TrimPrefix(line, "event ")
		e.Type = "event"
		e.StateMutability = ""
	}

	open := strings.IndexByte(line, '(')
	if open <= 0 {
		return e, errors.New("missing parameter list")
	}
	e.Name = strings.TrimSpace(line[:open])

	inputs, rest, err := splitParams(line[open:])
	if err != nil {
		return e, err
	}
	if e.Inputs, err = parseParams(inputs, e.Type == "event"); err != nil {
		return e, err
	}

	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		word, tail, _ := strings.Cut(rest, " ")
		switch {
		case strings.HasPrefix(rest, "returns"):
			outputs, after, err := splitParams(strings.TrimSpace(strings.TrimPrefix(rest, "returns")))
			if err != nil {
				return e, err
			}
			if e.Outputs, err = parseParams(outputs, false); err != nil {
				return e, err
			}
			rest = after
		case word == "view" || word == "pure" || word == "payable" || word == "nonpayable":
			e.StateMutability = word
			rest = tail
		case word == "external" || word == "public" || word == "anonymous":
			rest = tail
		default:
			return e, fmt.Errorf("unexpected %q", word)
		}
	}
	return e, nil
}

// splitParams takes "(a, b) rest" and returns "a, b" and " rest".
func splitParams(s string) (string, string, error) {
	if !strings.HasPrefix(s, "(") {
		return "", "", errors.New("expected '('")
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return "", "", errors.New("unbalanced parentheses")
	}
	inner := s[1:end]
	if strings.ContainsRune(inner, '(') {
		return "", "", errors.New("tuple parameters are not supported")
	}
	return inner, s[end+1:], nil
}

func parseParams(list string, event bool) ([]abiParam, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return []abiParam{}, nil
	}
	var out []abiParam
	for _, raw := range strings.Split(list, ",") {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return nil, errors.New("empty parameter")
		}
		p := abiParam{Type: canonicalType(fields[0])}
		for _, f := range fields[1:] {
			switch f {
			case "indexed":
				if !event {
					return nil, errors.New("indexed outside event")
				}
				p.Indexed = true
			case "memory", "calldata", "storage":
			default:
				p.Name = f
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// canonicalType expands the Solidity aliases uint and int, keeping any array suffix.
func canonicalType(t string) string {
	base, suffix := t, ""
	if i := strings.IndexByte(t, '['); i >= 0 {
		base, suffix = t[:i], t[i:]
	}
	switch base {
	case "uint":
		base = "uint256"
	case "int":
		base = "int256"
	}
	return base + suffix
}
