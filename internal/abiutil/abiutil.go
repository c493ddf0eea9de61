// Package abiutil loads a contract ABI and resolves the canonical
// signature/topic0 of a named event, the way the teacher's event
// listener parses its inline QuadraticVoting ABI
// (services/event_listener.go) — generalized to load ABI files from
// disk instead of an inline constant.
package abiutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"smorty/internal/apperr"
)

// Contract wraps a parsed ABI together with its raw JSON, so generators
// can both call go-ethereum's abi.ABI helpers and hand the raw fragment
// to the AI prompt.
type Contract struct {
	Parsed abi.ABI
	Raw    json.RawMessage
}

// Load reads and parses a contract ABI JSON file.
func Load(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAbi, "read abi file "+path, err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAbi, "parse abi file "+path, err)
	}
	return &Contract{Parsed: parsed, Raw: json.RawMessage(data)}, nil
}

// EventInfo is what a generator needs about one named event: its
// canonical signature, topic0, and indexed/non-indexed argument names.
type EventInfo struct {
	Name          string
	Signature     string
	Topic0        string
	IndexedArgs   []abi.Argument
	NonIndexedArgs []abi.Argument
}

// ResolveEvent finds the named event in the ABI and computes its
// canonical signature and topic0, mirroring
// crypto.Keccak256Hash([]byte(signature)) from the teacher's listener.
func (c *Contract) ResolveEvent(name string) (*EventInfo, error) {
	ev, ok := c.Parsed.Events[name]
	if !ok {
		return nil, apperr.New(apperr.KindAbi, fmt.Sprintf("event %q not found in abi", name))
	}

	sig := CanonicalSignature(ev)
	topic0 := crypto.Keccak256Hash([]byte(sig))

	var indexed, nonIndexed []abi.Argument
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}

	return &EventInfo{
		Name:           name,
		Signature:      sig,
		Topic0:         topic0.Hex(),
		IndexedArgs:    indexed,
		NonIndexedArgs: nonIndexed,
	}, nil
}

// CanonicalSignature renders "Transfer(address,address,uint256)" style
// signatures the way go-ethereum's abi.Event.Sig already does — exposed
// here as a named helper so specgen can document what it relies on.
func CanonicalSignature(ev abi.Event) string {
	types := make([]string, len(ev.Inputs))
	for i, arg := range ev.Inputs {
		types[i] = arg.Type.String()
	}
	return ev.Name + "(" + strings.Join(types, ",") + ")"
}
