package ir

import (
	"bytes"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical byte form of a program.
// CRITICAL: This is the ONLY serialization that should be used for
// content-addressed identity (ProgramHash).
//
// Differences from json.Marshal of a Program:
//  1. Chains are emitted as an array sorted by name (declaration order and
//     source line numbers are not part of identity)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized, so visually identical edits hash equal
//  4. Only clause Raw text is emitted; Args are derived from it
func MarshalCanonical(p Program) ([]byte, error) {
	names := make([]string, 0, len(p.Chains))
	for name := range p.Chains {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString(`{"chains":[`)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalChain(&buf, p.Chains[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func writeCanonicalChain(buf *bytes.Buffer, c Chain) error {
	buf.WriteString(`{"name":`)
	if err := writeCanonicalString(buf, c.Name); err != nil {
		return err
	}
	buf.WriteString(`,"nodes":[`)
	for i, n := range c.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, n); err != nil {
			return err
		}
	}
	buf.WriteString(`],"params":[`)
	for i, cl := range c.Params {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, cl.Raw); err != nil {
			return err
		}
	}
	buf.WriteString(`]}`)
	return nil
}

// writeCanonicalString writes s as a JSON string after NFC normalization.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds trailing newline, remove it
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
