// Package dataset implements the reader/writer for the external dataset
// file format consumed by the dispatcher driver and produced by the
// traffic-generator tool (spec.md §6).
//
// Format:
//
//	<known_count> <num_packets> <ip_range>
//	<known_key_1>
//	…
//	<known_key_known_count>
//	<packet_1>
//	…
//	<packet_num_packets>
//
// All tokens are decimal non-negative integers fitting in 32 bits.
// Whitespace between tokens may be any mix of spaces and newlines.
//
// © 2025 flowdispatch authors. MIT License.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Meta carries the dataset header fields.
type Meta struct {
	KnownCount int
	NumPackets int
	IPRange    uint32
}

// Dataset is the fully parsed input: the pre-population key set, the
// packet stream to dispatch, and the header metadata.
type Dataset struct {
	Meta      Meta
	KnownKeys []uint32
	Packets   []uint32
}

// Error is the DatasetIO error kind of spec.md §7: file open, header parse,
// or truncated input. It always carries enough context to explain a fatal
// CLI exit without the caller needing to re-derive it.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("dataset: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Read parses a dataset from r. It fails fast on a malformed header or a
// short token stream (spec.md §7 DatasetIO, fatal).
func Read(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	next := func(field string) (uint64, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, &Error{Msg: "short read while parsing " + field, Err: err}
			}
			return 0, &Error{Msg: "short read while parsing " + field}
		}
		tok := scanner.Text()
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return 0, &Error{Msg: fmt.Sprintf("invalid token %q for %s", tok, field), Err: err}
		}
		return v, nil
	}

	knownCount, err := next("known_count")
	if err != nil {
		return nil, err
	}
	numPackets, err := next("num_packets")
	if err != nil {
		return nil, err
	}
	ipRange, err := next("ip_range")
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Meta: Meta{
			KnownCount: int(knownCount),
			NumPackets: int(numPackets),
			IPRange:    uint32(ipRange),
		},
		KnownKeys: make([]uint32, knownCount),
		Packets:   make([]uint32, numPackets),
	}

	for i := range ds.KnownKeys {
		v, err := next(fmt.Sprintf("known_key[%d]", i))
		if err != nil {
			return nil, err
		}
		ds.KnownKeys[i] = uint32(v)
	}
	for i := range ds.Packets {
		v, err := next(fmt.Sprintf("packet[%d]", i))
		if err != nil {
			return nil, err
		}
		ds.Packets[i] = uint32(v)
	}

	return ds, nil
}

// Write serializes a dataset in the same format Read parses: the three
// header tokens on one line, then one token per line. Used by
// tools/dataset-gen.
func Write(w io.Writer, known []uint32, packets []uint32, ipRange uint32) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	defer bw.Flush()

	if _, err := fmt.Fprintf(bw, "%d %d %d\n", len(known), len(packets), ipRange); err != nil {
		return err
	}
	for _, k := range known {
		if _, err := fmt.Fprintf(bw, "%d\n", k); err != nil {
			return err
		}
	}
	for _, p := range packets {
		if _, err := fmt.Fprintf(bw, "%d\n", p); err != nil {
			return err
		}
	}
	return bw.Flush()
}
