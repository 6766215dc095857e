package dataset

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadWellFormed(t *testing.T) {
	in := "2 4 10\n1\n2\n0\n1\n2\n3\n"
	ds, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Meta.KnownCount != 2 || ds.Meta.NumPackets != 4 || ds.Meta.IPRange != 10 {
		t.Fatalf("unexpected meta: %+v", ds.Meta)
	}
	if len(ds.KnownKeys) != 2 || ds.KnownKeys[0] != 1 || ds.KnownKeys[1] != 2 {
		t.Fatalf("unexpected known keys: %v", ds.KnownKeys)
	}
	if len(ds.Packets) != 4 || ds.Packets[3] != 3 {
		t.Fatalf("unexpected packets: %v", ds.Packets)
	}
}

func TestReadToleratesMixedWhitespace(t *testing.T) {
	in := "0   10\n4\n0 1\n2\n3\n0 1 2\n3\n0  1\n"
	ds, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Packets) != 10 {
		t.Fatalf("len(Packets) = %d, want 10", len(ds.Packets))
	}
}

func TestReadShortFails(t *testing.T) {
	in := "0 10 4\n1\n2\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("Read should fail on a truncated packet stream")
	}
}

func TestReadBadHeaderFails(t *testing.T) {
	if _, err := Read(strings.NewReader("not a number\n")); err == nil {
		t.Fatal("Read should fail on a malformed header")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	known := []uint32{5, 6}
	packets := []uint32{1, 2, 3, 5}
	if err := Write(&buf, known, packets, 100); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ds, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read after Write: %v", err)
	}
	if len(ds.KnownKeys) != len(known) || len(ds.Packets) != len(packets) {
		t.Fatal("round-trip did not preserve lengths")
	}
	for i := range known {
		if ds.KnownKeys[i] != known[i] {
			t.Fatalf("known[%d] = %d, want %d", i, ds.KnownKeys[i], known[i])
		}
	}
}
