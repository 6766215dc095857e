package workload

import "testing"

func TestAllNamedProfilesGenerate(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		known, packets := Generate(p, 1, 10, 100, 1000)
		if len(known) != 10 {
			t.Fatalf("%s: len(known) = %d, want 10", name, len(known))
		}
		if len(packets) != 100 {
			t.Fatalf("%s: len(packets) = %d, want 100", name, len(packets))
		}
		for _, k := range packets {
			if k >= 1000 {
				t.Fatalf("%s: packet key %d out of ip_range", name, k)
			}
		}
	}
}

func TestLookupUnknownProfile(t *testing.T) {
	if _, err := Lookup("does-not-exist"); err == nil {
		t.Fatal("Lookup should fail for an unknown profile name")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	p, _ := Lookup("zipf")
	_, a := Generate(p, 7, 5, 500, 2000)
	_, b := Generate(p, 7, 5, 500, 2000)
	if len(a) != len(b) {
		t.Fatal("same seed must produce the same packet count")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("packet %d differs between identical-seed runs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestBurstIntensityProducesRepeats(t *testing.T) {
	p := Profile{Name: "burst-test", Shape: ShapeUniform, BurstIntensity: 1.0}
	_, packets := Generate(p, 1, 0, 50, 1000)
	for i := 1; i < len(packets); i++ {
		if packets[i] != packets[i-1] {
			t.Fatalf("BurstIntensity=1.0 should repeat every key; packet %d differs", i)
		}
	}
}
