package dispatch

import "testing"

func TestApplyOptionsDefaults(t *testing.T) {
	cfg, err := applyOptions(nil)
	if err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if cfg.poolCapacity <= 0 {
		t.Fatal("default pool capacity must be positive")
	}
	if cfg.logger == nil {
		t.Fatal("default logger must not be nil")
	}
}

func TestWithPoolCapacityRejectsNonPositive(t *testing.T) {
	cfg, err := applyOptions([]Option{WithPoolCapacity(0)})
	if err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if cfg.poolCapacity <= 0 {
		t.Fatal("WithPoolCapacity(0) should be ignored, not applied")
	}
}

func TestWithPoolCapacityNegativeFailsValidation(t *testing.T) {
	// Directly constructing a config with a bad capacity (bypassing the
	// option, which itself clamps) should still be rejected by
	// applyOptions's final validation step.
	_, err := applyOptions([]Option{func(c *config) { c.poolCapacity = -1 }})
	if err == nil {
		t.Fatal("applyOptions should reject a non-positive pool capacity")
	}
}

func TestWithQueueSeedIsApplied(t *testing.T) {
	cfg, err := applyOptions([]Option{WithQueueSeed(42)})
	if err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if cfg.queueSeed != 42 {
		t.Fatalf("queueSeed = %d, want 42", cfg.queueSeed)
	}
}
