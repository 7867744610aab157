package ph

import "testing"

func TestParseSchedule(t *testing.T) {
	rr, err := ParseSchedule("")
	if err != nil || rr != nil {
		t.Errorf("empty schedule should parse to nil, got %v, %v", rr, err)
	}
	if _, err := ParseSchedule("FREQ=WEEKLY"); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}
	if _, err := ParseSchedule("FREQ=SOMETIMES"); err == nil {
		t.Error("invalid rule accepted")
	}
}

func TestStartScheduleIgnoresEmptyAndInvalid(t *testing.T) {
	quit := make(chan struct{})
	defer close(quit)
	// Neither of these may panic or invoke the callback.
	StartSchedule("", quit, func() { t.Error("callback fired for empty rule") })
	StartSchedule("FREQ=SOMETIMES", quit, func() { t.Error("callback fired for invalid rule") })
}
