package ph

import (
	"strings"
	"testing"
)

func newConsoleRegulator(t *testing.T) *Controller {
	t.Helper()
	return newTestRegulator(t, testConfig(), &fakeProbe{volts: voltsFor(7.0)}, nil)
}

func TestExecuteSetPH(t *testing.T) {
	ctrl := newConsoleRegulator(t)

	reply := ctrl.Execute("setph 6.5,7.5")
	if !strings.Contains(reply, "6.50 to 7.50") {
		t.Errorf("unexpected reply: %q", reply)
	}
	want := Band{Low: 6.5, High: 7.5}
	if got := ctrl.bands.Get(); got != want {
		t.Errorf("band not set: %v", got)
	}

	// setph persists immediately: reloading from storage sees the new band.
	band, err := ctrl.bands.Load()
	if err != nil {
		t.Fatal(err)
	}
	if band != want {
		t.Errorf("band not persisted: %v", band)
	}
}

func TestExecuteSetPHMalformed(t *testing.T) {
	ctrl := newConsoleRegulator(t)
	before := ctrl.bands.Get()

	cases := []string{
		"setph6.5",       // no comma at all
		"setph 6.5",      // still no comma
		"setph,6.5",      // comma before any value
		"setph ,7.5",     // empty low
		"setph 6.5,",     // empty high
		"setph a,b",      // not numbers
		"setph 9.0,2.0",  // inverted band
		"setph 6.5,7.5,", // trailing junk in high
	}
	for _, cmd := range cases {
		reply := ctrl.Execute(cmd)
		if !strings.Contains(reply, "Invalid") && !strings.Contains(reply, "Error") {
			t.Errorf("%q: expected an error reply, got %q", cmd, reply)
		}
		if got := ctrl.bands.Get(); got != before {
			t.Fatalf("%q changed the band to %v", cmd, got)
		}
	}
}

func TestExecuteIsCaseInsensitive(t *testing.T) {
	ctrl := newConsoleRegulator(t)

	if reply := ctrl.Execute("SETPH 6.5,7.5"); !strings.Contains(reply, "6.50 to 7.50") {
		t.Errorf("uppercase setph rejected: %q", reply)
	}
	if reply := ctrl.Execute("GetPH"); !strings.Contains(reply, "6.50 to 7.50") {
		t.Errorf("mixed-case getph rejected: %q", reply)
	}
}

func TestExecuteGetPH(t *testing.T) {
	ctrl := newConsoleRegulator(t)
	reply := ctrl.Execute("getph")
	if !strings.Contains(reply, DefaultBand.String()) {
		t.Errorf("unexpected getph reply: %q", reply)
	}
}

func TestExecuteSaveAndLoad(t *testing.T) {
	ctrl := newConsoleRegulator(t)

	if reply := ctrl.Execute("save"); !strings.Contains(reply, "saved") {
		t.Errorf("unexpected save reply: %q", reply)
	}
	if reply := ctrl.Execute("load"); !strings.Contains(reply, "loaded") {
		t.Errorf("unexpected load reply: %q", reply)
	}
	// load reports the reloaded band.
	ctrl.Execute("setph 6.1,7.9")
	if reply := ctrl.Execute("load"); !strings.Contains(reply, "6.10 to 7.90") {
		t.Errorf("load did not report the persisted band: %q", reply)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	ctrl := newConsoleRegulator(t)
	reply := ctrl.Execute("reboot")
	if !strings.Contains(reply, "Available commands") {
		t.Errorf("expected usage hint, got %q", reply)
	}
}

func TestExecuteStatus(t *testing.T) {
	ctrl := newConsoleRegulator(t)
	ctrl.status.set(Status{Band: ctrl.bands.Get()})
	reply := ctrl.Execute("status")
	if !strings.Contains(reply, "Target pH range") || !strings.Contains(reply, "Last sample: never") {
		t.Errorf("unexpected status reply: %q", reply)
	}
}

func TestSubmitRoundTrip(t *testing.T) {
	ctrl := newConsoleRegulator(t)
	ctrl.Start()
	defer ctrl.Stop()

	reply := ctrl.Submit("getph")
	if !strings.Contains(reply, DefaultBand.String()) {
		t.Errorf("unexpected reply via loop: %q", reply)
	}
}
