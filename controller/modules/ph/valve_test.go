package ph

import (
	"errors"
	"testing"
	"time"
)

// fakePin records every write so tests can assert on transitions.
type fakePin struct {
	state  bool
	writes int
	fail   bool
}

func (p *fakePin) Write(state bool) error {
	if p.fail {
		return errors.New("pin write failed")
	}
	p.state = state
	p.writes++
	return nil
}

func TestValveActivateAndAutoClose(t *testing.T) {
	pin := &fakePin{}
	v := NewValve("base", pin, 2*time.Second)
	t0 := time.Now()

	if err := v.Activate(t0); err != nil {
		t.Fatal(err)
	}
	if !v.Active() || !pin.state {
		t.Fatal("valve should be open after activation")
	}

	// Not a millisecond before the full duration.
	if v.Tick(t0.Add(1999*time.Millisecond)) || !v.Active() {
		t.Error("valve closed before activation duration elapsed")
	}
	// Exactly at the duration.
	if !v.Tick(t0.Add(2000*time.Millisecond)) || v.Active() {
		t.Error("valve did not close at activation duration")
	}
	if pin.state {
		t.Error("pin still high after close")
	}
}

func TestValveRefusesDoubleActivation(t *testing.T) {
	pin := &fakePin{}
	v := NewValve("acid", pin, time.Second)
	t0 := time.Now()

	if err := v.Activate(t0); err != nil {
		t.Fatal(err)
	}
	if err := v.Activate(t0.Add(100 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if pin.writes != 1 {
		t.Errorf("expected a single pin write, got %d", pin.writes)
	}
	// The original activation timestamp governs the close.
	if !v.Tick(t0.Add(time.Second)) {
		t.Error("valve did not close on the first activation's schedule")
	}
}

func TestValveTickIdleIsNoop(t *testing.T) {
	pin := &fakePin{}
	v := NewValve("base", pin, time.Second)
	if v.Tick(time.Now()) {
		t.Error("idle valve reported a close")
	}
	if pin.writes != 0 {
		t.Errorf("idle tick wrote to the pin %d times", pin.writes)
	}
}

func TestValveActivatePinFailure(t *testing.T) {
	pin := &fakePin{fail: true}
	v := NewValve("base", pin, time.Second)
	if err := v.Activate(time.Now()); err == nil {
		t.Fatal("expected error from failing pin")
	}
	if v.Active() {
		t.Error("valve marked active although the pin write failed")
	}
}

func TestValveCloseForcesPinLow(t *testing.T) {
	pin := &fakePin{}
	v := NewValve("acid", pin, time.Minute)
	if err := v.Activate(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(); err != nil {
		t.Fatal(err)
	}
	if v.Active() || pin.state {
		t.Error("valve still open after Close")
	}
}
