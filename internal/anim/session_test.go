package anim

import "testing"

func TestEndFiresListenersOnce(t *testing.T) {
	s := NewSession()

	fired := 0
	s.AddEndListener(func(canceled bool) {
		fired++
		if canceled {
			t.Error("Expected canceled=false on End")
		}
	})

	s.End()
	s.End()
	s.Cancel()

	if fired != 1 {
		t.Errorf("Expected listener to fire once, fired %d times", fired)
	}
	if !s.Ended() {
		t.Error("Expected session to be ended")
	}
}

func TestCancelReportsCanceled(t *testing.T) {
	s := NewSession()

	var got bool
	s.AddEndListener(func(canceled bool) { got = canceled })

	s.Cancel()

	if !got {
		t.Error("Expected canceled=true on Cancel")
	}
}

func TestRemoveListener(t *testing.T) {
	s := NewSession()

	fired := false
	remove := s.AddEndListener(func(bool) { fired = true })
	remove()

	s.End()

	if fired {
		t.Error("Removed listener must not fire")
	}
}

func TestAddAfterEndFiresImmediately(t *testing.T) {
	s := NewSession()
	s.Cancel()

	var got bool
	fired := false
	s.AddEndListener(func(canceled bool) {
		fired = true
		got = canceled
	})

	if !fired {
		t.Fatal("Expected listener added after end to fire immediately")
	}
	if !got {
		t.Error("Expected canceled=true")
	}
}
