package command

import (
	"testing"

	"github.com/mattjoyce/overviewd/internal/anim"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"show", TypeShow, false},
		{"keyboard_input", TypeKeyboardInput, false},
		{"hide", TypeHide, false},
		{"toggle", TypeToggle, false},
		{"home", TypeHome, false},
		{"reboot", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := ParseType(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseType(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	c := New(TypeShow, 1)

	if c.Status() != StatusIdle {
		t.Fatalf("New command should be idle, got %v", c.Status())
	}
	if c.ID == "" {
		t.Fatal("New command should have an ID")
	}

	if !c.MarkProcessing() {
		t.Fatal("Idle -> processing should succeed")
	}
	if c.MarkProcessing() {
		t.Error("Second MarkProcessing should fail")
	}

	if !c.MarkCompleted() {
		t.Fatal("Processing -> completed should succeed")
	}
	if c.MarkCompleted() {
		t.Error("Second MarkCompleted should fail")
	}
	if c.MarkCanceled() {
		t.Error("Completed command must not become canceled")
	}
	if c.Status() != StatusCompleted {
		t.Errorf("Expected completed, got %v", c.Status())
	}
	if !c.Terminal() {
		t.Error("Completed command should be terminal")
	}
}

func TestCancelFromIdle(t *testing.T) {
	c := New(TypeHide, 2)

	if !c.MarkCanceled() {
		t.Fatal("Idle -> canceled should succeed")
	}
	if c.MarkProcessing() {
		t.Error("Canceled command must not become processing")
	}
	if c.Status() != StatusCanceled {
		t.Errorf("Expected canceled, got %v", c.Status())
	}
}

func TestCancelFromProcessing(t *testing.T) {
	c := New(TypeHome, 3)
	c.MarkProcessing()

	if !c.MarkCanceled() {
		t.Fatal("Processing -> canceled should succeed")
	}
	if c.MarkCompleted() {
		t.Error("Canceled command must not become completed")
	}
}

func TestAttachSessionHook(t *testing.T) {
	c := New(TypeToggle, 4)

	var hooked *anim.Session
	c.OnAttach(func(s *anim.Session) { hooked = s })

	s := anim.NewSession()
	c.AttachSession(s)

	if hooked != s {
		t.Error("Attach hook should receive the attached session")
	}
	if c.Session() != s {
		t.Error("Session() should return the attached session")
	}
}

func TestFocusStamp(t *testing.T) {
	c := New(TypeKeyboardInput, 5)

	c.SetFocus(2)
	if c.Focus() != 2 {
		t.Errorf("Expected focus 2, got %d", c.Focus())
	}
}
