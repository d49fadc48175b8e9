package motion

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testBoards(l1, l2 Link) map[Board]Endpoint {
	return map[Board]Endpoint{
		Board1: {Link: l1, Address: 0x80},
		Board2: {Link: l2, Address: 0x81},
	}
}

func TestNewDispatcher_MissingBoard(t *testing.T) {
	_, err := NewDispatcher(map[Board]Endpoint{
		Board1: {Link: &scriptedLink{}, Address: 0x80},
	}, DefaultProfile())
	if err == nil {
		t.Fatal("expected error for missing board2 link")
	}
}

func TestNewDispatcher_NegativeProfile(t *testing.T) {
	p := DefaultProfile()
	p.Accel = -1
	if _, err := NewDispatcher(testBoards(&scriptedLink{}, &scriptedLink{}), p); err == nil {
		t.Fatal("expected error for negative accel")
	}
}

func TestDispatch_Commands(t *testing.T) {
	l1, l2 := &scriptedLink{}, &scriptedLink{}
	d, err := NewDispatcher(testBoards(l1, l2), DefaultProfile())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   MotorID
		dir  Direction
		want Command
		link Link
	}{
		{Motor1, Plus, Command{MotorHandle{Board1, 0x80, 2}, 144000, 144000, 46080, Immediate}, l1},
		{Motor1, Minus, Command{MotorHandle{Board1, 0x80, 2}, 144000, -144000, 46080, Immediate}, l1},
		{Motor2, Plus, Command{MotorHandle{Board1, 0x80, 1}, 144000, -144000, 46080, Immediate}, l1},
		{Motor2, Minus, Command{MotorHandle{Board1, 0x80, 1}, 144000, 144000, 46080, Immediate}, l1},
		{Motor3, Plus, Command{MotorHandle{Board2, 0x81, 1}, 144000, -144000, 46080, Immediate}, l2},
		{Motor3, Minus, Command{MotorHandle{Board2, 0x81, 1}, 144000, 144000, 46080, Immediate}, l2},
		{Motor4, Plus, Command{MotorHandle{Board2, 0x81, 2}, 144000, 144000, 46080, Immediate}, l2},
		{Motor4, Minus, Command{MotorHandle{Board2, 0x81, 2}, 144000, -144000, 46080, Immediate}, l2},
	}

	for _, tt := range tests {
		mv, err := d.Dispatch(tt.id, tt.dir)
		if err != nil {
			t.Fatalf("Dispatch(%v, %v): %v", tt.id, tt.dir, err)
		}
		if diff := cmp.Diff(tt.want, mv.Command); diff != "" {
			t.Errorf("Dispatch(%v, %v) command mismatch (-want +got):\n%s", tt.id, tt.dir, diff)
		}
		if mv.Link != tt.link {
			t.Errorf("Dispatch(%v, %v) used wrong link", tt.id, tt.dir)
		}
		if mv.Label != tt.id.String() {
			t.Errorf("Dispatch(%v, %v) label = %q", tt.id, tt.dir, mv.Label)
		}
	}
}

func TestDispatch_NoSideEffectsUntilSubmit(t *testing.T) {
	l1, l2 := &scriptedLink{}, &scriptedLink{}
	d, err := NewDispatcher(testBoards(l1, l2), DefaultProfile())
	if err != nil {
		t.Fatal(err)
	}

	mv, err := d.Dispatch(Motor3, Minus)
	if err != nil {
		t.Fatal(err)
	}
	if len(l2.submits) != 0 {
		t.Fatalf("dispatch submitted %d commands", len(l2.submits))
	}

	if err := mv.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(l2.submits) != 1 || len(l1.submits) != 0 {
		t.Fatalf("submits: board1=%d board2=%d, want 0/1", len(l1.submits), len(l2.submits))
	}
	want := submitCall{address: 0x81, motor: 1, speed: 144000, accel: 144000, distance: 46080, buffer: Immediate}
	if l2.submits[0] != want {
		t.Errorf("submitted %+v, want %+v", l2.submits[0], want)
	}
}

func TestDispatcher_Handle(t *testing.T) {
	l1, l2 := &scriptedLink{}, &scriptedLink{}
	d, _ := NewDispatcher(testBoards(l1, l2), DefaultProfile())

	h, link, err := d.Handle(Motor4)
	if err != nil {
		t.Fatal(err)
	}
	if h != (MotorHandle{Board2, 0x81, 2}) || link != l2 {
		t.Errorf("Handle(Motor4) = %v", h)
	}
	if _, _, err := d.Handle(9); err == nil {
		t.Error("Handle(9) should fail")
	}
}
