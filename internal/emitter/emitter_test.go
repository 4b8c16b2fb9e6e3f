package emitter

import "testing"

func TestEmitDispatchesInRegistrationOrder(t *testing.T) {
	var e Emitter
	var order []int
	e.On("action", func(any) { order = append(order, 1) })
	e.On("action", func(any) { order = append(order, 2) })
	e.On("action", func(any) { order = append(order, 3) })

	e.Emit("action", nil)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestEmitPassesPayload(t *testing.T) {
	var e Emitter
	var got any
	e.On("stop", func(p any) { got = p })
	e.Emit("stop", "reason")
	if got != "reason" {
		t.Fatalf("got %v, want %q", got, "reason")
	}
}

func TestEmitToUnknownEventIsNoop(t *testing.T) {
	var e Emitter
	e.Emit("nothing-registered", nil)
}

func TestRemoveAllClearsListeners(t *testing.T) {
	var e Emitter
	called := false
	e.On("close", func(any) { called = true })
	e.RemoveAll()
	e.Emit("close", nil)
	if called {
		t.Fatalf("listener fired after RemoveAll")
	}
}

func TestListenerCanRegisterDuringEmit(t *testing.T) {
	var e Emitter
	secondCalled := false
	e.On("action", func(any) {
		e.On("action", func(any) { secondCalled = true })
	})
	e.Emit("action", nil)
	if secondCalled {
		t.Fatalf("listener registered mid-emit must not run during the same Emit call")
	}
	e.Emit("action", nil)
	if !secondCalled {
		t.Fatalf("listener registered mid-emit should run on the next Emit call")
	}
}
