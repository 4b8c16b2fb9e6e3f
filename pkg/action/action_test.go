package action

import "testing"

func TestIsCheckedClickPrecedence(t *testing.T) {
	checked := true
	a := NewClick(1, "#box", 10, 20, &checked)
	if !a.IsCheckedClick() {
		t.Fatalf("IsCheckedClick() = false, want true")
	}
	if a.IsCoordinateClick() {
		t.Fatalf("IsCoordinateClick() = true, want false when checked is present (invariant v)")
	}
}

func TestIsCoordinateClickWithoutChecked(t *testing.T) {
	a := NewClick(1, "#box", 10, 20, nil)
	if a.IsCheckedClick() {
		t.Fatalf("IsCheckedClick() = true, want false")
	}
	if !a.IsCoordinateClick() {
		t.Fatalf("IsCoordinateClick() = false, want true")
	}
}

func TestNewScrollWindowSelector(t *testing.T) {
	a := NewScroll(100, WindowSelector, 0, 0, 0, 400, 400)
	if a.Selector != "window" {
		t.Fatalf("Selector = %q, want window", a.Selector)
	}
	if *a.StartScrollY != 0 || *a.ScrollY != 400 || *a.Duration != 400 {
		t.Fatalf("unexpected scroll fields: %+v", a)
	}
}
