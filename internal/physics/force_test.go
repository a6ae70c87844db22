package physics

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFirstOfKind(t *testing.T) {
	g := NewGrid(4, 4, 0, 1, PoissonEmpty)
	first := NewConstantForce()
	first.E = mgl64.Vec3{1, 0, 0}
	second := NewConstantForce()
	tree := NewCombinedForce(
		NewCombinedForce(NewGridForce(g), NewCombinedForce(first)),
		second,
	)

	found, ok := FirstOfKind(tree, ForceConstant)
	if !ok {
		t.Fatal("expected a constant force")
	}
	if found != Force(first) {
		t.Error("expected the depth-first match, got a later one")
	}

	if _, ok := FirstOfKind(tree, ForceGridRelativistic); ok {
		t.Error("did not expect a relativistic grid force")
	}
	if _, ok := FirstOfKind(nil, ForceConstant); ok {
		t.Error("nil tree should hold nothing")
	}
	if _, ok := FirstOfKind(NewCombinedForce(), ForceConstant); ok {
		t.Error("empty tree should hold nothing")
	}
}

func TestConvertForceKeepsParameters(t *testing.T) {
	c := NewConstantForce()
	c.E = mgl64.Vec3{1, 2, 3}
	c.B = mgl64.Vec3{0, 0, 4}
	c.G = mgl64.Vec3{0, -1, 0}
	c.ConstantField.Drag = 0.5

	rel, err := ConvertForce(c, ForceConstantRelativistic, 3)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := rel.(*ConstantForceRelativistic)
	if !ok {
		t.Fatalf("expected *ConstantForceRelativistic, got %T", rel)
	}
	if r.ConstantField != c.ConstantField || r.C != 3 {
		t.Errorf("parameters lost: %+v", r)
	}

	back, err := ConvertForce(r, ForceConstant, 3)
	if err != nil {
		t.Fatal(err)
	}
	if back.(*ConstantForce).ConstantField != c.ConstantField {
		t.Error("round trip lost parameters")
	}

	if _, err := ConvertForce(c, ForceGrid, 3); !errors.Is(err, ErrNoVariant) {
		t.Errorf("expected ErrNoVariant, got %v", err)
	}
	if _, err := ConvertForce(NewCombinedForce(), ForceConstant, 3); !errors.Is(err, ErrNoVariant) {
		t.Errorf("expected ErrNoVariant for combined force, got %v", err)
	}
}

func TestMapLeavesKeepsShape(t *testing.T) {
	g := NewGrid(4, 4, 0, 1, PoissonEmpty)
	tree := NewCombinedForce(
		NewConstantForce(),
		NewCombinedForce(NewGridForce(g), NewConstantForce()),
	)
	tree.MapLeaves(func(f Force) Force {
		kind, _ := f.Kind().Counterpart(true)
		out, err := ConvertForce(f, kind, 1)
		if err != nil {
			t.Fatal(err)
		}
		return out
	})

	want := []ForceKind{ForceConstantRelativistic, ForceGridRelativistic, ForceConstantRelativistic}
	if got := Leaves(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if _, ok := tree.Forces[1].(*CombinedForce); !ok {
		t.Error("nested combined force should be kept")
	}
}

func TestRemoveKinds(t *testing.T) {
	g := NewGrid(4, 4, 0, 1, PoissonEmpty)
	tree := NewCombinedForce(
		NewGridForce(g),
		NewConstantForce(),
		NewCombinedForce(NewGridForceRelativistic(g, 1)),
	)
	if n := tree.RemoveKinds(ForceGrid, ForceGridRelativistic); n != 2 {
		t.Errorf("expected 2 removals, got %d", n)
	}
	want := []ForceKind{ForceConstant}
	if got := Leaves(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCombinedForceSums(t *testing.T) {
	a := NewConstantForce()
	a.E = mgl64.Vec3{1, 0, 0}
	a.ConstantField.Drag = 0.5
	b := NewConstantForce()
	b.B = mgl64.Vec3{0, 0, 2}
	b.ConstantField.Drag = 0.25
	tree := NewCombinedForce(a, b)

	p := chargedParticle(mgl64.Vec3{}, mgl64.Vec3{})
	f, field := tree.Field(p)
	if f != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("unexpected force %v", f)
	}
	if field != (mgl64.Vec3{0, 0, 2}) {
		t.Errorf("unexpected magnetic field %v", field)
	}
	if tree.Drag() != 0.75 {
		t.Errorf("expected drag 0.75, got %f", tree.Drag())
	}
}

func TestForceCounterpart(t *testing.T) {
	tests := []struct {
		kind         ForceKind
		relativistic bool
		want         ForceKind
		ok           bool
	}{
		{ForceConstant, true, ForceConstantRelativistic, true},
		{ForceConstantRelativistic, false, ForceConstant, true},
		{ForceGrid, true, ForceGridRelativistic, true},
		{ForceGridRelativistic, false, ForceGrid, true},
		{ForceGrid, false, ForceGrid, true},
		{ForceCombined, true, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.kind.Counterpart(tt.relativistic)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("%v.Counterpart(%v) = %v, %v; want %v, %v", tt.kind, tt.relativistic, got, ok, tt.want, tt.ok)
		}
	}
}
