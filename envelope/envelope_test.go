package envelope

import "testing"

type widget struct {
	V string
	N int `etl:"count"`
}

func TestNewProjectRoundTrip(t *testing.T) {
	in := widget{V: "one", N: 3}
	env, err := New(in)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out widget
	if err := Project(env, &out); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestProjectMissingAttributeUsesZeroValue(t *testing.T) {
	type source struct{ V string }
	type dest struct {
		V string
		N int
	}
	env, err := New(source{V: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out dest
	if err := Project(env, &out); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out.V != "x" || out.N != 0 {
		t.Fatalf("unexpected projection: %+v", out)
	}
}

func TestMergeTunnelsUnknownAttributes(t *testing.T) {
	type wide struct {
		V     string
		Extra string
	}
	type narrow struct{ V string }

	orig, err := New(wide{V: "one", Extra: "kept"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var n narrow
	if err := Project(orig, &n); err != nil {
		t.Fatalf("Project: %v", err)
	}
	n.V = "ONE"
	overlay, err := New(n)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	merged := orig.Merge(overlay)
	var out wide
	if err := Project(merged, &out); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out.V != "ONE" {
		t.Fatalf("overlay did not take effect: %+v", out)
	}
	if out.Extra != "kept" {
		t.Fatalf("tunnelled attribute lost: %+v", out)
	}
}

func TestAttributerFromAttributesBypassReflection(t *testing.T) {
	env, err := New(customType{id: "abc"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out customType
	if err := Project(env, &out); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out.id != "abc" {
		t.Fatalf("got %+v", out)
	}
}

type customType struct{ id string }

func (c customType) ToAttributes() map[string]any { return map[string]any{"id": c.id} }
func (c *customType) FromAttributes(attrs map[string]any) error {
	if v, ok := attrs["id"].(string); ok {
		c.id = v
	}
	return nil
}
