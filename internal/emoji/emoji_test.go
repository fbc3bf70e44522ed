package emoji

import "testing"

func TestResolveIgnoresCaseAndSpaces(t *testing.T) {
	want := Resolve("dps")
	if want == Placeholder {
		t.Fatal("expected dps to resolve to a known glyph")
	}
	if got := Resolve("DPS"); got != want {
		t.Fatalf("expected %q for DPS, got %q", want, got)
	}
	if got := Resolve("  DPS  "); got != want {
		t.Fatalf("expected %q for padded DPS, got %q", want, got)
	}
}

func TestResolveSpacedNames(t *testing.T) {
	if got := Resolve("Dark Knight"); got != Resolve("DarkKnight") {
		t.Fatalf("expected spaced and unspaced names to match, got %q", got)
	}
}

func TestResolveUnknownName(t *testing.T) {
	if got := Resolve("Foo"); got != Placeholder {
		t.Fatalf("expected placeholder for unknown name, got %q", got)
	}
}
