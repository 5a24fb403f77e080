package input

import "testing"

func TestPromptMatchingCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "no_slash", input: "book", want: 0},
		{name: "empty", input: "", want: 0},
		{name: "full", input: "/book", want: 1},
		{name: "prefix", input: "/b", want: 1},
		{name: "slash only", input: "/", want: len(Commands)},
		{name: "upper case", input: "/DA", want: 1},
		{name: "with_space", input: "/book x", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PromptMatchingCommands(tt.input, Commands)
			if len(got) != tt.want {
				t.Fatalf("matches = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestPromptAutocomplete(t *testing.T) {
	value, ok := PromptAutocomplete("/ca", Commands)
	if !ok {
		t.Fatal("expected autocomplete")
	}
	if value != "/category " {
		t.Fatalf("value = %q, want %q", value, "/category ")
	}

	if _, ok := PromptAutocomplete("/zzz", Commands); ok {
		t.Fatal("unexpected autocomplete for unknown command")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line   string
		want   Parsed
		wantOK bool
	}{
		{"/date tomorrow", Parsed{Name: "/date", Args: "tomorrow"}, true},
		{"  /Book   Evening doubles ", Parsed{Name: "/book", Args: "Evening doubles"}, true},
		{"/category", Parsed{Name: "/category"}, true},
		{"/", Parsed{}, false},
		{"hello", Parsed{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Parse(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if cmd, ok := Lookup("/theme", Commands); !ok || cmd.Args != "<name>" {
		t.Errorf("Lookup(/theme) = %+v, %v", cmd, ok)
	}
	if _, ok := Lookup("/plan", Commands); ok {
		t.Error("Lookup(/plan) should fail")
	}
}
