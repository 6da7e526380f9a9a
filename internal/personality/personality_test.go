package personality

import (
	"errors"
	"strings"
	"testing"
)

func TestNames(t *testing.T) {
	want := []string{"balanced", "driver", "analytical", "expressive", "amiable"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup("driver")
	if err != nil {
		t.Fatalf("Lookup(driver): %v", err)
	}
	want := "Create a direct, results-focused response. Be concise and action-oriented. Get straight to the point with clear next steps."
	if p.Instruction != want {
		t.Errorf("driver instruction = %q, want %q", p.Instruction, want)
	}
}

func TestLookup_Normalizes(t *testing.T) {
	for _, in := range []string{"Amiable", "  amiable ", "AMIABLE"} {
		p, err := Lookup(in)
		if err != nil {
			t.Errorf("Lookup(%q): %v", in, err)
			continue
		}
		if p.Name != "amiable" {
			t.Errorf("Lookup(%q).Name = %q", in, p.Name)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	for _, in := range []string{"", "bossy", "toString", "constructor"} {
		_, err := Lookup(in)
		if !errors.Is(err, ErrUnknown) {
			t.Errorf("Lookup(%q) err = %v, want ErrUnknown", in, err)
		}
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0].Instruction = "mutated"

	p, _ := Lookup(all[0].Name)
	if p.Instruction == "mutated" {
		t.Error("All() exposed internal state")
	}
	if strings.TrimSpace(All()[0].Instruction) == "mutated" {
		t.Error("All() exposed internal slice")
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     `profiles: []`,
		"no name":   "profiles:\n  - instruction: x\n",
		"duplicate": "profiles:\n  - {name: a, instruction: x}\n  - {name: a, instruction: y}\n",
		"malformed": "profiles: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parse([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
