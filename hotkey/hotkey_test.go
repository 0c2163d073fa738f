package hotkey

import "testing"

func TestParseCombo(t *testing.T) {
	cases := []struct {
		in   string
		want Combo
	}{
		{"", Combo{Ctrl: true, Shift: true, Key: "space"}},
		{"ctrl+shift+space", Combo{Ctrl: true, Shift: true, Key: "space"}},
		{"Control + F5", Combo{Ctrl: true, Key: "f5"}},
		{"enter", Combo{Key: "enter"}},
	}
	for _, tc := range cases {
		got, err := ParseCombo(tc.in)
		if err != nil {
			t.Errorf("ParseCombo(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseCombo(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, in := range []string{"ctrl+shift", "ctrl++space", "space+enter", "ctrl+banana"} {
		if _, err := ParseCombo(in); err == nil {
			t.Errorf("ParseCombo(%q): expected error", in)
		}
	}
}

func TestComboString(t *testing.T) {
	c, err := ParseCombo(DefaultCombo)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "Ctrl+Shift+Space" {
		t.Errorf("String() = %q", got)
	}
}
