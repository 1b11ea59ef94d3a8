package cli

import (
	"testing"
)

func TestParseEnv(t *testing.T) {
	env, err := parseEnv([]string{"USER=test", "PASS=se=cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["USER"] != "test" {
		t.Errorf("USER = %q, want test", env["USER"])
	}
	// Only the first = separates key from value.
	if env["PASS"] != "se=cret" {
		t.Errorf("PASS = %q, want se=cret", env["PASS"])
	}
}

func TestParseEnv_Empty(t *testing.T) {
	env, err := parseEnv(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env) != 0 {
		t.Errorf("env = %v, want empty", env)
	}
}

func TestParseEnv_Invalid(t *testing.T) {
	for _, pair := range []string{"NOVALUE", "=value"} {
		if _, err := parseEnv([]string{pair}); err == nil {
			t.Errorf("parseEnv(%q) accepted invalid pair", pair)
		}
	}
}
