package env

import (
	"testing"
	"time"
)

type sample struct {
	Name     string        `env:"KBQA_NAME"`
	Port     int           `env:"KBQA_PORT" envDefault:"8080"`
	Ratio    float64       `env:"KBQA_RATIO"`
	Enabled  bool          `env:"KBQA_ENABLED"`
	Timeout  time.Duration `env:"KBQA_TIMEOUT"`
	Token    string        `env:"KBQA_TOKEN,required,notEmpty"`
	Untagged string
}

func TestMarshalEnv(t *testing.T) {
	got, err := MarshalEnv(&sample{
		Name:     "kb engine",
		Port:     9090,
		Ratio:    0.5,
		Enabled:  true,
		Timeout:  2 * time.Second,
		Token:    "abc",
		Untagged: "skip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "KBQA_NAME=\"kb engine\"\nKBQA_PORT=9090\nKBQA_RATIO=0.5\nKBQA_ENABLED=true\nKBQA_TIMEOUT=2s\nKBQA_TOKEN=abc\n"
	if got != want {
		t.Errorf("MarshalEnv() =\n%q\nwant\n%q", got, want)
	}
}

func TestMarshalEnv_SkipsZeroValues(t *testing.T) {
	got, err := MarshalEnv(&sample{Port: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "KBQA_PORT=1\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestMarshalEnv_RejectsNonPointer(t *testing.T) {
	if _, err := MarshalEnv(sample{}); err == nil {
		t.Error("expected error for non-pointer value")
	}
}

func TestMarshalMap(t *testing.T) {
	got := MarshalMap(map[string]string{
		"KBQA_B": "2",
		"KBQA_A": "one two",
	})
	want := "KBQA_A=\"one two\"\nKBQA_B=2\n"
	if got != want {
		t.Errorf("MarshalMap() = %q, want %q", got, want)
	}
}
