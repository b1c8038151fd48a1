package config

import (
	"errors"
	"testing"
)

// TestLoadPrepare_Defaults verifies the documented defaults survive an empty
// viper instance apart from the required keys.
func TestLoadPrepare_Defaults(t *testing.T) {
	v := NewViper()
	v.Set("data", "in.csv")
	v.Set("out", "out.json")

	p, err := LoadPrepare(v)
	if err != nil {
		t.Fatalf("LoadPrepare: %v", err)
	}
	if p.Source.Kind != "csv" || p.Source.Delimiter != DefaultDelimiter {
		t.Fatalf("source = %+v, want csv/auto", p.Source)
	}
	in := p.Inference
	if in.MaxCategories != 200 || in.DatetimeMinParseFrac != 0.95 || in.GUIDMinMatchFrac != 0.95 {
		t.Fatalf("inference defaults = %+v", in)
	}
	if in.PadFracInteger != nil || in.PadFracContinuous != nil {
		t.Fatalf("pad fractions should be unset by default")
	}
	if in.DatetimeOutputFormat != PreserveFormat {
		t.Fatalf("DatetimeOutputFormat = %q, want preserve", in.DatetimeOutputFormat)
	}
}

func TestLoadPrepare_Errors(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{name: "partial_survival", set: map[string]any{"survival-event-col": "event"}},
		{name: "negative_pad", set: map[string]any{"pad-frac": -0.1}},
		{name: "bad_fraction", set: map[string]any{"guid-min-match-frac": 1.5}},
		{name: "bad_delimiter", set: map[string]any{"delimiter": ";;"}},
		{name: "unknown_source", set: map[string]any{"source": "parquet"}},
		{name: "sql_without_query", set: map[string]any{"source": "sqlite", "dsn": "file:x.db"}},
		{name: "pad_not_a_number", set: map[string]any{"pad-frac": "abc"}},
		{name: "max_categories_not_an_int", set: map[string]any{"max-categories": "lots"}},
		{name: "flag_not_a_bool", set: map[string]any{"infer-categories": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set("data", "in.csv")
			v.Set("out", "out.json")
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := LoadPrepare(v)
			if err == nil {
				t.Fatalf("LoadPrepare(%v) = nil error, want configuration error", tt.set)
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestLoadPrepare_OptionalPadFractions(t *testing.T) {
	v := NewViper()
	v.Set("data", "in.csv")
	v.Set("out", "out.json")
	v.Set("pad-frac", 0.1)
	v.Set("pad-frac-integer", 0.0)

	p, err := LoadPrepare(v)
	if err != nil {
		t.Fatalf("LoadPrepare: %v", err)
	}
	if p.Inference.PadFracInteger == nil || *p.Inference.PadFracInteger != 0 {
		t.Fatalf("PadFracInteger = %v, want explicit 0", p.Inference.PadFracInteger)
	}
	if p.Inference.PadFracContinuous != nil {
		t.Fatalf("PadFracContinuous should stay unset")
	}
}

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	o := Options{"d": "tab", "b": "true", "n": "7", "f": 0.5, "s": ""}
	if got := o.Rune("d", ','); got != '\t' {
		t.Errorf("Rune(d) = %q, want tab", got)
	}
	if !o.Bool("b", false) {
		t.Errorf("Bool(b) = false, want true")
	}
	if got := o.Int("n", 0); got != 7 {
		t.Errorf("Int(n) = %d, want 7", got)
	}
	if got := o.Float("f", 0); got != 0.5 {
		t.Errorf("Float(f) = %v, want 0.5", got)
	}
	if got := o.String("s", "def"); got != "def" {
		t.Errorf("String(s) = %q, want def", got)
	}
	if got := o.Rune("missing", ';'); got != ';' {
		t.Errorf("Rune(missing) = %q, want ';'", got)
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	got := SplitList(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("SplitList = %q", got)
	}
	if SplitList("  ") != nil {
		t.Fatalf("SplitList(blank) should be nil")
	}
}

func TestLoadRender_KeepOriginalMustBeBool(t *testing.T) {
	v := NewViper()
	v.Set("data", "in.csv")
	v.Set("schema", "schema.json")
	v.Set("out", "out.csv")
	v.Set("keep-original", "maybe")

	_, err := LoadRender(v)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("LoadRender(keep-original=maybe) = %v, want configuration error", err)
	}

	v.Set("keep-original", "true")
	r, err := LoadRender(v)
	if err != nil {
		t.Fatalf("LoadRender: %v", err)
	}
	if !r.KeepOriginal {
		t.Fatalf("KeepOriginal = false, want true")
	}
}
