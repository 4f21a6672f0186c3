package translate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/options"
)

var precisionKeys = map[string]string{
	"float":      "ENABLE_FLOAT",
	"double":     "ENABLE_DOUBLE",
	"longdouble": "ENABLE_LONG_DOUBLE",
	"quad":       "ENABLE_QUAD_PRECISION",
}

func fftwTable(t *testing.T) *Table {
	t.Helper()
	schema := options.MustSchema(
		options.Option{Name: "shared", Kind: options.Bool, Default: true},
		options.Option{Name: "pic", Kind: options.Bool, Default: true},
		options.Option{Name: "openmp", Kind: options.Bool, Default: false},
		options.Option{Name: "precision", Kind: options.Enum, Values: []string{"float", "double", "longdouble", "quad"}, Default: "double"},
		options.Option{Name: "avx", Kind: options.Bool, Default: false},
		options.Option{Name: "fortran", Kind: options.Bool, Default: false},
	)
	precision, _ := schema.Lookup("precision")
	table, err := NewTable(schema,
		Rule{Option: "shared", Key: "BUILD_SHARED_LIBS", Mode: Pass},
		Rule{Option: "pic", Key: "CMAKE_POSITION_INDEPENDENT_CODE", Mode: Pass},
		Rule{Key: "BUILD_TESTS", Mode: Const, Value: buildsys.Bool(false)},
		Rule{Option: "openmp", Key: "ENABLE_OPENMP", Mode: Pass},
		OneHotRule(precision, func(m string) string { return precisionKeys[m] }),
		Rule{Option: "avx", Key: "ENABLE_AVX", Mode: Pass},
		Rule{Option: "fortran", Key: "DISABLE_FORTRAN", Mode: Negate},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func validate(t *testing.T, table *Table, overrides map[string]any) *options.Set {
	t.Helper()
	set, err := options.Validate(table.Schema(), overrides)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return set
}

func TestTranslateDefaults(t *testing.T) {
	table := fftwTable(t)
	defs := table.Translate(validate(t, table, nil))
	want := "BUILD_SHARED_LIBS:BOOL=ON\n" +
		"BUILD_TESTS:BOOL=OFF\n" +
		"CMAKE_POSITION_INDEPENDENT_CODE:BOOL=ON\n" +
		"DISABLE_FORTRAN:BOOL=ON\n" +
		"ENABLE_AVX:BOOL=OFF\n" +
		"ENABLE_DOUBLE:BOOL=ON\n" +
		"ENABLE_FLOAT:BOOL=OFF\n" +
		"ENABLE_LONG_DOUBLE:BOOL=OFF\n" +
		"ENABLE_OPENMP:BOOL=OFF\n" +
		"ENABLE_QUAD_PRECISION:BOOL=OFF\n"
	if got := string(defs.Bytes()); got != want {
		t.Errorf("Translate(defaults) =\n%s\nwant\n%s", got, want)
	}
}

func TestTranslateDeterministic(t *testing.T) {
	table := fftwTable(t)
	overrides := map[string]any{"precision": "float", "avx": true, "shared": false}
	a := table.Translate(validate(t, table, overrides))
	for i := 0; i < 20; i++ {
		b := table.Translate(validate(t, table, overrides))
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, a.Bytes(), b.Bytes())
		}
		if a.Fingerprint() != b.Fingerprint() {
			t.Fatalf("run %d fingerprint differs", i)
		}
	}
}

func TestPrecisionIsOneHot(t *testing.T) {
	table := fftwTable(t)
	for _, p := range []string{"float", "double", "longdouble", "quad"} {
		t.Run(p, func(t *testing.T) {
			defs := table.Translate(validate(t, table, map[string]any{"precision": p}))
			on := 0
			for member, key := range precisionKeys {
				v, ok := defs[key]
				if !ok {
					t.Fatalf("missing %s", key)
				}
				if v.AsBool() {
					on++
					if member != p {
						t.Errorf("%s is on for precision=%s", key, p)
					}
				}
			}
			if on != 1 {
				t.Errorf("%d precision definitions on, want exactly 1", on)
			}
		})
	}
}

func TestFortranPolarity(t *testing.T) {
	table := fftwTable(t)
	tests := []struct {
		fortran bool
		disable bool
	}{
		{fortran: true, disable: false},
		{fortran: false, disable: true},
	}
	for _, tt := range tests {
		defs := table.Translate(validate(t, table, map[string]any{"fortran": tt.fortran}))
		if got := defs["DISABLE_FORTRAN"].AsBool(); got != tt.disable {
			t.Errorf("fortran=%v: DISABLE_FORTRAN = %v, want %v", tt.fortran, got, tt.disable)
		}
	}
}

func TestVerbatim(t *testing.T) {
	schema := options.MustSchema(
		options.Option{Name: "backend", Kind: options.Enum, Values: []string{"fftw", "mkl"}, Default: "fftw"},
	)
	table := MustTable(schema, Rule{Option: "backend", Key: "FFT_BACKEND", Mode: Verbatim})
	set, _ := options.Validate(schema, map[string]any{"backend": "mkl"})
	if got := string(table.Translate(set).Bytes()); got != "FFT_BACKEND:STRING=mkl\n" {
		t.Errorf("Translate = %q", got)
	}
}

func TestNewTableRejects(t *testing.T) {
	schema := options.MustSchema(
		options.Option{Name: "b", Kind: options.Bool, Default: false},
		options.Option{Name: "e", Kind: options.Enum, Values: []string{"x", "y"}, Default: "x"},
	)
	tests := []struct {
		name string
		rule []Rule
		want string
	}{
		{"unknown option", []Rule{{Option: "zz", Key: "Z", Mode: Pass}}, "unknown option"},
		{"pass on enum", []Rule{{Option: "e", Key: "E", Mode: Pass}}, "needs a bool"},
		{"negate on enum", []Rule{{Option: "e", Key: "E", Mode: Negate}}, "needs a bool"},
		{"verbatim on bool", []Rule{{Option: "b", Key: "B", Mode: Verbatim}}, "needs an enum"},
		{"onehot missing member", []Rule{{Option: "e", Mode: OneHot, Members: []Member{{"x", "X"}}}}, "has no definition"},
		{"onehot foreign member", []Rule{{Option: "e", Mode: OneHot, Members: []Member{{"x", "X"}, {"y", "Y"}, {"z", "Z"}}}}, "not a member"},
		{"onehot repeated member", []Rule{{Option: "e", Mode: OneHot, Members: []Member{{"x", "X"}, {"x", "X2"}, {"y", "Y"}}}}, "mapped twice"},
		{"duplicate key", []Rule{{Option: "b", Key: "K", Mode: Pass}, {Key: "K", Mode: Const, Value: buildsys.Bool(true)}}, "produced twice"},
		{"empty key", []Rule{{Option: "b", Mode: Pass}}, "empty definition key"},
		{"const with option", []Rule{{Option: "b", Key: "K", Mode: Const}}, "must not name option"},
		{"unknown mode", []Rule{{Option: "b", Key: "K", Mode: Mode(42)}}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(schema, tt.rule...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewTable error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestTranslateForeignSchemaPanics(t *testing.T) {
	table := fftwTable(t)
	other := options.MustSchema(options.Option{Name: "shared", Kind: options.Bool, Default: true})
	set, _ := options.Validate(other, nil)
	defer func() {
		if recover() == nil {
			t.Errorf("Translate accepted a set from another schema")
		}
	}()
	table.Translate(set)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Pass, Negate, OneHot, Verbatim, Const} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("invert"); err == nil {
		t.Errorf("ParseMode(invert) succeeded")
	}
}

func TestOneHotRule(t *testing.T) {
	opt := options.Option{Name: "precision", Kind: options.Enum, Values: []string{"float", "double"}, Default: "double"}
	r := OneHotRule(opt, func(m string) string { return "ENABLE_" + strings.ToUpper(m) })
	if r.Mode != OneHot || r.Option != "precision" {
		t.Fatalf("rule = %+v", r)
	}
	want := []Member{{"float", "ENABLE_FLOAT"}, {"double", "ENABLE_DOUBLE"}}
	if len(r.Members) != len(want) {
		t.Fatalf("members = %v, want %v", r.Members, want)
	}
	for i := range want {
		if r.Members[i] != want[i] {
			t.Errorf("member %d = %v, want %v", i, r.Members[i], want[i])
		}
	}

	schema := options.MustSchema(opt)
	if _, err := NewTable(schema, r); err != nil {
		t.Errorf("NewTable rejected a generated rule: %v", err)
	}
}
