package autotools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/llpack/pkgs/buildsys"
)

func TestConfigureArgs(t *testing.T) {
	stage := t.TempDir()
	got := configureArgs(buildsys.ConfigureRequest{
		StagingRoot: stage,
		Definitions: buildsys.Definitions{
			"ENABLE_FLOAT":    buildsys.Bool(true),
			"ENABLE_THREADS":  buildsys.Bool(false),
			"DISABLE_FORTRAN": buildsys.Bool(true),
			"with_combined":   buildsys.Bool(true),
			"HOST":            buildsys.String("x86_64-linux-gnu"),
		},
	})
	want := []string{
		"--prefix=" + stage,
		"--disable-fortran",
		"--enable-float",
		"--disable-threads",
		"--host=x86_64-linux-gnu",
		"--enable-with-combined",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("configureArgs =\n%v\nwant\n%v", got, want)
	}
}

func TestBoolFlag(t *testing.T) {
	tests := []struct {
		key  string
		on   bool
		want string
	}{
		{"ENABLE_SSE2", true, "--enable-sse2"},
		{"ENABLE_SSE2", false, "--disable-sse2"},
		{"DISABLE_FORTRAN", false, "--enable-fortran"},
		{"disable-fortran", true, "--disable-fortran"},
		{"openmp", true, "--enable-openmp"},
	}
	for _, tt := range tests {
		if got := boolFlag(tt.key, tt.on); got != tt.want {
			t.Errorf("boolFlag(%q, %v) = %q, want %q", tt.key, tt.on, got, tt.want)
		}
	}
}

func TestConfigureBuildInstallWithScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	build := filepath.Join(tmp, "build")
	stage := filepath.Join(tmp, "stage")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	// configure records its arguments; the fake make copies them on install
	configure := "#!/bin/sh\necho \"$@\" > args.txt\n"
	if err := os.WriteFile(filepath.Join(src, "configure"), []byte(configure), 0o755); err != nil {
		t.Fatal(err)
	}
	fakeMake := filepath.Join(tmp, "make")
	script := "#!/bin/sh\nif [ \"$1\" = install ]; then mkdir -p " + stage + " && cp args.txt " + stage + "/; fi\n"
	if err := os.WriteFile(fakeMake, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	a := New().Make(fakeMake)
	ctx := context.Background()
	err := a.Configure(ctx, buildsys.ConfigureRequest{
		SourceDir:   src,
		BuildDir:    build,
		StagingRoot: stage,
		Definitions: buildsys.Definitions{"ENABLE_FLOAT": buildsys.Bool(true)},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := a.Build(ctx, build, buildsys.Settings{Jobs: 2}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := a.Install(ctx, build, stage); err != nil {
		t.Fatalf("install: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(stage, "args.txt"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "--prefix="+stage+" --enable-float" {
		t.Errorf("configure args = %q", got)
	}
}
