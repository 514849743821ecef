package runner

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/randomizedcoder/go-linux-launcher/internal/config"
	"github.com/randomizedcoder/go-linux-launcher/internal/launcher"
	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	return full
}

func TestResolveTarget_Direct(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Binary = "/opt/app"
	cfg.Args = []string{"-x", "1"}
	cfg.Env = []string{"A=1", "bogus", "B=2"}

	target, err := ResolveTarget(cfg)
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}

	if target.Mode() != launcher.ModeDirect {
		t.Errorf("Mode() = %s, want direct", target.Mode())
	}
	if want := []string{"/opt/app", "-x", "1"}; !slices.Equal(target.Argv(), want) {
		t.Errorf("Argv() = %q, want %q", target.Argv(), want)
	}
	if want := []string{"A=1", "B=2"}; !slices.Equal(target.Env, want) {
		t.Errorf("Env = %q, want %q", target.Env, want)
	}

	req := target.Request(spawn.Stdio{})
	if req.Path != "/opt/app" || !slices.Equal(req.Argv, target.Argv()) {
		t.Errorf("Request() = %+v", req)
	}
}

func TestResolveTarget_LooksUpBareName(t *testing.T) {
	want, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not in PATH")
	}

	cfg := config.DefaultConfig()
	cfg.Binary = "sh"
	target, err := ResolveTarget(cfg)
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if target.Binary != want {
		t.Errorf("Binary = %s, want %s", target.Binary, want)
	}
}

func TestResolveTarget_UnknownBareName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Binary = "no-such-command-for-launcher-tests"
	if _, err := ResolveTarget(cfg); err == nil {
		t.Error("ResolveTarget() should fail for an unknown command")
	}
}

func TestResolveTarget_InheritEnv(t *testing.T) {
	t.Setenv("LAUNCHER_TEST_INHERITED", "host")

	cfg := config.DefaultConfig()
	cfg.Binary = "/opt/app"
	cfg.InheritEnv = true
	cfg.Env = []string{"LAUNCHER_TEST_INHERITED=override", "EXTRA=1"}

	target, err := ResolveTarget(cfg)
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if !slices.Contains(target.Env, "LAUNCHER_TEST_INHERITED=override") {
		t.Error("override should replace the inherited value")
	}
	if slices.Contains(target.Env, "LAUNCHER_TEST_INHERITED=host") {
		t.Error("inherited value should be replaced")
	}
	if !slices.Contains(target.Env, "EXTRA=1") {
		t.Error("new entry should be appended")
	}
}

func TestResolveTarget_Linker(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Binary = "/opt/root/bin/app"
	cfg.Args = []string{"--flag"}
	cfg.Linker = "/opt/root/lib/ld-linux-x86-64.so.2"
	cfg.LibraryPath = "/opt/root/lib"

	target, err := ResolveTarget(cfg)
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}

	if target.Mode() != launcher.ModeLinker {
		t.Errorf("Mode() = %s, want linker", target.Mode())
	}
	want := []string{
		"/opt/root/lib/ld-linux-x86-64.so.2",
		"--library-path", "/opt/root/lib",
		"/opt/root/bin/app", "--flag",
	}
	if !slices.Equal(target.Argv(), want) {
		t.Errorf("Argv() = %q, want %q", target.Argv(), want)
	}

	req := target.LinkerRequest(spawn.Stdio{})
	if req.Linker != cfg.Linker || req.Path != cfg.Binary || !slices.Equal(req.Argv, cfg.Args) {
		t.Errorf("LinkerRequest() = %+v", req)
	}
}

func TestResolveTarget_RootFS(t *testing.T) {
	root := t.TempDir()
	linker := writeFile(t, root, "lib64/ld-linux-x86-64.so.2")
	binary := writeFile(t, root, "usr/bin/app")
	writeFile(t, root, "bin/bash")

	t.Run("binary", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.RootFS = root
		cfg.Binary = "/usr/bin/app"
		cfg.Args = []string{"arg"}

		target, err := ResolveTarget(cfg)
		if err != nil {
			t.Fatalf("ResolveTarget() error = %v", err)
		}
		if target.Linker != linker || target.Binary != binary {
			t.Errorf("linker = %s binary = %s", target.Linker, target.Binary)
		}
		if !strings.Contains(target.LibraryPath, filepath.Join(root, "lib64")) {
			t.Errorf("LibraryPath = %s", target.LibraryPath)
		}
		if !slices.Equal(target.Args, []string{"arg"}) {
			t.Errorf("Args = %q", target.Args)
		}

		req := target.LinkerRequest(spawn.Stdio{})
		if req.Linker != linker || req.Path != binary || !slices.Equal(req.Argv, []string{"arg"}) {
			t.Errorf("LinkerRequest() = %+v", req)
		}
		if !slices.Equal(req.Env, target.Env) {
			t.Errorf("LinkerRequest().Env = %q, want %q", req.Env, target.Env)
		}
		if want := spawn.LinkerArgv(linker, target.LibraryPath, binary, []string{"arg"}); !slices.Equal(target.Argv(), want) {
			t.Errorf("Argv() = %q, want %q", target.Argv(), want)
		}
	})

	t.Run("shell", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.RootFS = root
		cfg.Command = "echo hi"

		target, err := ResolveTarget(cfg)
		if err != nil {
			t.Fatalf("ResolveTarget() error = %v", err)
		}
		if target.Binary != filepath.Join(root, "bin/bash") {
			t.Errorf("Binary = %s", target.Binary)
		}
		if want := []string{"-i", "-c", "echo hi"}; !slices.Equal(target.Args, want) {
			t.Errorf("Args = %q, want %q", target.Args, want)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.RootFS = root
		cfg.Binary = "/usr/bin/missing"
		if _, err := ResolveTarget(cfg); err == nil {
			t.Error("ResolveTarget() should fail for a missing binary")
		}
	})
}

func TestTarget_CommandString(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "plain",
			target: Target{Binary: "/bin/echo", Args: []string{"hello"}},
			want:   "/bin/echo hello",
		},
		{
			name:   "quoted args",
			target: Target{Binary: "/bin/echo", Args: []string{"a b", ""}},
			want:   `/bin/echo 'a b' ''`,
		},
		{
			name:   "env",
			target: Target{Binary: "/bin/env", Env: []string{"PATH=/bin", "MSG=x y"}},
			want:   `env -i PATH=/bin 'MSG=x y' /bin/env`,
		},
		{
			name: "linker",
			target: Target{
				Binary:      "/r/bin/app",
				Linker:      "/r/lib/ld.so",
				LibraryPath: "/r/lib:/r/usr/lib",
			},
			want: "/r/lib/ld.so --library-path /r/lib:/r/usr/lib /r/bin/app",
		},
		{
			name:   "shell metacharacters",
			target: Target{Binary: "/bin/echo", Args: []string{"$HOME", "`id -u`", "it's"}},
			want:   `/bin/echo '$HOME' '` + "`id -u`" + `' 'it'"'"'s'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.CommandString(); got != tt.want {
				t.Errorf("CommandString() = %q, want %q", got, tt.want)
			}
		})
	}
}

// The printed command must reproduce the exact argv when run by a shell.
func TestTarget_CommandStringShellRoundTrip(t *testing.T) {
	sh := "/bin/sh"
	if _, err := os.Stat(sh); err != nil {
		t.Skip("/bin/sh not available")
	}
	printf, err := exec.LookPath("printf")
	if err != nil {
		t.Skip("printf not in PATH")
	}
	envBin, err := exec.LookPath("env")
	if err != nil {
		t.Skip("env not in PATH")
	}

	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name: "args",
			target: Target{
				Binary: printf,
				Args:   []string{`%s\n`, "$HOME", "`id -u`", "it's", "a b", "", "*", "x;y|z"},
			},
			want: "$HOME\n`id -u`\nit's\na b\n\n*\nx;y|z\n",
		},
		{
			name: "env",
			target: Target{
				Binary: envBin,
				Env:    []string{"V=$HOME `id -u`"},
			},
			want: "V=$HOME `id -u`\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := exec.Command(sh, "-c", tt.target.CommandString()).Output()
			if err != nil {
				t.Fatalf("sh -c %q: %v", tt.target.CommandString(), err)
			}
			if string(out) != tt.want {
				t.Errorf("sh -c %q printed %q, want %q", tt.target.CommandString(), out, tt.want)
			}
		})
	}
}
