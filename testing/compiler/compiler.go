package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type Compiler struct {
	dir     string
	ldFlags string
}

func New() *Compiler {
	tempDir, err := os.MkdirTemp("", "acceptance-tests")
	if err != nil {
		panic(err)
	}

	return &Compiler{
		dir:     tempDir,
		ldFlags: "-w -s",
	}
}

func (c *Compiler) Dir() string {
	return c.dir
}

func (c *Compiler) Cleanup() {
	_ = os.RemoveAll(c.dir)
}

type Work struct {
	Name string
	// Target is the directory the build runs in, usually the module root
	Target string
	// Source is the main package to build
	Source      string
	Environment []string

	// Result, if set, receives the path of the built binary
	Result *string
}

// Compile builds a binary for testing, returning its path.
func (c *Compiler) Compile(ctx context.Context, work Work) (string, error) {
	cwd, err := filepath.Abs(work.Target)
	if err != nil {
		return "", err
	}

	goos := runtime.GOOS
	for _, e := range work.Environment {
		if strings.HasPrefix(e, "GOOS=") {
			goos = strings.SplitN(e, "=", 2)[1]
		}
	}

	path := binaryPath(work.Name, c.dir, goos)
	// #nosec - this is fine
	cmd := exec.CommandContext(ctx, goPath(), "build",
		"-ldflags="+c.ldFlags,
		"-o", path,
		work.Source,
	)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Env = append(cmd.Env, work.Environment...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err != nil {
		return "", err
	}

	if work.Result != nil {
		*work.Result = path
	}
	return path, nil
}

func goPath() string {
	goroot := os.Getenv("GOROOT")
	if goroot == "" {
		return "go"
	}
	return filepath.Join(goroot, "bin", "go")
}

func binaryPath(name, dir, goos string) string {
	path := filepath.Join(dir, name)
	if goos == "windows" {
		return path + ".exe"
	}
	return path
}
