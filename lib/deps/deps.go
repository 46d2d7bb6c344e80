// Package deps checks for the external tools a recording needs and offers to
// install missing ones through the platform package manager.
package deps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/tchung1970/record/lib/logger"
)

// PackageManager installs tools on one platform.
type PackageManager struct {
	Name       string
	Binary     string
	InstallURL string
	// Install is the command line that installs a package, without the package name.
	Install []string
}

// CommandFor is the full install command line for pkg.
func (m PackageManager) CommandFor(pkg string) []string {
	return append(append([]string(nil), m.Install...), pkg)
}

var managers = map[string]PackageManager{
	"darwin": {
		Name:       "Homebrew",
		Binary:     "brew",
		InstallURL: "https://brew.sh",
		Install:    []string{"brew", "install"},
	},
	"linux": {
		Name:       "apt",
		Binary:     "apt-get",
		InstallURL: "https://wiki.debian.org/Apt",
		Install:    []string{"sudo", "apt-get", "install", "-y"},
	},
}

// ManagerFor returns the package manager used on goos.
func ManagerFor(goos string) (PackageManager, bool) {
	m, ok := managers[goos]
	return m, ok
}

var lookPath = exec.LookPath

// runCommand runs name to completion. A non-nil out makes the command
// interactive: it inherits stdin and its output goes to out.
var runCommand = func(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out != nil {
		cmd.Stdin = os.Stdin
		cmd.Stdout = out
		cmd.Stderr = out
	}
	return cmd.Run()
}

// Lookup resolves tool on PATH.
func Lookup(tool string) (string, error) {
	path, err := lookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMissingDependency, tool, err)
	}
	return path, nil
}

// Check verifies tool is on PATH and answers `<tool> -version`.
func Check(ctx context.Context, tool string) error {
	path, err := Lookup(tool)
	if err != nil {
		return err
	}
	if err := runCommand(ctx, nil, path, "-version"); err != nil {
		return fmt.Errorf("%w: %s -version: %w", ErrMissingDependency, tool, err)
	}
	return nil
}

// Checker offers to install missing tools, prompting on In and reporting on Out.
type Checker struct {
	In  io.Reader
	Out io.Writer
	// GOOS selects the package manager. Empty means runtime.GOOS.
	GOOS string

	in *bufio.Reader
}

func NewChecker(in io.Reader, out io.Writer) *Checker {
	return &Checker{In: in, Out: out}
}

// CheckAndInstall reports whether tool is usable, installing it first when
// it is missing and the user agrees. The error is non-nil only when reading
// the answer fails or ctx is done.
func (c *Checker) CheckAndInstall(ctx context.Context, tool string) (bool, error) {
	log := logger.FromContext(ctx)

	err := Check(ctx, tool)
	if err == nil {
		return true, nil
	}
	log.Info("dependency check failed", "tool", tool, "err", err)

	fmt.Fprintf(c.Out, "Missing dependency: %s\n", tool)

	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	mgr, ok := ManagerFor(goos)
	if !ok {
		fmt.Fprintf(c.Out, "Please install %s manually and try again.\n", tool)
		return false, nil
	}
	if _, err := Lookup(mgr.Binary); err != nil {
		fmt.Fprintf(c.Out, "%s is required to install %s.\n", mgr.Name, tool)
		fmt.Fprintf(c.Out, "Install it from %s and try again.\n", mgr.InstallURL)
		return false, nil
	}

	install := mgr.CommandFor(tool)
	answer, err := c.ask("Install missing dependencies now? (Y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
	default:
		fmt.Fprintf(c.Out, "Skipping installation. Install it manually with: %s\n", strings.Join(install, " "))
		return false, nil
	}

	fmt.Fprintf(c.Out, "Installing %s...\n", tool)
	if err := runCommand(ctx, c.Out, install[0], install[1:]...); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Error("install failed", "tool", tool, "manager", mgr.Name, "err", err)
		fmt.Fprintf(c.Out, "Failed to install %s: %v\n", tool, err)
		return false, nil
	}
	if err := Check(ctx, tool); err != nil {
		fmt.Fprintf(c.Out, "%s still unavailable after install: %v\n", tool, err)
		return false, nil
	}
	fmt.Fprintf(c.Out, "%s installed.\n", tool)
	return true, nil
}

func (c *Checker) ask(prompt string) (string, error) {
	if c.in == nil {
		// Share the caller's buffer so later prompts see the rest of the input.
		if br, ok := c.In.(*bufio.Reader); ok {
			c.in = br
		} else {
			c.in = bufio.NewReader(c.In)
		}
	}
	fmt.Fprint(c.Out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		// closed input is a refusal
		return "n", nil
	}
	return strings.TrimSpace(line), nil
}
