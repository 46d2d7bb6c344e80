package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSystem is a PATH plus the commands that were run against it.
type fakeSystem struct {
	installed  map[string]bool
	installErr error
	ran        []string
}

func (f *fakeSystem) stub(t *testing.T) {
	t.Helper()
	origLook, origRun := lookPath, runCommand
	lookPath = func(name string) (string, error) {
		if f.installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	runCommand = func(_ context.Context, out io.Writer, name string, args ...string) error {
		line := strings.TrimSpace(name + " " + strings.Join(args, " "))
		f.ran = append(f.ran, line)
		switch {
		case len(args) == 1 && args[0] == "-version":
			return nil
		case f.installErr != nil:
			return f.installErr
		default:
			f.installed[args[len(args)-1]] = true
			if out != nil {
				fmt.Fprintln(out, "installing", args[len(args)-1])
			}
			return nil
		}
	}
	t.Cleanup(func() { lookPath, runCommand = origLook, origRun })
}

func TestCheckAndInstall(t *testing.T) {
	testCases := []struct {
		name        string
		goos        string
		installed   []string
		input       string
		installErr  error
		want        bool
		wantOut     []string
		wantInstall string
	}{
		{
			name:      "already installed",
			goos:      "darwin",
			installed: []string{"ffmpeg"},
			want:      true,
		},
		{
			name:        "enter installs with brew",
			goos:        "darwin",
			installed:   []string{"brew"},
			input:       "\n",
			want:        true,
			wantOut:     []string{"Missing dependency: ffmpeg", "Install missing dependencies now? (Y/n)", "ffmpeg installed."},
			wantInstall: "brew install ffmpeg",
		},
		{
			name:        "yes installs with apt",
			goos:        "linux",
			installed:   []string{"apt-get", "sudo"},
			input:       "yes\n",
			want:        true,
			wantInstall: "sudo apt-get install -y ffmpeg",
		},
		{
			name:      "decline",
			goos:      "darwin",
			installed: []string{"brew"},
			input:     "n\n",
			want:      false,
			wantOut:   []string{"Skipping installation", "brew install ffmpeg"},
		},
		{
			name:      "closed input declines",
			goos:      "darwin",
			installed: []string{"brew"},
			input:     "",
			want:      false,
		},
		{
			name:    "no package manager",
			goos:    "darwin",
			input:   "y\n",
			want:    false,
			wantOut: []string{"Homebrew is required", "https://brew.sh"},
		},
		{
			name:    "unsupported platform",
			goos:    "plan9",
			want:    false,
			wantOut: []string{"install ffmpeg manually"},
		},
		{
			name:        "install fails",
			goos:        "linux",
			installed:   []string{"apt-get"},
			input:       "y\n",
			installErr:  errors.New("exit status 100"),
			want:        false,
			wantOut:     []string{"Failed to install ffmpeg"},
			wantInstall: "sudo apt-get install -y ffmpeg",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sys := &fakeSystem{installed: map[string]bool{}, installErr: tc.installErr}
			for _, name := range tc.installed {
				sys.installed[name] = true
			}
			sys.stub(t)

			var out bytes.Buffer
			c := NewChecker(strings.NewReader(tc.input), &out)
			c.GOOS = tc.goos

			got, err := c.CheckAndInstall(t.Context(), "ffmpeg")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			for _, s := range tc.wantOut {
				assert.Contains(t, out.String(), s)
			}
			if tc.wantInstall != "" {
				assert.Contains(t, sys.ran, tc.wantInstall)
			} else {
				for _, cmd := range sys.ran {
					assert.NotContains(t, cmd, "install", "nothing should have been installed")
				}
			}
		})
	}
}

func TestCheckAndInstallSharesReader(t *testing.T) {
	sys := &fakeSystem{installed: map[string]bool{"brew": true}}
	sys.stub(t)

	in := bufio.NewReader(strings.NewReader("y\nnext answer\n"))
	c := NewChecker(in, io.Discard)
	c.GOOS = "darwin"

	ok, err := c.CheckAndInstall(t.Context(), "ffmpeg")
	require.NoError(t, err)
	require.True(t, ok)

	rest, err := in.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "next answer\n", rest)
}

func TestCheck(t *testing.T) {
	sys := &fakeSystem{installed: map[string]bool{"ffmpeg": true}}
	sys.stub(t)

	require.NoError(t, Check(t.Context(), "ffmpeg"))
	assert.Equal(t, []string{"/usr/bin/ffmpeg -version"}, sys.ran)

	err := Check(t.Context(), "wmctrl")
	require.ErrorIs(t, err, ErrMissingDependency)
	require.ErrorIs(t, err, exec.ErrNotFound)
}

func TestCheckVersionFails(t *testing.T) {
	origLook, origRun := lookPath, runCommand
	t.Cleanup(func() { lookPath, runCommand = origLook, origRun })
	lookPath = func(name string) (string, error) { return "/opt/" + name, nil }
	runCommand = func(context.Context, io.Writer, string, ...string) error { return errors.New("exit status 1") }

	err := Check(t.Context(), "ffmpeg")
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "-version")
}

func TestManagerFor(t *testing.T) {
	m, ok := ManagerFor("darwin")
	require.True(t, ok)
	assert.Equal(t, []string{"brew", "install", "ffmpeg"}, m.CommandFor("ffmpeg"))
	assert.Equal(t, []string{"brew", "install"}, m.Install, "CommandFor must not modify Install")

	m, ok = ManagerFor("linux")
	require.True(t, ok)
	assert.Equal(t, "apt-get", m.Binary)

	_, ok = ManagerFor("windows")
	assert.False(t, ok)
}
