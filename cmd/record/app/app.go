// Package app is the interactive front end of the recorder: it checks for
// ffmpeg, lets the user pick an application, and runs one recording session.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tchung1970/record/cmd/config"
	"github.com/tchung1970/record/lib/appcatalog"
	"github.com/tchung1970/record/lib/capture"
	"github.com/tchung1970/record/lib/deps"
	"github.com/tchung1970/record/lib/displaysleep"
	"github.com/tchung1970/record/lib/logger"
	"github.com/tchung1970/record/lib/session"
)

const entireScreen = "Entire screen"

// DependencyChecker makes sure an external tool is usable.
type DependencyChecker interface {
	CheckAndInstall(ctx context.Context, tool string) (bool, error)
}

type App struct {
	Config   *config.Config
	Catalog  appcatalog.Catalog
	Deps     DependencyChecker
	Launcher capture.Launcher
	GOOS     string
	// ClearScreen wipes the terminal before the banner. Set it only when the
	// output is a terminal.
	ClearScreen bool
	// ConfigureSession, if set, adjusts each session before it runs.
	ConfigureSession func(*session.Session)

	in     *os.File
	prompt *prompter
	out    *Formatter
	now    func() time.Time
}

// selection is the user's choice from the application menu.
type selection struct {
	app        string
	fullScreen bool
}

func (s selection) label() string {
	if s.fullScreen {
		return "the entire screen"
	}
	return s.app
}

// New wires the app for the running platform. in is prompted for answers and
// polled for the cancel key while recording.
func New(cfg *config.Config, in *os.File, out io.Writer) *App {
	a := &App{
		Config:   cfg,
		Catalog:  appcatalog.New(),
		Launcher: capture.NewFFmpegLauncher(cfg.PathToFFmpeg, cfg.Display, cfg.StopTimeout, displaysleep.New()),
		GOOS:     runtime.GOOS,
		in:       in,
		prompt:   newPrompter(in, out),
		out:      NewFormatter(out),
		now:      time.Now,
	}
	a.Deps = deps.NewChecker(a.prompt.r, out)
	return a
}

// Run goes through the whole interactive flow once. Declining, quitting and
// an empty application list return nil.
func (a *App) Run(ctx context.Context) error {
	err := a.run(ctx)
	switch {
	case err == nil, errors.Is(err, errQuit):
		return nil
	case errors.Is(err, context.Canceled):
		a.out.Info("Recording cancelled.")
		return reportedError{err}
	case Reported(err):
		return err
	default:
		a.report(err)
		return reportedError{err}
	}
}

func (a *App) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if a.ClearScreen {
		a.out.Clear()
	}
	a.out.Banner("Screen Recording Tool")

	if err := a.checkFFmpeg(ctx); err != nil {
		return err
	}

	apps, err := a.Catalog.ListCandidateApps(ctx)
	if err != nil {
		log.Warn("failed to list applications", "err", err)
		a.out.Warning(fmt.Sprintf("Could not list applications: %v", err))
	}
	if len(apps) == 0 {
		a.out.Info("No suitable applications found.")
		return nil
	}

	sel, err := a.choose(ctx, apps)
	if err != nil {
		return err
	}

	a.out.Tip("Press ESC at any time to stop the recording early.")
	ok, err := a.prompt.confirm(ctx, fmt.Sprintf("Record %s for %d seconds? (Y/n): ", sel.label(), a.Config.Duration))
	if err != nil {
		return err
	}
	if !ok {
		a.out.Info("Recording cancelled.")
		return nil
	}

	output, err := a.outputPath(ctx)
	if err != nil {
		return err
	}

	var geometry *capture.Geometry
	if !sel.fullScreen {
		geometry = a.lookupGeometry(ctx, sel.app)
	}

	return a.record(ctx, session.Request{
		Duration:   a.Config.Duration,
		Geometry:   geometry,
		OutputPath: output,
	})
}

func (a *App) checkFFmpeg(ctx context.Context) error {
	tool := a.Config.PathToFFmpeg
	if strings.ContainsRune(tool, filepath.Separator) {
		// an explicit path can be verified but not installed
		if err := deps.Check(ctx, tool); err != nil {
			return err
		}
		return nil
	}
	ok, err := a.Deps.CheckAndInstall(ctx, tool)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", deps.ErrMissingDependency, tool)
	}
	return nil
}

func (a *App) choose(ctx context.Context, apps []string) (selection, error) {
	if len(apps) == 1 {
		a.out.Info(fmt.Sprintf("Found one application: %s", apps[0]))
		a.warnIfDRM(apps[0])
		return selection{app: apps[0]}, nil
	}

	a.out.AppList(apps, appcatalog.IsKnownDRMProtected)
	for _, app := range apps {
		if appcatalog.IsKnownDRMProtected(app) {
			a.out.DRMWarning()
			break
		}
	}

	answer, err := a.prompt.ask(ctx, fmt.Sprintf("Select an application (1-%d, Enter for 1, q to quit): ", len(apps)+1))
	if err != nil {
		return selection{}, err
	}
	sel, err := parseSelection(answer, apps)
	switch {
	case errors.Is(err, errQuit):
		return selection{}, err
	case errors.Is(err, ErrInvalidSelection):
		logger.FromContext(ctx).Info("invalid selection", "answer", answer)
		a.out.Warning(fmt.Sprintf("Invalid selection, recording %s.", apps[0]))
	}
	return sel, nil
}

func (a *App) warnIfDRM(app string) {
	if appcatalog.IsKnownDRMProtected(app) {
		a.out.DRMWarning()
	}
}

// parseSelection resolves a menu answer. On ErrInvalidSelection the returned
// selection is the first application.
func parseSelection(answer string, apps []string) (selection, error) {
	answer = strings.TrimSpace(answer)
	switch strings.ToLower(answer) {
	case "":
		return selection{app: apps[0]}, nil
	case "q", "quit", "exit":
		return selection{}, errQuit
	}
	n, err := strconv.Atoi(answer)
	switch {
	case err != nil, n < 1, n > len(apps)+1:
		return selection{app: apps[0]}, fmt.Errorf("%w: %q", ErrInvalidSelection, answer)
	case n == len(apps)+1:
		return selection{fullScreen: true}, nil
	default:
		return selection{app: apps[n-1]}, nil
	}
}

func (a *App) outputPath(ctx context.Context) (string, error) {
	def := filepath.Join(a.Config.OutputDir, DefaultFileName(a.now()))
	answer, err := a.prompt.ask(ctx, fmt.Sprintf("Output file [%s]: ", def))
	if err != nil {
		return "", err
	}
	path := def
	if answer != "" {
		path = answer
		if filepath.Ext(path) == "" {
			path += ".mov"
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	return path, nil
}

// DefaultFileName is the timestamped name used when the user accepts the default.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("screen_recording_%s.mov", t.Format("20060102_150405"))
}

// lookupGeometry finds the window to crop to. Failures fall back to the whole display.
func (a *App) lookupGeometry(ctx context.Context, app string) *capture.Geometry {
	g, err := a.Catalog.GetWindowGeometry(ctx, app)
	if err != nil {
		logger.FromContext(ctx).Warn("window geometry lookup failed", "app", app, "err", err)
		a.out.Warning(fmt.Sprintf("Could not locate the %s window, recording the entire screen.", app))
		return nil
	}
	if g == nil {
		a.out.Info(fmt.Sprintf("%s has no open window, recording the entire screen.", app))
		return nil
	}
	a.out.Info(fmt.Sprintf("Recording the %s window at %s.", app, g))
	return g
}

func (a *App) record(ctx context.Context, req session.Request) error {
	s := session.New(a.Launcher, a.in, a.prompt.w)
	s.PreRoll = a.Config.PreRoll
	if a.ConfigureSession != nil {
		a.ConfigureSession(s)
	}

	res, err := s.Run(ctx, req)
	if err != nil {
		return err
	}

	if res.Cancelled {
		a.out.Info(fmt.Sprintf("Recording stopped early after %s.", res.Elapsed.Round(time.Second)))
	}
	if res.Artifact == nil {
		a.out.Warning(fmt.Sprintf("Recording finished but nothing was written to %s.", req.OutputPath))
		return nil
	}
	a.out.Success(fmt.Sprintf("Recording saved: %s (%s)", res.Artifact.Path, humanize.Bytes(uint64(res.Artifact.Size))))
	return nil
}

func (a *App) report(err error) {
	switch {
	case errors.Is(err, deps.ErrMissingDependency):
		a.out.Error("ffmpeg is required to record the screen.")
	case errors.Is(err, capture.ErrPermissionDenied):
		a.out.Error("Screen recording permission was denied.")
	default:
		a.out.Error(fmt.Sprintf("Recording failed: %v", err))
	}
	a.out.Hint(Hint(err, a.GOOS))
}
