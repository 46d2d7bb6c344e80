package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tchung1970/record/lib/appcatalog"
	"github.com/tchung1970/record/lib/deps"
)

type checkResult struct {
	name   string
	ok     bool
	detail string
}

// Doctor probes every prerequisite concurrently and prints a check list in a
// fixed order. It reports whether a recording can run.
func (a *App) Doctor(ctx context.Context) bool {
	probes := []func(context.Context) checkResult{
		a.probeFFmpeg,
		a.probePackageManager,
		a.probeCatalogHelper,
		a.probeOutputDir,
	}
	results := make([]checkResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		g.Go(func() error {
			results[i] = probe(gctx)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintln(a.prompt.w, "Checking prerequisites:")
	ok := true
	for _, r := range results {
		a.out.SetupCheck(r.name, r.ok, r.detail)
		ok = ok && r.ok
	}
	if a.GOOS == "darwin" {
		a.out.SetupCheck("Screen recording", true, "permission will be requested on first recording")
	}

	fmt.Fprintln(a.prompt.w)
	if ok {
		a.out.Success("All prerequisites met. Ready to record!")
	} else {
		a.out.Warning("Some prerequisites are missing.")
	}
	return ok
}

func (a *App) probeFFmpeg(ctx context.Context) checkResult {
	r := checkResult{name: "ffmpeg"}
	if err := deps.Check(ctx, a.Config.PathToFFmpeg); err != nil {
		r.detail = "not found"
		if mgr, ok := deps.ManagerFor(a.GOOS); ok {
			r.detail += ". Install with: " + strings.Join(mgr.CommandFor("ffmpeg"), " ")
		}
		return r
	}
	r.ok, r.detail = true, "installed"
	return r
}

func (a *App) probePackageManager(context.Context) checkResult {
	mgr, ok := deps.ManagerFor(a.GOOS)
	if !ok {
		return checkResult{name: "Package manager", ok: true, detail: "none for " + a.GOOS + ", install tools manually"}
	}
	r := checkResult{name: mgr.Name}
	if _, err := deps.Lookup(mgr.Binary); err != nil {
		r.detail = "not found. Install it from " + mgr.InstallURL
		return r
	}
	r.ok, r.detail = true, "installed"
	return r
}

func (a *App) probeCatalogHelper(context.Context) checkResult {
	bin := appcatalog.HelperBinary(a.GOOS)
	if bin == "" {
		return checkResult{name: "Window listing", detail: "not supported on " + a.GOOS}
	}
	r := checkResult{name: bin}
	if _, err := deps.Lookup(bin); err != nil {
		r.detail = "not found, applications cannot be listed"
		if mgr, ok := deps.ManagerFor(a.GOOS); ok && a.GOOS == "linux" {
			r.detail += ". Install with: " + strings.Join(mgr.CommandFor(bin), " ")
		}
		return r
	}
	r.ok, r.detail = true, "installed"
	return r
}

func (a *App) probeOutputDir(context.Context) checkResult {
	r := checkResult{name: "Output directory"}
	fi, err := os.Stat(a.Config.OutputDir)
	switch {
	case os.IsNotExist(err):
		r.ok, r.detail = true, a.Config.OutputDir+" (created on first recording)"
	case err != nil:
		r.detail = err.Error()
	case !fi.IsDir():
		r.detail = a.Config.OutputDir + " is not a directory"
	default:
		r.ok, r.detail = true, a.Config.OutputDir
	}
	return r
}
