package cmd

import (
	"context"
	"os"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/config"
	"github.com/Norgate-AV/ratbuild/internal/logging"
	"github.com/Norgate-AV/ratbuild/internal/orchestrator"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/proc"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// newRunner creates the process runner. Streaming runners echo tool output
// to the console; quiet ones only capture it.
var newRunner = func(logger *log.Logger, stream bool) proc.Runner {
	if stream {
		return proc.NewExecRunner(logger)
	}

	return &proc.ExecRunner{Logger: logger}
}

// hostOS is the GOOS the platform profile is resolved for.
var hostOS = runtime.GOOS

// app is the per-invocation state shared by every command.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	runID  string
	runner proc.Runner
	quiet  proc.Runner
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd)
	if err != nil {
		return nil, codes.New(codes.ConfigInvalid, "", "config", err)
	}

	var logger *log.Logger
	if cfg.LogFormat == "json" {
		logger = logging.NewJSON(os.Stderr, cfg.Verbose)
	} else {
		logger = logging.New(os.Stderr, cfg.Verbose)
	}

	runID := uuid.NewString()
	logger = logging.WithRun(logger, runID)

	logger.Debug().
		Str("root", cfg.Root).
		Str("profile", string(cfg.Profile)).
		Int("jobs", cfg.Jobs).
		Strs("extra_flags", cfg.ExtraFlags).
		Msg("configuration loaded")

	return &app{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		runner: newRunner(logger, true),
		quiet:  newRunner(logger, false),
	}, nil
}

// checkToolchain rejects a missing or too old native compiler.
func (a *app) checkToolchain(ctx context.Context) error {
	v, err := compiler.CheckToolchain(ctx, a.quiet, a.cfg.Cargo, a.cfg.MinCargo)
	if err != nil {
		if ctx.Err() != nil {
			return codes.New(codes.Interrupted, "", "toolchain", err)
		}

		return codes.New(codes.ConfigInvalid, "", "toolchain", err)
	}

	a.logger.Debug().Str("cargo", v).Msg("toolchain ok")
	return nil
}

// resolveProfile resolves the platform profile once for the invocation. The
// foreign runtime is only probed when a stub is built on a host that links
// against it.
func (a *app) resolveProfile(ctx context.Context, targets []target.BuildTarget) (platform.Profile, error) {
	rt := a.cfg.Runtime

	needsStub := slices.ContainsFunc(targets, func(t target.BuildTarget) bool {
		return t.Kind == target.Stub
	})

	if needsStub && platform.NeedsRuntime(hostOS) {
		probed, err := platform.Probe(ctx, a.quiet, rt, a.cfg.LibDirQuery, a.cfg.LibNameQuery)
		if err != nil {
			return platform.Profile{}, codes.New(codes.ConfigInvalid, "", "platform", err)
		}

		rt = probed
	}

	p := platform.Resolve(hostOS, rt)

	a.logger.Debug().
		Str("class", string(p.Class)).
		Str("dylib_ext", p.DylibExt).
		Str("loader_ext", p.LoaderExt).
		Strs("link_flags", p.LinkFlags).
		Msg("platform resolved")

	return p, nil
}

// newGraph validates targets, comparing destinations as they will be after
// relocation under p.
func (a *app) newGraph(targets []target.BuildTarget, p platform.Profile) (*orchestrator.Graph, error) {
	g, err := orchestrator.NewGraphWithDestinations(targets, func(t target.BuildTarget) string {
		return artifact.ForTarget(t, p, nil, a.cfg.Root).Destination
	})
	if err != nil {
		return nil, codes.New(codes.ConfigInvalid, "", "graph", err)
	}

	return g, nil
}

// selectTargets applies the profile and narrows to the selection plus its
// dependencies. An empty selection keeps every target.
func (a *app) selectTargets(selection []string) ([]target.BuildTarget, error) {
	all := a.cfg.BuildTargets()
	if len(selection) == 0 {
		return all, nil
	}

	selected, err := target.Closure(all, selection)
	if err != nil {
		return nil, codes.New(codes.ConfigInvalid, "", "targets", err)
	}

	return selected, nil
}
