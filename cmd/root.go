package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "ratbuild",
	Short:         "Native build orchestrator for ratsat",
	Long:          `Builds the ratsat native libraries, the IPASIR shim, the Ruby extension stub and the ratsat binary in dependency order, then places every artifact where its consumer expects it.`,
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		code := codes.ExitCode(err)
		if code == codes.ExitUsage && ctx.Err() != nil {
			code = codes.ExitInterrupted
		}

		fmt.Fprintln(os.Stderr, failureLine(err, code))
		os.Exit(code)
	}
}

// failureLine is the single top-level message printed for a failed run.
func failureLine(err error, code int) string {
	return fmt.Sprintf("ratbuild: %s (exit %d): %v", codes.GetExitMessage(code), code, err)
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().IntP("jobs", "j", 1, "Maximum targets built concurrently within a wave")
	rootCmd.PersistentFlags().String("profile", "", "Build profile (debug or release)")
	rootCmd.PersistentFlags().String("root", "", "Workspace root (defaults to the directory of the nearest .ratbuild config)")
	rootCmd.PersistentFlags().String("cargo", "", "Native compiler executable")
	rootCmd.PersistentFlags().String("extra-flags", "", "Whitespace separated flags appended to every compiler invocation")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console or json)")
	rootCmd.Flags().String("targets", "", "Comma separated targets to build, with their dependencies")

	rootCmd.AddCommand(buildCmd, buildDebugCmd, buildIPASIRCmd, buildStubCmd, checkCmd, cleanCmd, testCmd, planCmd)
}
