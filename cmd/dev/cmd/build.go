package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	binary        = "dist/bmpbang"
	mainPackage   = "./cmd/bmpbang"
	configPackage = "github.com/mklimuk/bitbang/config"
	builderImage  = "gophertribe/gobuild:1.25-bookworm"
)

// BuildCmd builds bmpbang natively or, for a foreign target, inside the builder image.
// Cgo stays enabled since the USB bridge backend links against hidapi.
func BuildCmd() *cobra.Command {
	var (
		version, targetOS, targetArch, crossOS, crossArch string
		noCache                                           bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the bmpbang binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetOS == runtime.GOOS && targetArch == runtime.GOARCH {
				if crossOS != "" && crossArch != "" {
					targetOS, targetArch = crossOS, crossArch
				}
				slog.Info("building", "binary", binary, "os", targetOS, "arch", targetArch, "version", version)
				return build.GoBuild(binary, mainPackage, build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     true,
					Arch:          targetArch,
					OS:            targetOS,
				})
			}
			// the builder image runs this tool again as a native build
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", targetOS, targetArch),
				[]string{"build", "--version", version, "--cross-os", crossOS, "--cross-arch", crossArch},
				build.DockerBuildOpts{NoCache: noCache, Image: builderImage})
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not use cache when building the app")
	cmd.Flags().StringVar(&version, "version", "latest", "version injected into the binary")
	cmd.Flags().StringVar(&targetOS, "os", runtime.GOOS, "os to build for")
	cmd.Flags().StringVar(&targetArch, "arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().StringVar(&crossOS, "cross-os", "", "os to cross-compile for")
	cmd.Flags().StringVar(&crossArch, "cross-arch", "", "arch to cross-compile for")
	return cmd
}
