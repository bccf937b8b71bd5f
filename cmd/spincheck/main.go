// Command `spincheck` validates a Spinnaker-style deployment configuration
// before the services start.
//
// It loads the flat KEY=VALUE bindings from <config_dir>/spinnaker_config.cfg
// and runs a fixed sequence of domain checks: GCE scopes and provider
// identity, AWS credentials, Docker and Jenkins addresses, and file
// permission hygiene. Every violation is reported; the exit status is zero
// only when the run is clean, so the tool slots into provisioning automation.
//
// Usage:
//
//	spincheck validate [--config-dir DIR] [--json] [--resolve]
//	spincheck version
//
// The tool must run as root: it reads credential files that should be
// owner-only, and refuses to start otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spincheck/spincheck/internal/bindings"
	"github.com/spincheck/spincheck/internal/buildinfo"
	"github.com/spincheck/spincheck/internal/check"
	"github.com/spincheck/spincheck/internal/config"
	"github.com/spincheck/spincheck/internal/filesys"
	"github.com/spincheck/spincheck/internal/log"
	"github.com/spincheck/spincheck/internal/metadata"
	"github.com/spincheck/spincheck/internal/netcheck"
	"github.com/spincheck/spincheck/pkg/report"
)

func main() {
	root := &cobra.Command{
		Use:   "spincheck",
		Short: "Deployment configuration validator",
		Long: `Spincheck validates a deployment's configuration file against a fixed
set of domain rules before the services start: cloud-provider credentials,
host/port address syntax, boolean flags, and file-permission hygiene.
All violations are reported in one run; the exit status is zero only when
the configuration is clean.`,
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- validate command ----
	var (
		settingsPath string
		configDir    string
		asJSON       bool
		resolve      bool
	)
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the deployment configuration",
		Long: `Validate the deployment configuration file and report every violation.

Examples:
  spincheck validate                         Validate /opt/spinnaker/config/spinnaker_config.cfg
  spincheck validate --config-dir /etc/spin  Validate a configuration in another directory
  spincheck validate --json                  Emit the report as JSON for automation
  spincheck validate --resolve               Also resolve configured address hosts via DNS`,
		Example: "spincheck validate --json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			// Credential files are owner-only, so reading them needs root.
			if os.Geteuid() != 0 {
				log.Fatal("spincheck must run as root")
			}

			settings, err := config.NewWithPath(filesys.OS(), settingsPath).Load()
			if err != nil {
				return fmt.Errorf("settings error: %w", err)
			}
			if configDir != "" {
				settings.ConfigDir = configDir
			}

			fsys := filesys.OS()
			cfgPath := settings.ConfigFilePath()

			b, err := bindings.NewLoader(fsys, cfgPath).Load()
			if err != nil {
				return fmt.Errorf("loading %s: %w", cfgPath, err)
			}

			opts := []check.Opt{check.WithFS(fsys)}
			if resolve {
				res := netcheck.New(settings.DNSTimeout,
					netcheck.WithServers(settings.DNSServers))
				opts = append(opts, check.WithResolver(res))
			}

			v := check.New(b, cfgPath, metadata.New(settings.MetadataTimeout), opts...)
			rep, err := v.Validate(cmd.Context())
			if err != nil {
				// The project-id fetch is the one unrecoverable dependency.
				log.Fatalf("validation aborted: %v", err)
			}

			if asJSON {
				if err := report.WriteJSON(os.Stdout, rep); err != nil {
					return err
				}
			} else {
				render(rep)
			}

			if !rep.OK() {
				os.Exit(1)
			}
			return nil
		},
	}
	validateCmd.Flags().StringVar(&settingsPath, "settings",
		config.DefaultSettingsPath, "path of the spincheck settings file")
	validateCmd.Flags().StringVar(&configDir, "config-dir", "",
		"override the configured deployment configuration directory")
	validateCmd.Flags().BoolVar(&asJSON, "json", false,
		"emit the report as JSON")
	validateCmd.Flags().BoolVar(&resolve, "resolve", false,
		"also resolve configured address hosts via DNS")

	root.AddCommand(validateCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// render prints the human-readable summary to stdout.
func render(rep *report.Report) {
	if rep.OK() {
		color.New(color.FgGreen, color.Bold).Printf("✓ %s seems ok.\n", rep.ConfigPath)
		return
	}

	color.New(color.FgHiRed, color.Bold).Printf("%s seems to have configuration errors:\n", rep.ConfigPath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Field", "Detail"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgYellowColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
	)

	for _, f := range rep.Findings {
		table.Append([]string{f.Kind.String(), f.Field, f.Detail})
	}
	table.Render()
}
