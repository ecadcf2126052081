package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidsteg/internal/deps"
	"vidsteg/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			checks := preflight.RunAll(cmd.Context(), cfg)

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"dependencies": statuses,
					"directories":  checks,
					"healthy":      doctorHealthy(statuses, checks),
				})
			}

			report := newStatusReport(cmd.OutOrStdout())
			report.section("Dependencies")
			reportDependencies(report, statuses)
			fmt.Fprintln(report.out)
			report.section("Directories")
			for _, check := range checks {
				report.line(check.Name, checkStatus(check.Passed, false), check.Detail)
			}

			if report.failed() {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}

func reportDependencies(report *statusReport, statuses []deps.Status) {
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			switch {
			case dep.Version != "":
				message = fmt.Sprintf("Ready (%s)", dep.Version)
			case dep.Command != "":
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			report.line(dep.Name, statusOK, message)
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		report.line(dep.Name, checkStatus(false, dep.Optional), detail)
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		report.line("Missing dependencies", statusWarn, fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")))
	}
}

func doctorHealthy(statuses []deps.Status, checks []preflight.Result) bool {
	for _, dep := range statuses {
		if !dep.Available && !dep.Optional {
			return false
		}
	}
	return len(preflight.Failed(checks)) == 0
}
