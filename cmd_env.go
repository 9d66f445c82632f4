package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"telegram-deepseek-bot/internal/envspec"
)

var envFile string

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Build and activate the development environment descriptor",
}

var envCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the descriptor without resolving anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		spec, err := envspec.Parse(envFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (python %s, %d dependencies)\n",
			envFile, spec.InterpreterVersion, len(spec.Dependencies))
		return nil
	},
}

var envBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve the interpreter pin and every dependency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		spec, err := envspec.Parse(envFile)
		if err != nil {
			return err
		}
		env, err := envspec.Build(cmd.Context(), spec, nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "interpreter: %s (Python %s)\n", env.Interpreter.Path, env.Interpreter.Version)
		for _, dep := range spec.ParsedDependencies() {
			fmt.Fprintf(out, "dependency: %s (import %s) ok\n", dep.Name, dep.Module)
		}
		return nil
	},
}

var envVarsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Print the variables the descriptor exports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		spec, err := envspec.Parse(envFile)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(spec.ShellVariables))
		for name := range spec.ShellVariables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, spec.ShellVariables[name])
		}
		return nil
	},
}

var envActivateCmd = &cobra.Command{
	Use:   "activate [-- command [args...]]",
	Short: "Build the environment and enter it",
	Long: `Build the environment described by the descriptor and enter it. With no
arguments an interactive shell is spawned; with arguments the command runs
inside the environment and its exit code is propagated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := envspec.Parse(envFile)
		if err != nil {
			return err
		}
		env, err := envspec.Build(cmd.Context(), spec, nil)
		if err != nil {
			return err
		}
		code, err := env.Activate(cmd.Context(), envspec.ActivateOptions{Argv: args})
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	envCmd.PersistentFlags().StringVarP(&envFile, "file", "f", defaultEnvFile(), "path to the environment descriptor")
	envCmd.AddCommand(envCheckCmd, envBuildCmd, envVarsCmd, envActivateCmd)
	rootCmd.AddCommand(envCmd)
}

func defaultEnvFile() string {
	if path := os.Getenv("ENVSPEC_FILE"); path != "" {
		return path
	}
	return "envspec.cue"
}
