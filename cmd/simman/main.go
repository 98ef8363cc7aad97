package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"simman/internal/config"
	"simman/internal/doctor"
	"simman/internal/manager"
	"simman/internal/metadata"
)

type ExitCoder interface {
	ExitCode() int
}

func main() {
	// Optional .env beside the invocation, for SIMMAN_ROOT and friends.
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var jsonOutput bool

	loadRoot := func() (string, error) {
		cfg, err := config.Ensure(configPath)
		if err != nil {
			return "", err
		}
		return config.ResolveRoot(cfg)
	}

	cmd := &cobra.Command{
		Use:           "simman",
		Short:         "Manage reproducible simulation output directories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newInitCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newListCmd(loadRoot, &jsonOutput))
	cmd.AddCommand(newCleanCmd(loadRoot, &jsonOutput))
	cmd.AddCommand(newDescribeCmd(&jsonOutput))
	cmd.AddCommand(newDoctorCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

func newInitCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and storage root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Storage.Root = root
				if err := config.Save(*configPath, cfg); err != nil {
					return err
				}
			}
			resolved, err := config.ResolveRoot(cfg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"root": resolved},
				"storage root ready at "+resolved)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "storage root to record in the config")
	return cmd
}

func newListCmd(loadRoot func() (string, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list [run]",
		Aliases: []string{"ls"},
		Short:   "List output directories and their status",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadRoot()
			if err != nil {
				return err
			}
			var infos []manager.OutputDirInfo
			if len(args) == 1 {
				infos, err = manager.ScanRun(root, args[0])
			} else {
				infos, err = manager.Scan(root)
			}
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, infos, "")
			}
			if len(infos) == 0 {
				fmt.Println("no output directories found")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%-9s %s/%s\n", info.Status, info.Run, info.Params)
			}
			return nil
		},
	}
}

func newCleanCmd(loadRoot func() (string, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <run>",
		Short: "Remove aborted output directories of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadRoot()
			if err != nil {
				return err
			}
			removed, err := manager.CleanAborted(root, args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, map[string]any{"removed": removed}, "")
			}
			if len(removed) == 0 {
				fmt.Println("nothing to clean")
				return nil
			}
			for _, path := range removed {
				fmt.Println("removed " + path)
			}
			return nil
		},
	}
}

func newDescribeCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <output-dir>",
		Short: "Show the recorded description and commit of an output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := metadata.ReadDescription(args[0])
			if err != nil {
				return err
			}
			commit := ""
			if blob, err := os.ReadFile(filepath.Join(args[0], metadata.CommitIDFile)); err == nil {
				commit = string(blob)
			}
			if *jsonOutput {
				return print(true, map[string]any{"description": desc, "commit": commit}, "")
			}
			fmt.Printf("title:    %s\nreason:   %s\nresult:   %s\nkeywords: %s\ncommit:   %s\n",
				desc.Title, desc.Reason, desc.Result, desc.Keywords, commit)
			return nil
		},
	}
}

func newDoctorCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Run environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := &doctor.Service{ConfigPath: *configPath}
			report := svc.Run(context.Background())
			if *jsonOutput {
				return print(true, report, "")
			}
			if report.Healthy {
				fmt.Println("healthy")
				return nil
			}
			fmt.Println("issues found:")
			for _, f := range report.Findings {
				fmt.Printf("- [%s] %s\n", f.Code, f.Message)
			}
			return fmt.Errorf("environment not healthy")
		},
	}
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
