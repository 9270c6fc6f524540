// cmd/draftvault/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"draftvault/internal/config"
	"draftvault/internal/document"
	"draftvault/internal/logger"
	"draftvault/internal/persist"
	"draftvault/internal/vault"
)

var (
	configPath string
	dataDir    string
)

func main() {
	root := &cobra.Command{
		Use:   "draftvault",
		Short: "Version and branch engine for design documents",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a draftvault.yaml config file")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the vault database")

	root.AddCommand(
		newSaveCmd(),
		newListCmd(),
		newCompareCmd(),
		newRestoreCmd(),
		newBranchCmd(),
		newExportCmd(),
		newImportCmd(),
		newClearCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func openVault() (*vault.Vault, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := persist.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open vault database: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})
	v, err := vault.New(store, cfg, vault.WithLogger(log))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		v.Close()
		store.Close()
	}
	return v, cleanup, nil
}

func readElements(path string) ([]document.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var elements []document.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parse elements: %w", err)
	}
	return elements, nil
}

func newSaveCmd() *cobra.Command {
	var name, description, authorName string
	var milestone bool

	cmd := &cobra.Command{
		Use:   "save <elements.json>",
		Short: "Snapshot an element collection as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elements, err := readElements(args[0])
			if err != nil {
				return err
			}

			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			meta, err := v.CreateVersion(elements, vault.CreateOptions{
				Name:        name,
				Description: description,
				Author:      vault.Author{Name: authorName},
				IsMilestone: milestone,
			})
			if err != nil {
				return err
			}

			fmt.Printf("created %s (#%d) on %s with %d elements\n",
				meta.Name, meta.VersionNumber, meta.BranchName, meta.ElementCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name for the version")
	cmd.Flags().StringVar(&description, "description", "", "version description")
	cmd.Flags().StringVar(&authorName, "author", "", "author name")
	cmd.Flags().BoolVar(&milestone, "milestone", false, "flag the version as a milestone")
	return cmd
}

func newListCmd() *cobra.Command {
	var branch, search string
	var milestonesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List versions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			versions := v.GetVersions(vault.Filter{
				BranchName:    branch,
				Search:        search,
				MilestoneOnly: milestonesOnly,
			})
			for _, m := range versions {
				marker := " "
				if m.IsMilestone {
					marker = "*"
				} else if m.IsAutoSave {
					marker = "~"
				}
				fmt.Printf("%s %-36s #%-5d %-12s %s  %s\n",
					marker, m.ID, m.VersionNumber, m.BranchName,
					m.Timestamp.Format("2006-01-02 15:04:05"), m.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "filter by branch label")
	cmd.Flags().StringVar(&search, "search", "", "substring search over name and description")
	cmd.Flags().BoolVar(&milestonesOnly, "milestones", false, "only milestone versions")
	return cmd
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <version-a> <version-b>",
		Short: "Show the element delta between two versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := v.CompareVersions(args[0], args[1])
			if err != nil {
				return err
			}

			s := result.Summary
			fmt.Printf("added %d, removed %d, modified %d, unchanged %d\n",
				s.AddedCount, s.RemovedCount, s.ModifiedCount, s.UnchangedCount)
			for _, e := range result.Added {
				fmt.Printf("  + %s\n", e.ID)
			}
			for _, e := range result.Removed {
				fmt.Printf("  - %s\n", e.ID)
			}
			for _, m := range result.Modified {
				fmt.Printf("  ~ %s (%v)\n", m.ElementID, m.ChangedProps)
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	var elementIDs []string
	var record bool
	var out string

	cmd := &cobra.Command{
		Use:   "restore <version-id>",
		Short: "Restore a version's elements, optionally recording the restore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			elements, err := v.RestoreVersion(args[0], vault.RestoreOptions{
				SelectedElementIDs: elementIDs,
				CreateNewVersion:   record,
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(elements, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(out, data, 0644)
		},
	}
	cmd.Flags().StringSliceVar(&elementIDs, "elements", nil, "restrict to these element ids")
	cmd.Flags().BoolVar(&record, "record", false, "record the restore as a new version")
	cmd.Flags().StringVar(&out, "out", "", "write restored elements to a file instead of stdout")
	return cmd
}

func newBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage branches",
	}

	var fromVersion, description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Fork a new branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			branch, err := v.CreateBranch(args[0], vault.BranchOptions{
				FromVersionID: fromVersion,
				Description:   description,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created branch %s (%s)\n", branch.Name, branch.ID)
			return nil
		},
	}
	create.Flags().StringVar(&fromVersion, "from", "", "fork point version id (defaults to current)")
	create.Flags().StringVar(&description, "description", "", "branch description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			active := v.GetCurrentBranch()
			for _, b := range v.GetBranches() {
				marker := " "
				if b.ID == active.ID {
					marker = ">"
				}
				suffix := ""
				if b.IsDefault {
					suffix = " (default)"
				}
				fmt.Printf("%s %-36s %s%s\n", marker, b.ID, b.Name, suffix)
			}
			return nil
		},
	}

	switchCmd := &cobra.Command{
		Use:   "switch <branch-id>",
		Short: "Make a branch active and load its head",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			elements, err := v.SwitchBranch(args[0])
			if err != nil {
				return err
			}
			if elements == nil {
				fmt.Println("switched; branch has no snapshot to load, keep editing")
				return nil
			}
			fmt.Printf("switched; loaded %d elements from the branch head\n", len(elements))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <branch-id>",
		Short: "Delete a branch pointer (versions are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()
			return v.DeleteBranch(args[0])
		},
	}

	rename := &cobra.Command{
		Use:   "rename <branch-id> <new-name>",
		Short: "Rename a branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()
			return v.RenameBranch(args[0], args[1], "")
		},
	}

	cmd.AddCommand(create, list, switchCmd, deleteCmd, rename)
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <bundle.json>",
		Short: "Export the full history to a bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			bundle, err := v.ExportHistory()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return err
			}
			fmt.Printf("exported %d versions and %d branches\n",
				len(bundle.Versions), len(bundle.Branches))
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle.json>",
		Short: "Merge a history bundle into the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()

			return v.ImportHistoryJSON(data)
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe all history and re-establish the default branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			v, cleanup, err := openVault()
			if err != nil {
				return err
			}
			defer cleanup()
			return v.ClearHistory()
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm wiping all history")
	return cmd
}
