package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tickerfactor/factorctl/internal/factor"
	"github.com/tickerfactor/factorctl/internal/registry"
	"github.com/tickerfactor/factorctl/pkg/config"
)

var registryConfigPath string

// registryCmd is the parent command for factor-registry management.
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the named factor definition registry",
	Long: `The registry persists named factor definitions as their canonical
S-expression string. A definition is re-parsed on every load, so a
stored factor can never drift from what the parser currently produces
for it.`,
}

var registryAddCmd = &cobra.Command{
	Use:   "add <name> <expression>",
	Short: "Add a factor definition to the registry",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runRegistryAdd,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered factor definitions",
	Args:  cobra.NoArgs,
	RunE:  runRegistryList,
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a factor definition from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryRemove,
}

var registryRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent replay runs",
	Args:  cobra.NoArgs,
	RunE:  runRegistryRuns,
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryAddCmd, registryListCmd, registryRemoveCmd, registryRunsCmd)

	registryCmd.PersistentFlags().StringVar(&registryConfigPath, "config", "", "Config file (required)")
	registryCmd.MarkPersistentFlagRequired("config")

	registryRunsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = unlimited)")

	binName := BinName()
	registryCmd.Example = `  # Add a factor definition
  ` + binName + ` registry add momentum "(/ :close (Delay 5 :close))" --config ./config.yaml

  # List definitions
  ` + binName + ` registry list --config ./config.yaml

  # List the most recent replay runs
  ` + binName + ` registry runs --config ./config.yaml --limit 10`
}

func openRegistry() (*registry.Registry, error) {
	cfg, err := config.Load(registryConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := registry.NewGormDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	return registry.NewRegistry(db), nil
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	name, expr := args[0], args[1]
	description := ""
	if len(args) == 3 {
		description = args[2]
	}

	parsed, err := factor.Parse(expr)
	if err != nil {
		return fmt.Errorf("refusing to register invalid expression: %w", err)
	}
	expr = parsed.String()

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx := context.Background()
	def, err := reg.Factors.Create(ctx, name, expr, description)
	if err != nil {
		return err
	}

	log := GetLogger()
	log.Info("registered factor %q (id %d): %s", def.Name, def.ID, def.Expression)
	return nil
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	defs, err := reg.Factors.List(context.Background())
	if err != nil {
		return err
	}

	log := GetLogger()
	if len(defs) == 0 {
		log.Info("no factors registered")
		return nil
	}
	for _, def := range defs {
		log.Info("%-20s %s", def.Name, def.Expression)
	}
	return nil
}

func runRegistryRemove(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Factors.Delete(context.Background(), args[0]); err != nil {
		return err
	}

	GetLogger().Info("removed factor %q", args[0])
	return nil
}

func runRegistryRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.Runs.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	log := GetLogger()
	if len(runs) == 0 {
		log.Info("no replay runs recorded")
		return nil
	}
	for _, run := range runs {
		log.Info("%-36s %-10s factors=%d failed=%d started=%s",
			run.RunID, run.Status, run.FactorCount, run.FailedCount, run.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
