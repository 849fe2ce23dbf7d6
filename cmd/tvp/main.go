package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tvp-go/internal/app"
	"tvp-go/internal/config"
	"tvp-go/internal/encryption"
	"tvp-go/internal/provider"
)

var (
	flagPackage string
	flagPerms   []string
	flagMetrics bool
	flagVerbose bool

	stdin = bufio.NewReader(os.Stdin)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a TVApp acting as the configured
// caller, or the one given by --package and --perm. The caller must defer
// closeApp.
func newApp(operation string, args []string) (*app.TVApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	caller, err := app.ResolveCaller(cfg.Caller, flagPackage, flagPerms)
	if err != nil {
		return nil, err
	}

	op := app.NewOperation(operation, strings.Join(args, " "), time.Now())
	a, err := app.NewTVApp(cfg, op, caller, flagVerbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp prints the collected metrics when asked to and closes a.
func closeApp(a *app.TVApp) {
	if flagMetrics {
		if err := a.WriteMetrics(os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		}
	}
	if err := a.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing: %v\n", err)
	}
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func selectionArgs(cmd *cobra.Command) (string, []any) {
	selection, _ := cmd.Flags().GetString("where")
	raw, _ := cmd.Flags().GetStringArray("arg")
	args := make([]any, len(raw))
	for i, a := range raw {
		args[i] = a
	}
	return selection, args
}

func parseChannelID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid channel id %q", s)
	}
	return id, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	default:
		return fmt.Sprint(x)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tvp",
	Short:         "Access-controlled TV listings store",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and snapshot keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])
		cfg.Caller.Package = "com.android.tv"
		cfg.Caller.Permissions = []string{"all-epg-data", "watched-programs", "modify-parental-controls"}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])

		skipKeys, _ := cmd.Flags().GetBool("skip-keys")
		if skipKeys {
			return nil
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("Snapshot passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("setting up snapshot keys: %w", err)
		}
		fmt.Printf("Snapshot keys written to %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Caller:    %s %s\n", cfg.Caller.Package, strings.Join(cfg.Caller.Permissions, ","))
		fmt.Printf("Notify:    %s\n", cfg.Notify.Type)
		fmt.Printf("Vaults:    %d\n", len(cfg.Vaults))
		fmt.Printf("Blocked:   %s\n", strings.Join(cfg.Access.BlockedPackages, ", "))
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the store schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the schema up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Migrate", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Println("Schema is up to date.")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MigrationStatus", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.MigrationStatus(); err != nil {
			return err
		}
		fmt.Println("Schema is up to date.")
		return nil
	},
}

var dbSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the live schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Schema", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		s, err := a.Schema(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(s)
		return nil
	},
}

// query command
var queryCmd = &cobra.Command{
	Use:   "query URI",
	Short: "Query rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		columns, _ := cmd.Flags().GetStringSlice("columns")
		sortOrder, _ := cmd.Flags().GetString("sort")
		selection, selArgs := selectionArgs(cmd)

		a, err := newApp("Query", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		c, err := a.Query(cmd.Context(), args[0], provider.QueryOptions{
			Columns:   columns,
			Selection: selection,
			Args:      selArgs,
			SortOrder: sortOrder,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(w, strings.Join(c.Columns, "\t"))
		}
		for i := 0; i < c.Len(); i++ {
			row := c.Values(i)
			cells := make([]string, len(c.Columns))
			for j, col := range c.Columns {
				cells[j] = formatCell(row[col])
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return w.Flush()
	},
}

// insert command
var insertCmd = &cobra.Command{
	Use:   "insert URI [COLUMN=VALUE ...]",
	Short: "Insert a row",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := app.ParseAssignments(args[1:])
		if err != nil {
			return err
		}

		a, err := newApp("Insert", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		u, err := a.Insert(cmd.Context(), args[0], values)
		if err != nil {
			return err
		}
		if u == nil {
			fmt.Println("Accepted; no row created.")
			return nil
		}
		fmt.Println(u.String())
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update URI COLUMN=VALUE ...",
	Short: "Update rows",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := app.ParseAssignments(args[1:])
		if err != nil {
			return err
		}
		selection, selArgs := selectionArgs(cmd)

		a, err := newApp("Update", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		n, err := a.Update(cmd.Context(), args[0], values, selection, selArgs...)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d row(s)\n", n)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete URI",
	Short: "Delete rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selection, selArgs := selectionArgs(cmd)

		a, err := newApp("Delete", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		n, err := a.Delete(cmd.Context(), args[0], selection, selArgs...)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d row(s)\n", n)
		return nil
	},
}

// batch command
var batchCmd = &cobra.Command{
	Use:   "batch FILE.yaml",
	Short: "Apply a batch of operations atomically",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening batch: %w", err)
		}
		defer f.Close()

		a, err := newApp("Batch", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		results, err := a.ApplyBatch(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("batch rolled back: %w", err)
		}
		for i, r := range results {
			if r.URI != nil {
				fmt.Printf("%d\t%s\n", i, r.URI)
			} else {
				fmt.Printf("%d\t%d\n", i, r.Count)
			}
		}
		return nil
	},
}

// logo command
var logoCmd = &cobra.Command{
	Use:   "logo",
	Short: "Read and write channel logos",
}

var logoGetCmd = &cobra.Command{
	Use:   "get CHANNEL_ID [FILE]",
	Short: "Write a channel logo to FILE or stdout",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChannelID(args[0])
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if len(args) == 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[1], err)
			}
			defer f.Close()
			out = f
		} else if term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("refusing to write image data to a terminal; give a FILE")
		}

		a, err := newApp("LogoGet", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		_, err = a.ReadLogo(cmd.Context(), id, out)
		return err
	},
}

var logoPutCmd = &cobra.Command{
	Use:   "put CHANNEL_ID FILE",
	Short: "Store an image as a channel logo",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseChannelID(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[1], err)
		}
		defer f.Close()

		a, err := newApp("LogoPut", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := a.WriteLogo(ctx, id, f); err != nil {
			return err
		}
		fmt.Printf("Stored logo for channel %d\n", id)
		return nil
	},
}

// block command
var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Manage packages refused from recommendations",
}

// changeBlockList applies fn and saves the resulting block list to the config file.
func changeBlockList(cmd *cobra.Command, operation string, pkg string, fn func(*app.TVApp, context.Context, string) (bool, error)) (bool, error) {
	_, path, err := loadConfig()
	if err != nil {
		return false, err
	}
	a, err := newApp(operation, []string{pkg})
	if err != nil {
		return false, err
	}
	defer closeApp(a)

	changed, err := fn(a, cmd.Context(), pkg)
	if err != nil || !changed {
		return changed, err
	}
	if err := config.Save(path, a.Config()); err != nil {
		return false, err
	}
	return true, nil
}

var blockAddCmd = &cobra.Command{
	Use:   "add PACKAGE",
	Short: "Block a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changed, err := changeBlockList(cmd, "Block", args[0], (*app.TVApp).Block)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("%s is already blocked\n", args[0])
			return nil
		}
		fmt.Printf("Blocked %s\n", args[0])
		return nil
	},
}

var blockRemoveCmd = &cobra.Command{
	Use:   "remove PACKAGE",
	Short: "Unblock a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changed, err := changeBlockList(cmd, "Unblock", args[0], (*app.TVApp).Unblock)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("%s is not blocked\n", args[0])
			return nil
		}
		fmt.Printf("Unblocked %s\n", args[0])
		return nil
	},
}

var blockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BlockList", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		pkgs, err := a.Blocked(cmd.Context())
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			fmt.Println("No blocked packages.")
			return nil
		}
		for _, p := range pkgs {
			fmt.Println(p)
		}
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Push and pull encrypted store snapshots",
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a snapshot to the first vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotPush", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		version, err := a.PushSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Pushed snapshot version %d\n", version)
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull DEST",
	Short: "Decrypt the latest snapshot to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotPull", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		passphrase, err := readPassphrase("Snapshot passphrase: ")
		if err != nil {
			return err
		}
		version, err := a.PullSnapshot(cmd.Context(), passphrase, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Pulled snapshot version %d to %s\n", version, args[0])
		return nil
	},
}

var snapshotStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored snapshot version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SnapshotStatus", args)
		if err != nil {
			return err
		}
		defer closeApp(a)

		version, err := a.SnapshotVersion()
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Println("No snapshot stored.")
			return nil
		}
		fmt.Printf("Snapshot version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPackage, "package", "", "Act as this caller package")
	rootCmd.PersistentFlags().StringSliceVar(&flagPerms, "perm", nil, "Grant these permissions instead of the configured ones")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "Print collected metrics to stderr after the command")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Copy debug logging to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("skip-keys", false, "Do not generate snapshot keys")
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSchemaCmd)

	// selection flags
	for _, c := range []*cobra.Command{queryCmd, updateCmd, deleteCmd} {
		c.Flags().String("where", "", "Raw selection (requires all-epg-data)")
		c.Flags().StringArray("arg", nil, "Selection argument, repeatable")
	}
	queryCmd.Flags().StringSlice("columns", nil, "Columns to return")
	queryCmd.Flags().String("sort", "", "Sort order")

	// logo subcommands
	logoCmd.AddCommand(logoGetCmd)
	logoCmd.AddCommand(logoPutCmd)

	// block subcommands
	blockCmd.AddCommand(blockAddCmd)
	blockCmd.AddCommand(blockRemoveCmd)
	blockCmd.AddCommand(blockListCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)
	snapshotCmd.AddCommand(snapshotStatusCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(logoCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(snapshotCmd)
}
