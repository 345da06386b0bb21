package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/debuglog"
	"github.com/pders01/blogify/internal/launcher"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/tui"
	"github.com/pders01/blogify/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

type globalFlags struct {
	config string
	db     string
	quiet  bool
	tag    string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "blogify",
	Short: "A terminal client for RealWorld blogging servers",
	Long: `blogify reads and writes articles on any server that speaks the
RealWorld API. Without a subcommand it starts the interactive interface.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blogify %s\n", Version)
		fmt.Println("RealWorld blogging client")
		fmt.Println("github.com/pders01/blogify")
	},
}

var configGenCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		configFile, err := validation.NewSecurePathHandler().ConfigPath("")
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Path to configuration file")
	pf.StringVar(&flags.db, "db", "", "Path to session database (overrides config)")
	rootCmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Skip startup banner")
	rootCmd.Flags().StringVar(&flags.tag, "tag", "", "Open the home feed filtered by this tag")

	rootCmd.AddCommand(versionCmd, configGenCmd)
	addSessionCommands(rootCmd)
	addReadCommands(rootCmd)
	addWriteCommands(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !flags.quiet {
		tui.ShowBanner(Version)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	index, err := e.openIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	tui.ApplyTheme(e.cfg.UI.Colors)

	perPage := e.cfg.UI.ArticlesPerPage
	app := tui.NewApp(tui.Deps{
		Config:    e.cfg,
		Session:   e.session,
		Home:      state.NewHomeStore(e.client, perPage),
		Article:   state.NewArticleStore(e.client),
		Profile:   state.NewProfileStore(e.client, perPage),
		Settings:  state.NewSettingsStore(e.session),
		Drafts:    e.db,
		Index:     index,
		Browser:   launcher.New(e.cfg),
		Favorites: e.client,
		StartTag:  flags.tag,
		Context:   cmd.Context(),
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	unsubscribe := app.Subscribe(p.Send)
	defer unsubscribe()

	debuglog.Infof("starting TUI against %s", e.client.BaseURL())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
