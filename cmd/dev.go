package cmd

import (
	"net"
	"net/url"
	"strconv"

	"github.com/conneroisu/pressify/internal/dispatch"
	"github.com/conneroisu/pressify/internal/reload"
	"github.com/conneroisu/pressify/internal/session"
	"github.com/conneroisu/pressify/internal/watcher"
	"github.com/conneroisu/pressify/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var devCmd = &cobra.Command{
	Use:     workflow.Dev,
	Aliases: []string{"d"},
	Short:   "Start the environment, build the theme and serve it with live reload",
	Long: `Provision and start the environment, build every asset into the
WordPress theme directory and proxy the site on PROXY_PORT with live reload.

Stylesheet changes are injected without a page reload; every other change
rebuilds its pipeline and reloads the page. Ctrl-C stops the containers.`,
	Args: cobra.NoArgs,
	RunE: withApp(runDev),
}

func init() {
	devCmd.Flags().Bool("no-open", false, "don't open the browser")
	bindFlags(devCmd.Flags(), map[string]string{"no-open": "dev.no_open"})

	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, a *app) error {
	cfg := a.cfg

	target := &url.URL{Scheme: "http", Host: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))}
	server := reload.NewServer(reload.Options{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.ProxyPort,
		Target: target,
		Open:   cfg.Server.Open && !viper.GetBool("dev.no_open"),
	}, a.adapter, a.logger)

	dispatcher := dispatch.New(a.scheduler, server, a.logger)
	for _, b := range a.workflow.Bindings() {
		if err := dispatcher.Register(b); err != nil {
			return err
		}
	}

	fw, err := watcher.NewFileWatcher(cfg.Project.Root, cfg.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore...))
	fw.AddFilter(watcher.NoEditorTempFilter)
	if err := fw.AddRecursive(cfg.Project.SourceDir); err != nil {
		return err
	}

	supervisor := session.NewSupervisor(session.Config{
		Environment: a.env,
		Runner:      a.scheduler,
		Build:       a.workflow.Dev(),
		Dispatcher:  dispatcher,
		Watcher:     fw,
		Server:      server,
		Announcer:   a.console,
	}, a.logger)

	return supervisor.Dev(cmd.Context())
}
