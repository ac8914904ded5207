// Command flighthookd is the Flighthook process entrypoint: it loads
// configuration, wires the bus, the actor registry, SystemActor, the
// reload reconciler, and the HTTP/WebSocket surface, then serves until
// signaled to stop (§4.8, §6 CLI flags, exit-code contract).
//
// Grounded on the teacher's main.go (flat wiring function, bollywood
// engine + server construction in sequence) and teranos-QNTX's cobra
// root-command idiom for flag parsing and the RunE error-to-exit-code
// path.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/httpapi"
	"github.com/divotmaker/flighthook/internal/integration"
	"github.com/divotmaker/flighthook/internal/monitor"
	"github.com/divotmaker/flighthook/internal/reload"
	"github.com/divotmaker/flighthook/internal/shotdata"
	"github.com/divotmaker/flighthook/internal/system"
	"github.com/divotmaker/flighthook/internal/wsbridge"
)

func main() {
	var configPath string
	var headless bool

	root := &cobra.Command{
		Use:   "flighthookd",
		Short: "Flighthook launch-monitor-to-simulator bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, headless)
		},
	}
	root.Flags().StringVar(&configPath, "config", defaultConfigPath(), "path to the TOML configuration file")
	root.Flags().BoolVar(&headless, "headless", false, "suppress interactive output")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flighthookd:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/flighthook/config.toml"
	}
	return "flighthook.toml"
}

func run(configPath string, headless bool) error {
	log, err := newLogger(headless)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()
	sugar := log.Sugar()

	cfg, err := loadOrDefault(configPath, sugar)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	busInst := bus.New(sugar)
	registry := actor.NewRegistry()
	shotRing := shotdata.NewRing()
	statusTable := httpapi.NewStatusTable(busInst)
	defer statusTable.Close()

	reader, writer := system.NewGameState()

	factory := &actorFactory{log: sugar}
	reconciler := reload.New(registry, busInst, factory, sugar)

	persist := func(next config.FlighthookConfig) error {
		return config.Save(configPath, next)
	}
	systemActor := system.New(writer, registry, reconciler, cfg, persist, sugar)

	systemSender := busInst.NewSender(actor.SystemID, nil)
	systemReceiver := systemSender.Subscribe()
	systemActor.Start(systemSender, systemReceiver)
	registry.Put(&actor.Handle{ID: actor.SystemID, Instance: systemActor, Shutdown: actor.NewShutdownFlag()})

	reconciler.Reconcile(config.Resolve(cfg))

	shotSubscriber := startShotCollector(busInst, shotRing)
	defer shotSubscriber.Close()

	httpServer := httpapi.New(busInst, statusTable, shotRing, systemActor, sugar)
	wsHandler := wsbridge.New(busInst, reader, sugar)

	mux := http.NewServeMux()
	httpServer.Routes(mux)
	mux.Handle("/api/ws", websocket.Handler(wsHandler.ServeWebsocket))

	bind := firstWebserverBind(cfg)
	srv := &http.Server{Addr: bind, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("flighthookd: listening", "bind", bind)
		serveErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	case <-sigCh:
		sugar.Infow("flighthookd: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			sugar.Warnw("flighthookd: http shutdown error", "error", err)
		}
		for _, id := range registry.IDs() {
			if handle, ok := registry.Get(id); ok {
				handle.Instance.Stop()
			}
		}
		busInst.Shutdown()
	}
	return nil
}

func newLogger(headless bool) (*zap.Logger, error) {
	if headless {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func loadOrDefault(path string, log *zap.SugaredLogger) (config.FlighthookConfig, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(underlyingPathError(err)) {
		log.Infow("flighthookd: no config file found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return config.FlighthookConfig{}, err
}

func underlyingPathError(err error) error {
	if pe, ok := err.(interface{ Unwrap() error }); ok {
		return pe.Unwrap()
	}
	return err
}

func firstWebserverBind(cfg config.FlighthookConfig) string {
	resolved := config.Resolve(cfg)
	if len(resolved.Webservers) == 0 {
		return ":8080"
	}
	return resolved.Webservers[0].Bind
}

// startShotCollector mirrors every launch_monitor.shot event into the
// history ring (§4.8), running as its own unowned bus subscriber.
func startShotCollector(busInst *bus.Bus, ring *shotdata.Ring) *bus.Receiver {
	receiver := busInst.Subscribe()
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			for {
				msg, err := receiver.Poll()
				if err != nil {
					break
				}
				if event, ok := msg.Event.(bus.LaunchMonitorEvent); ok && event.Shot != nil {
					ring.Add(*event.Shot)
				}
			}
		}
	}()
	return receiver
}

// actorFactory adapts monitor.NewSession/integration.NewBridge to the
// reload.Factory interface.
type actorFactory struct {
	log *zap.SugaredLogger
}

func (f *actorFactory) NewMonitor(spec config.MonitorSpec) actor.Actor {
	return monitor.NewSession(spec, f.log)
}

func (f *actorFactory) NewIntegration(spec config.IntegrationSpec) actor.Actor {
	return integration.NewBridge(spec, f.log)
}
