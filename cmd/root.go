package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	driver "gitlab.com/gomidi/rtmididrv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AlessandroAnnini/midi-controller/pkg/cfg"
	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
	"github.com/AlessandroAnnini/midi-controller/pkg/hw"
	"github.com/AlessandroAnnini/midi-controller/pkg/profile"
	"github.com/AlessandroAnnini/midi-controller/pkg/synth"
	"github.com/AlessandroAnnini/midi-controller/pkg/ui"
)

var version string = "develop"

var rootCmd = &cobra.Command{
	Use:   "midi-controller",
	Short: "Mirror a USB/MIDI control surface and drive a synthesizer from its control values",
	Run:   run,
}

var rootFlags = struct {
	configFile string
	portNumber int
	portName   string
	debounceMs int
	pollMs     int
	headless   bool
	debug      bool
	logFile    string
}{}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "the configuration file (default ~/.midi-controller.json)")
	rootCmd.PersistentFlags().IntVar(&rootFlags.portNumber, "portNumber", -1, "number of the MIDI input port (use list to find out the available ports)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.portName, "portName", "", "name of the MIDI input port (use list to find out the available ports)")
	rootCmd.PersistentFlags().IntVar(&rootFlags.debounceMs, "debounce", cfg.DefaultDebounceMs, "the debounce window in milliseconds, 0 delivers every event")
	rootCmd.PersistentFlags().IntVar(&rootFlags.pollMs, "poll", int(hw.DefaultPollInterval/time.Millisecond), "the hot-plug polling interval in milliseconds, 0 disables hot-plug detection")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.headless, "headless", false, "run the pipeline without the terminal mirror")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.debug, "debug", false, "log debug information")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logFile, "logFile", "", "write the log to this file instead of stderr")

	viper.BindPFlag("port_number", rootCmd.PersistentFlags().Lookup("portNumber"))
	viper.BindPFlag("port_name", rootCmd.PersistentFlags().Lookup("portName"))
	viper.BindPFlag("debounce_ms", rootCmd.PersistentFlags().Lookup("debounce"))
	viper.SetEnvPrefix("MIDI_CONTROLLER")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, _ []string) {
	log, err := newLogger()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("midi-controller", zap.String("version", version))

	config, err := loadConfiguration(cmd)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	drv, err := driver.New()
	if err != nil {
		log.Fatal("cannot initialize the MIDI driver", zap.Error(err))
	}
	defer drv.Close()

	options := []hw.Option{
		hw.WithPollInterval(time.Duration(rootFlags.pollMs) * time.Millisecond),
	}
	if config.PortName != "" {
		options = append(options, hw.WithPortName(config.PortName))
	} else if config.PortNumber >= 0 {
		options = append(options, hw.WithPortNumber(config.PortNumber))
	}
	system := hw.New(drv, log.Named("hw"), options...)

	session, err := ctrl.NewSession(system, profile.Surface(), config.TransformerConfigs(), config.Window(), log.Named("session"))
	if err != nil {
		log.Fatal("cannot create the session", zap.Error(err))
	}
	defer session.Close()

	if err := session.Connect(); err != nil {
		log.Fatal("cannot connect", zap.Error(err))
	}

	synthConsumer := synth.NewConsumer(session.Store(), nil, log.Named("synth"))
	defer synthConsumer.Close()

	if rootFlags.headless {
		ctx, done := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer done()
		<-ctx.Done()
		return
	}

	if err := ui.Run(session.Store()); err != nil {
		log.Fatal("the terminal mirror failed", zap.Error(err))
	}
}

func loadConfiguration(cmd *cobra.Command) (cfg.Configuration, error) {
	filename := rootFlags.configFile
	if filename == "" {
		home, err := homedir.Dir()
		if err == nil {
			candidate := filepath.Join(home, ".midi-controller.json")
			if _, err := os.Stat(candidate); err == nil {
				filename = candidate
			}
		}
	}

	config := cfg.Default()
	if filename != "" {
		var err error
		config, err = cfg.ReadFile(filename)
		if err != nil {
			return cfg.Configuration{}, err
		}
	}

	// flags and MIDI_CONTROLLER_* environment variables win over the file
	if cmd.Flags().Changed("portName") || (config.PortName == "" && viper.GetString("port_name") != "") {
		config.PortName = viper.GetString("port_name")
	}
	if cmd.Flags().Changed("portNumber") {
		config.PortNumber = viper.GetInt("port_number")
	}
	if cmd.Flags().Changed("debounce") || config.DebounceMs == nil {
		debounceMs := viper.GetInt("debounce_ms")
		if debounceMs < 0 {
			return cfg.Configuration{}, fmt.Errorf("invalid debounce window %dms: must not be negative", debounceMs)
		}
		config.DebounceMs = &debounceMs
	}

	return config, nil
}

func newLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if rootFlags.debug {
		level = zapcore.DebugLevel
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	switch {
	case rootFlags.logFile != "":
		config.OutputPaths = []string{rootFlags.logFile}
		config.ErrorOutputPaths = []string{rootFlags.logFile}
	case !rootFlags.headless:
		// stderr would garble the terminal mirror
		return zap.NewNop(), nil
	}
	return config.Build()
}
