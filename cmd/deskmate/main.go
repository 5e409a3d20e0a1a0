package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"deskmate/internal/config"
	"deskmate/internal/engine"
	"deskmate/internal/levels"
	"deskmate/internal/logging"
	"deskmate/internal/memory"
	"deskmate/internal/perception"
	"deskmate/internal/persona"
	"deskmate/internal/trace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deskmate",
	Short: "deskmate - a desktop companion that watches, reacts and grows",
	Long: `deskmate periodically observes your screen, asks a model for an
in-character reaction, speaks it aloud, and slowly grows an RPG-style
skill profile from what it sees you do.

Run without arguments to start the companion loop.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompanion()
	},
}

// runCmd starts the companion loop explicitly
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the companion tick loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompanion()
	},
}

// skillsCmd prints the progression profile
var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Show attribute levels and tracked skills",
	RunE:  showSkills,
}

// statusCmd prints configuration and recent model calls
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and recent model calls",
	RunE:  showStatus,
}

// voicesCmd lists the voices the TTS sidecar offers
var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List available TTS voices",
	RunE:  listVoices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "deskmate.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(voicesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and all persisted state shared by every command.
type app struct {
	cfg      *config.Config
	paths    config.Paths
	settings *config.UserSettings
	prompts  *config.Prompts
	levels   *levels.Manager
	memory   *memory.Store
	personas *persona.Manager
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	paths := config.NewPaths(cfg.DataDir)

	settings, err := config.LoadUserSettings(paths.Settings())
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(cfg.DataDir, settings.DebugMode, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	prompts, err := config.LoadPrompts(paths.Prompts())
	if err != nil {
		return nil, err
	}

	lm := levels.NewManager(cfg.Levels.Attributes, paths.UserLevels())
	if err := lm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}

	ms := memory.NewStore(paths.UserMemory())
	if err := ms.Load(); err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	pm := persona.NewManager(paths.Personalities())
	if err := pm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load personalities: %w", err)
	}
	pm.Select(settings.SelectedPersonality)

	return &app{
		cfg:      cfg,
		paths:    paths,
		settings: settings,
		prompts:  prompts,
		levels:   lm,
		memory:   ms,
		personas: pm,
	}, nil
}

func runCompanion() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Close()

	logger.Info("starting deskmate",
		zap.String("provider", a.cfg.LLM.Provider),
		zap.String("personality", a.personas.SelectedName()),
		zap.Duration("tick_interval", a.cfg.GetTickInterval()),
	)
	logging.Boot("deskmate %s starting (provider=%s)", a.cfg.Version, a.cfg.LLM.Provider)

	client, err := perception.NewModelClient(a.cfg)
	if err != nil {
		return err
	}

	var speaker engine.Speaker
	if a.settings.UseTTS {
		speaker = perception.NewSpeechClient(perception.SpeechConfig{
			BaseURL: a.cfg.TTS.BaseURL,
			Timeout: a.cfg.GetTTSTimeout(),
		})
	} else {
		speaker = newCaptionSpeaker()
	}

	tracer, err := trace.Open(a.paths.TraceDB())
	if err != nil {
		logger.Warn("trace store unavailable, continuing without call history", zap.Error(err))
		tracer = nil
	} else {
		defer tracer.Close()
	}

	eng := engine.New(engine.Deps{
		Capturer: perception.NewExecCapturer(),
		Client:   client,
		Speaker:  speaker,
		Personas: a.personas,
		Levels:   a.levels,
		Memory:   a.memory,
		Prompts:  a.prompts,
		Settings: a.settings,
		Tracer:   tracer,
		Provider: a.cfg.LLM.Provider,
		Interval: a.cfg.GetTickInterval(),
	})

	watcher, err := persona.NewWatcher(a.personas)
	if err != nil {
		return fmt.Errorf("failed to create personality watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	err = g.Wait()
	logger.Info("deskmate stopped", zap.Uint64("ticks", eng.TickCount()))
	logging.Boot("deskmate stopped after %d ticks", eng.TickCount())
	return err
}

func showSkills(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Close()

	fmt.Println(renderProfile(a.levels))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Close()

	fmt.Println(renderStatus(a))

	tracer, err := trace.Open(a.paths.TraceDB())
	if err != nil {
		return nil
	}
	defer tracer.Close()

	records, err := tracer.Recent(10)
	if err != nil || len(records) == 0 {
		return nil
	}
	fmt.Println(renderCalls(records))
	return nil
}

func listVoices(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Close()

	client := perception.NewSpeechClient(perception.SpeechConfig{
		BaseURL: a.cfg.TTS.BaseURL,
		Timeout: a.cfg.GetTTSTimeout(),
	})
	voices, err := client.Characters(cmd.Context())
	if err != nil {
		return fmt.Errorf("TTS sidecar unreachable: %w", err)
	}
	sort.Strings(voices)
	for _, v := range voices {
		marker := "  "
		if v == a.settings.TTSVoice {
			marker = "* "
		}
		fmt.Println(marker + v)
	}
	return nil
}
