// Deploybot - rule-based session trader against a brokerage terminal
//
// A deployment binds one strategy to one instrument and trades it in
// hour-long sessions. Each configured hour carries its own strategy
// parameters and risk tuple (tp/sl/position_type); the scheduler wakes
// on bar closes, evaluates the strategy and reconciles the broker's
// open orders against the desired target.
//
// Modes:
//   current     trade the current wall-clock hour until the cutoff
//   full_day    walk every configured hour in order until the cutoff
//   deploy_only validate config and print the deployment, no trading
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/deploybot/bot"
	"github.com/web3guy0/deploybot/deploy"
	"github.com/web3guy0/deploybot/internal/config"
	"github.com/web3guy0/deploybot/internal/terminal"
	"github.com/web3guy0/deploybot/storage"
)

const version = "1.2.0"

func main() {
	configPath := flag.String("config", "configs/deploy.json", "trading config JSON")
	mode := flag.String("mode", "current", "current | full_day | deploy_only")
	endHour := flag.Int("end-hour", deploy.DefaultEndHour, "daily cutoff hour")
	endMinute := flag.Int("end-minute", deploy.DefaultEndMinute, "daily cutoff minute")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}
	settings := config.LoadSettings()
	if settings.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Load trading configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load trading config")
	}

	log.Info().
		Str("version", version).
		Str("mode", *mode).
		Str("symbol", cfg.Symbol).
		Str("strategy", cfg.Strategy).
		Bool("dry_run", settings.DryRun).
		Msg("🚀 Deploybot starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("🛑 Received shutdown signal")
		cancel()
	}()

	// Initialize database
	db, err := storage.New(settings.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Terminal: HTTP bridge, optionally wrapped for paper execution
	var term terminal.Terminal
	bridge := terminal.NewBridge(settings.BridgeURL)
	if err := bridge.Connect(ctx); err != nil {
		log.Fatal().Err(err).Str("url", settings.BridgeURL).Msg("Failed to connect to terminal bridge")
	}

	if settings.DryRun {
		term = terminal.NewDryRun(bridge)
		log.Info().Msg("📝 Dry run: live market data, paper execution")
	} else {
		term = bridge
	}
	defer func() {
		if err := term.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Terminal disconnect failed")
		}
	}()

	deployer, err := deploy.New(cfg, settings, term, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build deployer")
	}

	if notifier, err := bot.NewTelegramNotifier(); err != nil {
		log.Debug().Err(err).Msg("Telegram notifications disabled")
	} else {
		deployer.SetNotifier(notifier)
	}

	switch *mode {
	case "deploy_only":
		printSummary(deployer.Summary())
		return

	case "current":
		if err := deployer.RunCurrentSession(ctx, *endHour, *endMinute); err != nil {
			log.Error().Err(err).Msg("❌ Session terminated with error")
			os.Exit(1)
		}

	case "full_day":
		if err := deployer.RunFullDay(ctx, *endHour, *endMinute); err != nil {
			log.Error().Err(err).Msg("❌ Full-day run terminated with error")
			os.Exit(1)
		}

	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode (want current, full_day or deploy_only)")
	}

	log.Info().Msg("👋 Done")
}

// printSummary renders the deployment without trading it.
func printSummary(s deploy.Summary) {
	log.Info().Msg("╔══════════════════════════════════════════╗")
	log.Info().Msgf("║  %-40s ║", "DEPLOYMENT "+s.Strategy)
	log.Info().Msg("╚══════════════════════════════════════════╝")
	log.Info().
		Str("symbol", s.Symbol).
		Str("timeframe", string(s.Timeframe)).
		Str("lot", s.Lot.String()).
		Int("magic", s.Magic).
		Ints("hours", s.TradingHours).
		Msg("Deployment")
	for _, h := range s.TradingHours {
		hc := s.HourConfigs[h]
		log.Info().
			Int("hour", h).
			Int("tp", hc.TP).
			Int("sl", hc.SL).
			Str("position_type", string(hc.PositionType)).
			Msg("Hour config")
	}
}
