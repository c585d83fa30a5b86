package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"annuaire/internal/auth"
	"annuaire/internal/config"
	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
	"annuaire/internal/services"
	"annuaire/internal/version"
)

func main() {
	// 0. Version flag
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("%s %s\n", constants.AppDisplayName, version.Version)
		os.Exit(0)
	}

	// 1. Initialize debug logger
	log := logger.NewLogger(constants.DefaultLogLevel)
	log.Info("%s version %s starting", constants.AppDisplayName, version.Version)

	// 2. Load .env overrides, then load or create config
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment overrides from .env")
	}
	log.Info("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Debug("Config directory: %s", config.GetConfigDir())
	log.SetLevel(cfg.LogLevel)
	cfg.LogEffectiveValues(log)

	// 3. Initialize data directory and storage
	log.Info("Initializing data directory: %s", cfg.DataDir)
	if err := config.InitializeDataDir(cfg.DataDir); err != nil {
		log.Error("Failed to initialize data directory: %v", err)
		os.Exit(1)
	}
	store := recordstore.NewStore(cfg.DataDir)

	// Enable file logging now that the data directory is available
	if err := log.SetDataDir(cfg.DataDir); err != nil {
		log.Warn("Failed to enable file logging: %v", err)
	} else {
		log.Info("File logging enabled in %s", cfg.DataDir)
	}
	defer log.Close()

	// 4. Initialize services
	svcs := services.NewServices(store, log, cfg)
	if err := svcs.EnsureTables(); err != nil {
		log.Error("Failed to create base tables: %v", err)
		os.Exit(1)
	}

	// 5. Bootstrap: create the first admin account if no accounts exist
	empty, err := svcs.Registry.IsEmpty()
	if err != nil {
		log.Error("Failed to check account registry: %v", err)
		os.Exit(1)
	}
	if empty {
		log.Info("Registry: no accounts found, bootstrapping admin account...")
		password, err := auth.GeneratePassword()
		if err != nil {
			log.Error("Failed to generate bootstrap password: %v", err)
			os.Exit(1)
		}
		if err := svcs.Registry.InitializeAdmin(constants.AuthBootstrapUsername, password, constants.AuthBootstrapEmail); err != nil {
			log.Error("Bootstrap failed: %v", err)
			os.Exit(1)
		}
		fmt.Println("╔══════════════════════════════════════════════════════════════╗")
		fmt.Println("║              INITIAL ADMIN CREDENTIALS                      ║")
		fmt.Println("║  Save these now — they will NOT be shown again.             ║")
		fmt.Println("╠══════════════════════════════════════════════════════════════╣")
		fmt.Printf("║  Username : %-48s║\n", constants.AuthBootstrapUsername)
		fmt.Printf("║  Password : %-48s║\n", password)
		fmt.Println("╚══════════════════════════════════════════════════════════════╝")
		log.Info("Registry: bootstrap complete, admin account created")
	}

	// 6. Report storage state
	count, err := svcs.Registry.Count()
	if err != nil {
		log.Error("Failed to read account table: %v", err)
		os.Exit(1)
	}
	log.Info("Ready: %d account(s) registered in %s", count, cfg.DataDir)
}
