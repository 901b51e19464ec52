package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/archive"
	"evogen.dev/pkg/evogen/internal/coverage"
	"evogen.dev/pkg/evogen/internal/domain"
	"evogen.dev/pkg/evogen/internal/ga"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "evogen"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName  = "output"
	verboseFlagName = "verbose"
	logFileFlagName = "log-file"

	criteriaFlagName    = "criteria"
	populationFlagName  = "population"
	budgetFlagName      = "budget"
	stoppingFlagName    = "stopping"
	strategyFlagName    = "strategy"
	selectionFlagName   = "selection"
	crossoverFlagName   = "crossover"
	archiveFlagName     = "archive"
	seedFlagName        = "seed"
	parallelFlagName    = "parallel"
	metricsAddrFlagName = "metrics-addr"

	searchCriteriaKey           = "search.criteria"
	searchPopulationKey         = "search.population"
	searchEliteKey              = "search.elite"
	searchCrossoverRateKey      = "search.crossover_rate"
	searchStrategyKey           = "search.strategy"
	searchSelectionKey          = "search.selection"
	searchCrossoverKey          = "search.crossover"
	searchPreferShorterKey      = "search.prefer_shorter"
	searchLimitKey              = "search.limit"
	searchLimitSizeKey          = "search.limit_size"
	searchStoppingKey           = "search.stopping"
	searchBudgetKey             = "search.budget"
	searchZeroFitnessKey        = "search.zero_fitness"
	searchArchiveKey            = "search.archive"
	searchArchiveCapacityKey    = "search.archive_capacity"
	searchArchiveProbabilityKey = "search.archive_probability"
	searchSeedKey               = "search.seed"
	searchParallelismKey        = "search.parallelism"
	searchTestTimeoutKey        = "search.test_timeout"
	searchGlobalTimeoutKey      = "search.global_timeout"
	searchMaxTestsKey           = "search.max_tests"
	searchMaxLengthKey          = "search.max_length"

	snapshotBackendKey         = "snapshot.backend"
	snapshotPathKey            = "snapshot.path"
	snapshotSeedProbabilityKey = "snapshot.seed_probability"

	metricsAddrKey = "metrics.addr"

	defaultReportsDir   = ".evogen-reports"
	defaultSnapshotPath = ".evogen-snapshots.db"

	envPrefix = "EVOGEN"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".evogen.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)

	setSearchDefaults(domain.DefaultSearchConfig())

	viper.SetDefault(snapshotBackendKey, adapter.SnapshotBackendSQLite)
	viper.SetDefault(snapshotPathKey, defaultSnapshotPath)
	viper.SetDefault(metricsAddrKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setSearchDefaults(cfg domain.SearchConfig) {
	criteria := make([]string, 0, len(cfg.Criteria))
	for _, c := range cfg.Criteria {
		criteria = append(criteria, string(c))
	}

	viper.SetDefault(searchCriteriaKey, criteria)
	viper.SetDefault(searchPopulationKey, cfg.GA.PopulationSize)
	viper.SetDefault(searchEliteKey, cfg.GA.Elite)
	viper.SetDefault(searchCrossoverRateKey, cfg.GA.CrossoverRate)
	viper.SetDefault(searchStrategyKey, string(cfg.GA.Strategy))
	viper.SetDefault(searchSelectionKey, string(cfg.Selection))
	viper.SetDefault(searchCrossoverKey, string(cfg.Crossover))
	viper.SetDefault(searchPreferShorterKey, cfg.PreferShorter)
	viper.SetDefault(searchLimitKey, string(cfg.Limit))
	viper.SetDefault(searchLimitSizeKey, 0)
	viper.SetDefault(searchStoppingKey, string(cfg.Stopping))
	viper.SetDefault(searchBudgetKey, cfg.Budget)
	viper.SetDefault(searchZeroFitnessKey, cfg.StopOnZeroFitness)
	viper.SetDefault(searchArchiveKey, string(cfg.Archive))
	viper.SetDefault(searchArchiveCapacityKey, cfg.ArchiveCapacity)
	viper.SetDefault(searchArchiveProbabilityKey, cfg.ArchiveProbability)
	viper.SetDefault(searchSeedKey, cfg.Seed)
	viper.SetDefault(searchParallelismKey, cfg.Parallelism)
	viper.SetDefault(searchTestTimeoutKey, int64(cfg.Runner.Timeout.Seconds()))
	viper.SetDefault(searchGlobalTimeoutKey, int64(cfg.GA.GlobalTimeout.Seconds()))
	viper.SetDefault(searchMaxTestsKey, cfg.Tests.MaxTests)
	viper.SetDefault(searchMaxLengthKey, cfg.Tests.MaxLength)
	viper.SetDefault(snapshotSeedProbabilityKey, cfg.SeedProbability)
}

// searchConfig reads the search settings from flags, env and config file.
func searchConfig() (domain.SearchConfig, error) {
	cfg := domain.DefaultSearchConfig()

	criteria, err := coverage.ParseCriteria(strings.Join(viper.GetStringSlice(searchCriteriaKey), ","))
	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", searchCriteriaKey, err)
	}

	cfg.Criteria = criteria
	cfg.GA.PopulationSize = viper.GetInt(searchPopulationKey)
	cfg.GA.Elite = viper.GetInt(searchEliteKey)
	cfg.GA.CrossoverRate = viper.GetFloat64(searchCrossoverRateKey)
	cfg.GA.Strategy = ga.Strategy(viper.GetString(searchStrategyKey))
	cfg.GA.GlobalTimeout = time.Duration(viper.GetInt64(searchGlobalTimeoutKey)) * time.Second
	cfg.Selection = ga.SelectionKind(viper.GetString(searchSelectionKey))
	cfg.Crossover = ga.CrossoverKind(viper.GetString(searchCrossoverKey))
	cfg.PreferShorter = viper.GetBool(searchPreferShorterKey)
	cfg.Limit = ga.LimitKind(viper.GetString(searchLimitKey))
	cfg.LimitSize = viper.GetInt(searchLimitSizeKey)
	cfg.Stopping = ga.StoppingKind(viper.GetString(searchStoppingKey))
	cfg.Budget = viper.GetInt64(searchBudgetKey)
	cfg.StopOnZeroFitness = viper.GetBool(searchZeroFitnessKey)
	cfg.Archive = archive.Kind(viper.GetString(searchArchiveKey))
	cfg.ArchiveCapacity = viper.GetInt(searchArchiveCapacityKey)
	cfg.ArchiveProbability = viper.GetFloat64(searchArchiveProbabilityKey)
	cfg.SeedProbability = viper.GetFloat64(snapshotSeedProbabilityKey)
	cfg.Seed = viper.GetInt64(searchSeedKey)
	cfg.Parallelism = viper.GetInt(searchParallelismKey)
	cfg.Runner.Timeout = time.Duration(viper.GetInt64(searchTestTimeoutKey)) * time.Second
	cfg.Tests.MaxTests = viper.GetInt(searchMaxTestsKey)
	cfg.Tests.MaxLength = viper.GetInt(searchMaxLengthKey)

	// A zero individuals limit follows the population size.
	if cfg.LimitSize <= 0 {
		if cfg.Limit != ga.LimitIndividuals {
			return cfg, fmt.Errorf("%s is required for the %s limit", searchLimitSizeKey, cfg.Limit)
		}

		cfg.LimitSize = cfg.GA.PopulationSize
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
