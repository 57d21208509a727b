package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/datasource/ensembl"
	"github.com/inodb/oncokb-transcript/internal/resolve"
)

const (
	configName = ".oncokb-transcript"
	envPrefix  = "ONCOKB_TRANSCRIPT"
)

// Configuration keys.
const (
	keyDataDir           = "data.dir"
	keyStorePath         = "store.path"
	keySource            = "source"
	keyEnsemblGRCh37URL  = "ensembl.grch37_url"
	keyEnsemblGRCh38URL  = "ensembl.grch38_url"
	keyEnsemblTimeout    = "ensembl.timeout"
	keyEnsemblRetries    = "ensembl.max_retries"
	keySourceTimeout     = "resolve.source_timeout"
	keyRefResiduePolicy  = "annotate.ref_residue_policy"
	keyCanonicalGRCh37   = "canonical.grch37_overrides"
	keyCanonicalGRCh38   = "canonical.grch38_overrides"
	keyCancerGeneList    = "genes.cancer_gene_list"
	keyLogLevel          = "log.level"
	sourceEnsembl        = "ensembl"
	sourceGENCODE        = "gencode"
	defaultStoreFileName = "oncokb-transcript.duckdb"
)

func setDefaults(v *viper.Viper) {
	dataDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".oncokb-transcript")
	}
	v.SetDefault(keyDataDir, dataDir)
	v.SetDefault(keySource, sourceEnsembl)
	v.SetDefault(keyEnsemblGRCh37URL, ensembl.DefaultGRCh37URL)
	v.SetDefault(keyEnsemblGRCh38URL, ensembl.DefaultGRCh38URL)
	v.SetDefault(keyEnsemblTimeout, 30*time.Second)
	v.SetDefault(keyEnsemblRetries, 2)
	v.SetDefault(keySourceTimeout, resolve.DefaultSourceTimeout)
	v.SetDefault(keyRefResiduePolicy, annotate.PolicyConsensus.String())
	v.SetDefault(keyLogLevel, "warn")
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	viper.Reset()

	root := &cobra.Command{
		Use:   "oncokb-transcript",
		Short: "Resolve canonical transcripts and annotate protein alterations",
		Long: `oncokb-transcript attaches canonical Ensembl transcripts to curated genes on
GRCh37 and GRCh38, matches transcripts across reference genomes by protein
sequence, and annotates protein alterations with their consequence and the
reference genomes they are valid on.

Config is read from ~/.oncokb-transcript.yaml and ONCOKB_TRANSCRIPT_* variables.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile, verbose)
		},
	}
	root.SetVersionTemplate("oncokb-transcript version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.oncokb-transcript.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.String("db", "", "DuckDB store path (default: <data.dir>/"+defaultStoreFileName+")")
	pf.String("source", "", "Transcript source: ensembl or gencode")
	viper.BindPFlag(keyStorePath, pf.Lookup("db"))
	viper.BindPFlag(keySource, pf.Lookup("source"))

	root.AddCommand(
		newResolveCmd(),
		newMatchCmd(),
		newAlignCmd(),
		newAnnotateCmd(),
		newImportGenesCmd(),
		newDownloadCmd(),
		newStatsCmd(),
		newConfigCmd(),
	)
	return root
}

// initConfig loads the config file and environment into the global viper
// instance and builds the logger.
func initConfig(cmd *cobra.Command, cfgFile string, verbose bool) error {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	logger, err := newLogger(viper.GetString(keyLogLevel), verbose)
	if err != nil {
		return &usageError{err}
	}
	cmd.SetContext(withLogger(cmd.Context(), logger))
	return nil
}

// newLogger builds a console logger on stderr.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", keyLogLevel, level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = !verbose
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
