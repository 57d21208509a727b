package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource/ensembl"
	"github.com/inodb/oncokb-transcript/internal/datasource/gencode"
	"github.com/inodb/oncokb-transcript/internal/datasource/oncokb"
	"github.com/inodb/oncokb-transcript/internal/duckdb"
	"github.com/inodb/oncokb-transcript/internal/genome"
	"github.com/inodb/oncokb-transcript/internal/resolve"
)

type loggerKey struct{}

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// app holds the wired components for one command run.
type app struct {
	store   *duckdb.Store
	service *resolve.Service
	logger  *zap.Logger
}

func (a *app) Close() error {
	a.logger.Sync()
	return a.store.Close()
}

// dataDir returns the directory for downloaded files of an assembly.
func dataDir(a genome.Assembly) string {
	return filepath.Join(viper.GetString(keyDataDir), strings.ToLower(string(a)))
}

func storePath() string {
	if p := viper.GetString(keyStorePath); p != "" {
		return p
	}
	return filepath.Join(viper.GetString(keyDataDir), defaultStoreFileName)
}

// newApp opens the store, seeds the consequence catalog and builds the
// resolution service from configuration.
func newApp(ctx context.Context) (*app, error) {
	logger := loggerFrom(ctx)

	path := storePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store", zap.String("path", path))

	if err := store.SeedConsequences(ctx, annotate.DefaultConsequences()); err != nil {
		store.Close()
		return nil, err
	}

	svc, err := newService(ctx, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{store: store, service: svc, logger: logger}, nil
}

func newService(ctx context.Context, store *duckdb.Store, logger *zap.Logger) (*resolve.Service, error) {
	policy, err := annotate.ParseRefResiduePolicy(viper.GetString(keyRefResiduePolicy))
	if err != nil {
		return nil, &usageError{err}
	}

	var (
		source    resolve.SequenceSource
		canonical []resolve.CanonicalSource
		locals    []resolve.LocalSequences
	)

	// Curated isoforms come first: stored genes, then the cancer gene list.
	canonical = append(canonical, resolve.IsoformSource{})
	if path := viper.GetString(keyCancerGeneList); path != "" {
		genes, err := oncokb.LoadCancerGeneList(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded cancer gene list", zap.String("path", path), zap.Int("genes", genes.Len()))
		canonical = append(canonical, genes)
	}

	overrides, err := loadCanonicalOverrides(logger)
	if err != nil {
		return nil, err
	}
	canonical = append(canonical, overrides)

	switch name := viper.GetString(keySource); name {
	case sourceEnsembl:
		client := ensembl.NewClient(
			ensembl.WithBaseURL(genome.GRCh37, viper.GetString(keyEnsemblGRCh37URL)),
			ensembl.WithBaseURL(genome.GRCh38, viper.GetString(keyEnsemblGRCh38URL)),
			ensembl.WithTimeout(viper.GetDuration(keyEnsemblTimeout)),
			ensembl.WithMaxRetries(uint64(max(viper.GetInt(keyEnsemblRetries), 0))),
			ensembl.WithLogger(logger.Named("ensembl")),
		)
		source = client
		canonical = append(canonical, client)

		// Downloaded translations answer sequence lookups without a remote call.
		for _, a := range genome.All() {
			fasta, err := loadTranslations(a, logger)
			if err != nil {
				return nil, err
			}
			if fasta != nil {
				locals = append(locals, fasta)
			}
		}
	case sourceGENCODE:
		src, err := loadGENCODE(logger)
		if err != nil {
			return nil, err
		}
		source = src
		canonical = append(canonical, src)
	default:
		return nil, &usageError{fmt.Errorf("unknown source %q (expected %s or %s)", name, sourceEnsembl, sourceGENCODE)}
	}

	return resolve.New(store, source,
		resolve.WithCanonicalSources(canonical...),
		resolve.WithLocalSequences(locals...),
		resolve.WithSourceTimeout(viper.GetDuration(keySourceTimeout)),
		resolve.WithRefResiduePolicy(policy),
		resolve.WithLogger(logger.Named("resolve")),
	), nil
}

// loadCanonicalOverrides reads the Genome Nexus override files named in the
// config, falling back to downloaded copies in the data directory.
func loadCanonicalOverrides(logger *zap.Logger) (*cache.CanonicalOverrides, error) {
	overrides := cache.NewCanonicalOverrides()
	for _, c := range []struct {
		assembly genome.Assembly
		key      string
	}{
		{genome.GRCh37, keyCanonicalGRCh37},
		{genome.GRCh38, keyCanonicalGRCh38},
	} {
		path := viper.GetString(c.key)
		explicit := path != ""
		if !explicit {
			path = filepath.Join(dataDir(c.assembly), cache.CanonicalFileName())
		}
		if err := overrides.LoadFile(c.assembly, path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		logger.Debug("loaded canonical overrides",
			zap.String("assembly", string(c.assembly)),
			zap.Int("genes", overrides.Len(c.assembly)))
	}
	return overrides, nil
}

// loadTranslations loads the downloaded GENCODE translations of an
// assembly, or returns nil if none were downloaded.
func loadTranslations(a genome.Assembly, logger *zap.Logger) (*cache.FASTALoader, error) {
	files, found := FindGENCODEFiles(a)
	if !found || files.Translations == "" {
		return nil, nil
	}
	fasta := cache.NewFASTALoader(files.Translations, a)
	if err := fasta.Load(); err != nil {
		return nil, err
	}
	logger.Debug("loaded translations",
		zap.String("assembly", string(a)),
		zap.String("path", files.Translations),
		zap.Int("sequences", fasta.SequenceCount()))
	return fasta, nil
}

// loadGENCODE builds the offline source from every downloaded assembly.
func loadGENCODE(logger *zap.Logger) (*gencode.Source, error) {
	var anns []*gencode.Annotation
	for _, a := range genome.All() {
		files, _ := FindGENCODEFiles(a)
		if files.GTF == "" {
			continue
		}
		ann, err := gencode.LoadGTF(files.GTF, a)
		if err != nil {
			return nil, err
		}
		fasta, err := loadTranslations(a, logger)
		if err != nil {
			return nil, err
		}
		if fasta != nil {
			if err := ann.SetSequences(fasta); err != nil {
				return nil, err
			}
		}
		logger.Debug("loaded GENCODE annotation",
			zap.String("assembly", string(a)),
			zap.String("gtf", files.GTF),
			zap.Int("transcripts", ann.Len()))
		anns = append(anns, ann)
	}
	if len(anns) == 0 {
		return nil, fmt.Errorf("no GENCODE files found under %s; run 'oncokb-transcript download' first", viper.GetString(keyDataDir))
	}
	return gencode.NewSource(anns...), nil
}
