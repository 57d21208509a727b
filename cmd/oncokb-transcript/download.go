package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// GENCODE FTP URLs
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// gencodeURLs returns the GTF and protein translation FASTA URLs for an assembly.
func gencodeURLs(a genome.Assembly) (gtfURL, translationsURL string) {
	if a == genome.GRCh37 {
		gtfURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
		translationsURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.pc_translations.fa.gz", gencodeBaseURL, gencodeVersion)
		return
	}
	gtfURL = fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	translationsURL = fmt.Sprintf("%s/gencode.%s.pc_translations.fa.gz", gencodeBaseURL, gencodeVersion)
	return
}

func newDownloadCmd() *cobra.Command {
	var (
		assemblies []string
		gtf        bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE translations and canonical transcript overrides",
		Long: `Download GENCODE protein translations and the Genome Nexus canonical
transcript overrides into <data.dir>/<assembly>/.

Translations answer protein sequence lookups locally. With --gtf the GENCODE
annotation is downloaded too, which allows running offline with --source gencode.`,
		Example: `  oncokb-transcript download
  oncokb-transcript download --assembly GRCh37 --gtf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var targets []genome.Assembly
			for _, s := range assemblies {
				a, err := genome.Parse(s)
				if err != nil {
					return &usageError{err}
				}
				targets = append(targets, a)
			}
			for _, a := range targets {
				if err := runDownload(cmd.Context(), cmd.OutOrStdout(), a, gtf); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nDownload complete!\n")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&assemblies, "assembly", []string{string(genome.GRCh37), string(genome.GRCh38)}, "Genome assemblies to download")
	cmd.Flags().BoolVar(&gtf, "gtf", false, "Also download the GENCODE GTF annotation")
	return cmd
}

func runDownload(ctx context.Context, w io.Writer, a genome.Assembly, gtf bool) error {
	logger := loggerFrom(ctx)

	destDir := dataDir(a)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", destDir, err)
	}

	fmt.Fprintf(w, "Downloading GENCODE %s files for %s...\n", gencodeVersion, a)
	fmt.Fprintf(w, "Destination: %s\n\n", destDir)

	gtfURL, translationsURL := gencodeURLs(a)
	if err := downloadFile(ctx, w, translationsURL, filepath.Join(destDir, filepath.Base(translationsURL))); err != nil {
		return fmt.Errorf("download translations: %w", err)
	}
	if gtf {
		if err := downloadFile(ctx, w, gtfURL, filepath.Join(destDir, filepath.Base(gtfURL))); err != nil {
			return fmt.Errorf("download GTF: %w", err)
		}
	}

	// Without overrides the remote canonical flag is used instead.
	canonicalFile := filepath.Join(destDir, cache.CanonicalFileName())
	if err := cache.DownloadCanonicalOverrides(ctx, a, canonicalFile); err != nil {
		logger.Warn("could not download canonical transcript overrides",
			zap.String("assembly", string(a)), zap.Error(err))
	}
	return nil
}

// downloadFile downloads url to destPath, printing progress to w.
func downloadFile(ctx context.Context, w io.Writer, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", filepath.Base(destPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{out: w, total: resp.ContentLength, lastPrint: time.Now()}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(w, "    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter prints download progress at most once per second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// gencodeFiles are the downloaded files of one assembly.
type gencodeFiles struct {
	GTF          string
	Translations string
}

// FindGENCODEFiles looks for downloaded GENCODE files of an assembly in the
// data directory. found is true when either file exists.
func FindGENCODEFiles(a genome.Assembly) (files gencodeFiles, found bool) {
	dir := dataDir(a)
	prefix := "gencode.v*"
	if a == genome.GRCh37 {
		prefix = "gencode.v*lift37"
	}

	if matches, err := filepath.Glob(filepath.Join(dir, prefix+".annotation.gtf.gz")); err == nil && len(matches) > 0 {
		files.GTF = matches[0]
	}
	if matches, err := filepath.Glob(filepath.Join(dir, prefix+".pc_translations.fa.gz")); err == nil && len(matches) > 0 {
		files.Translations = matches[0]
	}
	return files, files.GTF != "" || files.Translations != ""
}
