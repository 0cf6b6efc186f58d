package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"routesheet/internal/config"
	"routesheet/internal/connectors"
	gmailconnector "routesheet/internal/connectors/gmail"
	imapconnector "routesheet/internal/connectors/imap"
	"routesheet/internal/listener"
	"routesheet/internal/pipeline"
	"routesheet/internal/scan"
	"routesheet/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "receipt file or directory of receipts")
		out := fs.String("out", "", "output directory override")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		if strings.TrimSpace(*out) != "" {
			cfg.OutputDir = *out
		}

		paths, err := collectInputs(*input)
		must(err)
		if len(paths) == 0 {
			must(fmt.Errorf("no receipt files under %s", *input))
		}

		processor := pipeline.NewProcessingService(db, cfg, scan.NewScanner(cfg, logger), logger)
		result, err := processor.ProcessFiles(context.Background(), paths)
		if result != nil {
			printSession(result)
		}
		if err != nil && !errors.Is(err, pipeline.ErrEmptyBatch) {
			must(err)
		}
	case "generate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batchID := fs.String("batchId", "", "finalized batch id")
		out := fs.String("out", "", "output directory override")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*batchID) == "" {
			must(fmt.Errorf("--batchId is required"))
		}
		if strings.TrimSpace(*out) != "" {
			cfg.OutputDir = *out
		}

		processor := pipeline.NewProcessingService(db, cfg, scan.NewScanner(cfg, logger), logger)
		artifacts, err := processor.RegenerateBatch(*batchID)
		must(err)
		for _, a := range artifacts {
			fmt.Printf("wrote %s rows=%d print=%s\n", a.Path, a.Rows, a.PrintRange)
		}
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.ListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.ListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d receipts=%d\n",
			*provider, result.Fetched, result.Stored, result.Known, result.Attachments)
		for _, name := range result.Skipped {
			fmt.Printf("  skipped attachment %s\n", name)
		}
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "emails per run")
		_ = fs.Parse(os.Args[2:])

		processor := pipeline.NewProcessingService(db, cfg, scan.NewScanner(cfg, logger), logger)
		mailProc := connectors.NewMailProcessService(db, cfg, processor, logger)
		if strings.TrimSpace(*messageID) != "" {
			result, err := mailProc.ProcessOne(context.Background(), *provider, *messageID)
			must(err)
			if result != nil {
				printSession(result)
			}
			return
		}
		processed, results, err := mailProc.ProcessPending(context.Background(), *batch)
		must(err)
		for _, result := range results {
			printSession(result)
		}
		fmt.Printf("processed pending emails=%d batches=%d\n", processed, len(results))
	case "mail:listen":
		s := listener.NewService(db, cfg, logger)
		must(s.Run(context.Background()))
	case "vendors:list":
		vendorsList, err := db.ListVendors()
		must(err)
		for _, v := range vendorsList {
			fmt.Printf("%d\t%s\n", v.ID, v.Name)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func collectInputs(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !scan.IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(input, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func printSession(result *pipeline.SessionResult) {
	fmt.Printf("batch %s: accepted=%d rejected=%d duplicates=%d\n",
		result.BatchID, len(result.Sheet.Slots), len(result.Rejections), len(result.Duplicates))
	for _, rej := range result.Rejections {
		fmt.Printf("  rejected %s reason=%s detail=%s\n", rej.SourceID, rej.Reason, rej.Detail)
	}
	for _, dup := range result.Duplicates {
		fmt.Printf("  duplicate %s matches %s\n", dup.SourceID, dup.MatchesSourceID)
	}
	if len(result.Sheet.Slots) > 0 {
		fmt.Printf("  total %s\n", pipeline.FormatBatchTotal(result.Sheet))
	}
	for _, a := range result.Artifacts {
		fmt.Printf("  wrote %s rows=%d print=%s\n", a.Path, a.Rows, a.PrintRange)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: routesheet <command>")
	fmt.Println("commands:")
	fmt.Println("  process --input=./scans [--out=./out]")
	fmt.Println("  generate --batchId=... [--out=./out]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=20")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  vendors:list")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
