// pdfrun executes the extraction -> transformation -> load chain once over a
// local PDF file and prints the terminal run snapshot. Useful for exercising
// the pipeline without a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"pdfworkflow/internal/config"
	"pdfworkflow/internal/llm"
	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
	"pdfworkflow/internal/repository"
	"pdfworkflow/internal/services"
	"pdfworkflow/pkg/models"
)

func main() {
	logger := logging.NewLogger()

	envFile := flag.String("env", "", "Path to .env file")
	file := flag.String("file", "", "Path to the PDF file to process")
	analyze := flag.Bool("analyze", false, "Request structured analysis via the language-model service")
	out := flag.String("out", "", "Storage root for the result (overrides config)")
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: pdfrun -file document.pdf [-analyze] [-out dir]")
	}

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *out != "" {
		cfg.Storage.Root = *out
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	var analyzer pipeline.Analyzer
	var matcher pipeline.JobMatcher
	if *analyze {
		if !cfg.LLM.Enabled && cfg.LLM.APIKey == "" {
			logger.Warn("No LLM API key configured; structured analysis will degrade")
		}
		client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxAttempts, logger)
		analyzer = client
		if cfg.LLM.MetiersFile != "" {
			metiers, err := llm.LoadMetiers(cfg.LLM.MetiersFile)
			if err != nil {
				logger.Warn("Occupation reference unavailable; matching disabled", "file", cfg.LLM.MetiersFile, "error", err)
			} else {
				matcher = llm.NewMatcher(client, metiers, logger)
			}
		}
	}

	chain := pipeline.NewChain(
		pipeline.NewExtractor(logger),
		pipeline.NewTransformer(analyzer, matcher, cfg.Transform.TopKeywords, logger),
		pipeline.NewLoader(cfg.Storage.Root, logger),
	)
	store := repository.NewMemoryRunStore(0)
	runner := services.NewRunner(store, chain, 0, logger)

	doc := models.Document{
		Filename:    filepath.Base(*file),
		ContentType: "application/pdf",
		Content:     content,
	}
	run, err := runner.Submit(context.Background(), doc, "default_workflow", nil,
		pipeline.Options{Analyze: *analyze}, services.ModeSync)
	if err != nil {
		log.Fatalf("Failed to run workflow: %v", err)
	}

	snapshot, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render result: %v", err)
	}
	fmt.Println(string(snapshot))

	if run.Error != "" {
		os.Exit(1)
	}
}
