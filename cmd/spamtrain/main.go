package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.io/infrasutra/spamwatch/internal/model"
)

// spamtrain builds the classifier artifact from a labeled csv. Each row is
// label,text where the label starts with "spam" for spam rows and anything
// else counts as ham. A leading label,text header row is skipped.
func main() {
	var (
		dataPath = flag.String("data", "", "labeled csv with rows of label,text")
		outPath  = flag.String("out", "models/spam_model.db", "where to write the trained model")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "usage: spamtrain -data training.csv [-out models/spam_model.db]")
		os.Exit(2)
	}

	m, err := train(*dataPath)
	if err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}

	if err := m.Save(context.Background(), *outPath); err != nil {
		logger.Error("save model", "error", err)
		os.Exit(1)
	}

	spamDocs, hamDocs := m.Documents()
	logger.Info("model trained",
		"spam_docs", spamDocs,
		"ham_docs", hamDocs,
		"vocabulary", m.VocabularySize(),
		"out", *outPath,
	)
}

func train(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open training data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	m := model.New()
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read training data: %w", err)
		}
		line++
		if len(record) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(record[0]))
		if line == 1 && label == "label" {
			continue
		}
		m.Train(record[1], strings.HasPrefix(label, "spam"))
	}

	spamDocs, hamDocs := m.Documents()
	if spamDocs == 0 || hamDocs == 0 {
		return nil, fmt.Errorf("training data needs both spam and ham rows, got %d spam and %d ham", spamDocs, hamDocs)
	}
	return m, nil
}
