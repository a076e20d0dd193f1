// Package store provides functionality for storing and retrieving application data.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"gopkg.in/yaml.v3"
)

// Default file names, resolved by FindConfigFile when no path is configured.
const (
	DefaultExamplesFile     = "training_examples.yaml"
	DefaultKeywordRulesFile = "keyword_rules.yaml"
	DefaultRecurringFile    = "recurring.yaml"
	DefaultDebtsFile        = "debts.yaml"
)

// FileStore manages the YAML inputs of the engine: training examples,
// keyword rules, recurring expenses and debts.
type FileStore struct {
	ExamplesFile     string
	KeywordRulesFile string
	RecurringFile    string
	DebtsFile        string

	logger logging.Logger
}

// NewFileStore creates a new store for the YAML inputs.
func NewFileStore(examplesFile, keywordRulesFile, recurringFile, debtsFile string, logger logging.Logger) *FileStore {
	return &FileStore{
		ExamplesFile:     examplesFile,
		KeywordRulesFile: keywordRulesFile,
		RecurringFile:    recurringFile,
		DebtsFile:        debtsFile,
		logger:           logging.OrNop(logger),
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *FileStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("data", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	// Fall back to the per-user directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".fin-insights", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// readYAML resolves filename and unmarshals it into out. A missing file is
// reported as found=false with no error.
func (s *FileStore) readYAML(filename string, out interface{}) (path string, found bool, err error) {
	path, err = s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Data file not found", logging.F(logging.FieldFile, filename))
			return "", false, nil
		}
		return "", false, fmt.Errorf("error resolving %s: %w", filename, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return path, false, fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return path, false, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return path, true, nil
}

// loadList reads a YAML list stored either under a top-level key or as a
// bare sequence.
func loadList[T any](s *FileStore, filename, key string) ([]T, string, error) {
	var wrapped map[string][]T
	path, found, err := s.readYAML(filename, &wrapped)
	if err == nil {
		if !found {
			return nil, "", nil
		}
		return wrapped[key], path, nil
	}

	var bare []T
	path, found, bareErr := s.readYAML(filename, &bare)
	if bareErr != nil || !found {
		return nil, path, err
	}
	return bare, path, nil
}

func orDefault(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

// LoadTrainingExamples loads labeled examples. A missing file yields no
// examples, letting the engine fall back to its built-in training set.
func (s *FileStore) LoadTrainingExamples() ([]models.TrainingExample, error) {
	examples, path, err := loadList[models.TrainingExample](s, orDefault(s.ExamplesFile, DefaultExamplesFile), "examples")
	if err != nil {
		return nil, err
	}
	if path != "" {
		s.logger.Debug("Loaded training examples",
			logging.F(logging.FieldFile, path),
			logging.F(logging.FieldCount, len(examples)))
	}
	return examples, nil
}

// SaveTrainingExamples writes examples under the top-level "examples" key.
func (s *FileStore) SaveTrainingExamples(examples []models.TrainingExample) error {
	filename := orDefault(s.ExamplesFile, DefaultExamplesFile)
	return s.writeYAML(filename, models.TrainingExamplesConfig{Examples: examples})
}

// LoadKeywordRules loads the keyword fallback table.
func (s *FileStore) LoadKeywordRules() ([]models.KeywordRule, error) {
	rules, path, err := loadList[models.KeywordRule](s, orDefault(s.KeywordRulesFile, DefaultKeywordRulesFile), "rules")
	if err != nil {
		return nil, err
	}
	if path != "" {
		s.logger.Debug("Loaded keyword rules",
			logging.F(logging.FieldFile, path),
			logging.F(logging.FieldCount, len(rules)))
	}
	return rules, nil
}

// LoadRecurring loads the known recurring expenses.
func (s *FileStore) LoadRecurring() ([]models.RecurringExpense, error) {
	items, _, err := loadList[models.RecurringExpense](s, orDefault(s.RecurringFile, DefaultRecurringFile), "recurring")
	if err != nil {
		return nil, err
	}
	for i, r := range items {
		if r.Name == "" || !r.Amount.IsPositive() || r.NextDue.IsZero() {
			return nil, fmt.Errorf("recurring expense %d: name, positive amount and next_due are required", i)
		}
		if r.Cadence == "" {
			items[i].Cadence = models.CadenceMonthly
		}
	}
	return items, nil
}

// LoadDebts loads outstanding debts for payoff planning.
func (s *FileStore) LoadDebts() ([]models.Debt, error) {
	debts, _, err := loadList[models.Debt](s, orDefault(s.DebtsFile, DefaultDebtsFile), "debts")
	if err != nil {
		return nil, err
	}
	return debts, nil
}

func (s *FileStore) writeYAML(filename string, v interface{}) error {
	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		filePath = filename
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", filename, err)
	}
	if err := os.WriteFile(filePath, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error writing %s: %w", filePath, err)
	}

	s.logger.Debug("Saved data file", logging.F(logging.FieldFile, filePath))
	return nil
}
