package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// Render formats report with the named formatter.
func Render(report *Report, format string) ([]byte, error) {
	f := GetFormatterByName(format)
	if f == nil {
		return nil, unsupported(format)
	}
	return f.Format(report)
}

// GenerateReport writes report to a timestamped file in dir. Format "all"
// writes the verbose console, detailed CSV and HTML reports.
func GenerateReport(report *Report, format, dir string) ([]string, error) {
	var formatters []Formatter
	if NormalizeFormatName(format) == "all" {
		formatters = []Formatter{ConsoleVerboseFormatter{}, CSVDetailedExporter{}, HTMLFormatter{}}
	} else if f := GetFormatterByName(format); f != nil {
		formatters = []Formatter{f}
	} else {
		return nil, unsupported(format)
	}

	var files []string
	for _, f := range formatters {
		name, err := WriteFormatted(f, report, dir)
		if err != nil {
			return files, fmt.Errorf("failed to write %s report: %w", f.Name(), err)
		}
		files = append(files, name)
	}
	return files, nil
}

func unsupported(format string) error {
	// enrich error with available formatters and aliases
	return fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format,
		strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}

// SaveConfiguration writes config as JSON when filename ends in .json, YAML otherwise.
func SaveConfiguration(config *domain.SimulationConfig, filename string) error {
	var (
		b   []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		b, err = json.MarshalIndent(config, "", "  ")
	} else {
		b, err = yaml.Marshal(config)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
