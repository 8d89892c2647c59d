// Package report renders analysis results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaionaro-go/voiceguard/pkg/analysis"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/pipeline"
)

type SourceKind string

const (
	SourceKindFile = SourceKind("file")
	SourceKindLive = SourceKind("live")
)

type Report struct {
	ID              uuid.UUID        `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	SourceKind      SourceKind       `json:"source_kind"`
	Source          string           `json:"source"`
	Verdict         Verdict          `json:"verdict"`
	ConfidenceLevel ConfidenceLevel  `json:"confidence_level"`
	Config          config.Config    `json:"config"`
	Summary         analysis.Summary `json:"summary"`
	Windows         []pipeline.Point `json:"windows"`
}

func New(
	sourceKind SourceKind,
	source string,
	result *analysis.Result,
) *Report {
	summary := result.Summary
	return &Report{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		SourceKind:      sourceKind,
		Source:          source,
		Verdict:         Judge(summary.PFakeOverall, summary.SpeechWindows > 0, result.Config.AlertThreshold),
		ConfidenceLevel: ConfidenceLevelOf(summary.ConfidenceMean),
		Config:          result.Config,
		Summary:         summary,
		Windows:         result.Windows,
	}
}

// String is the one-line human-readable summary.
func (r *Report) String() string {
	s := r.Summary
	var reasons []string
	for _, reason := range s.TopReasons() {
		reasons = append(reasons, reason.String())
	}
	return fmt.Sprintf(
		"%s: %s (p_fake %.2f, confidence %s %.2f, speech %d/%d windows, %d alert segments, reasons [%s])",
		r.Source, r.Verdict, s.PFakeOverall, r.ConfidenceLevel, s.ConfidenceMean,
		s.SpeechWindows, s.TotalWindows, len(s.AlertSegments), strings.Join(reasons, ","),
	)
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("unable to encode the report: %w", err)
	}
	return nil
}

// FileName returns the default report file name.
func (r *Report) FileName() string {
	return r.fileNameBase() + ".json"
}

// HTMLFileName is FileName for the HTML rendition.
func (r *Report) HTMLFileName() string {
	return r.fileNameBase() + ".html"
}

func (r *Report) fileNameBase() string {
	return fmt.Sprintf("voiceguard_%s_%s", r.CreatedAt.Format("20060102_150405Z"), r.ID.String()[:8])
}

// WriteFile writes the JSON report into dir, creating it if needed,
// and returns the path of the file.
func (r *Report) WriteFile(dir string) (string, error) {
	return writeFile(dir, r.FileName(), r.WriteJSON)
}

// WriteHTMLFile is WriteFile for the HTML rendition.
func (r *Report) WriteHTMLFile(dir string) (string, error) {
	return writeFile(dir, r.HTMLFileName(), r.WriteHTML)
}

func writeFile(
	dir string,
	name string,
	write func(io.Writer) error,
) (_ string, _err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("unable to create directory '%s': %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close '%s': %w", path, err)
		}
	}()
	if err := write(f); err != nil {
		return "", err
	}
	return path, nil
}
