package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"pdfworkflow/internal/logging"
	"pdfworkflow/pkg/models"
)

// Loader writes a transformation result under the configured storage root,
// one file per run identifier.
type Loader struct {
	root   string
	logger *logging.Logger
}

// NewLoader creates a Loader writing under root.
func NewLoader(root string, logger *logging.Logger) *Loader {
	return &Loader{root: root, logger: logger}
}

// Load serializes the result as JSON to <root>/<runID>.json. Re-running with
// the same id and result overwrites the file with identical bytes.
func (l *Loader) Load(runID string, tr *models.TransformationResult) (*models.LoadReceipt, error) {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return nil, LoadError("failed to create storage root", err)
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return nil, LoadError("failed to serialize result", err)
	}
	data = append(data, '\n')

	dest := filepath.Join(l.root, runID+".json")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, LoadError("destination is not writable", err)
	}

	l.logger.Info("Result persisted", "path", dest, "bytes", len(data))
	return &models.LoadReceipt{
		DestinationPath: dest,
		BytesWritten:    len(data),
	}, nil
}
