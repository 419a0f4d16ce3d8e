// backend-go/internal/analysis/export.go
package analysis

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/storage"
)

// exportPrefix is the bucket prefix export files are mirrored under.
const exportPrefix = "exports/"

// Exporter writes the suggestions produced by an analysis run to a CSV file
// under exportDir and, when object storage is configured, mirrors the file
// to the bucket under exports/.
type Exporter struct {
	exportDir string
	objects   storage.ObjectStorage
}

func NewExporter(exportDir string, objects storage.ObjectStorage) *Exporter {
	return &Exporter{
		exportDir: exportDir,
		objects:   objects,
	}
}

// Export writes one CSV per job run, named after the job id. Rows are ordered
// most urgent first so the file reads like the dashboard listing.
func (e *Exporter) Export(ctx context.Context, job *domain.AnalysisJob, suggestions []*domain.ReorderSuggestion) (string, error) {
	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	name := fmt.Sprintf("suggestions_%s_%s.csv", job.StartedAt.Format("20060102_150405"), job.ID)
	path := filepath.Join(e.exportDir, name)

	if err := e.writeCSV(path, suggestions); err != nil {
		return "", err
	}

	if e.objects != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return path, fmt.Errorf("failed to read export %s: %w", path, err)
		}
		key := exportPrefix + name
		if err := e.objects.UploadObject(ctx, key, data, "text/csv"); err != nil {
			// Local copy is the source of truth; upload failures are not fatal.
			log.Warn().Err(err).Str("key", key).Msg("export upload failed")
		}
	}

	return path, nil
}

// ListExports enumerates previously exported files, from the bucket when
// object storage is configured and from the local export dir otherwise.
func (e *Exporter) ListExports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if e.objects != nil {
		return e.objects.ListObjects(ctx, exportPrefix)
	}

	entries, err := os.ReadDir(e.exportDir)
	if os.IsNotExist(err) {
		return []storage.ObjectInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir: %w", err)
	}

	exports := make([]storage.ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		exports = append(exports, storage.ObjectInfo{Key: entry.Name(), Size: info.Size()})
	}
	return exports, nil
}

func (e *Exporter) writeCSV(path string, suggestions []*domain.ReorderSuggestion) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// The worker pool collects suggestions in completion order; sort a copy
	// so the file is stable across runs.
	ordered := make([]*domain.ReorderSuggestion, len(suggestions))
	copy(ordered, suggestions)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := domain.UrgencyRank(ordered[i].Urgency), domain.UrgencyRank(ordered[j].Urgency)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].EstimatedCost > ordered[j].EstimatedCost
	})

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Suggestion ID", "Product ID", "Supplier ID", "Quantity", "Estimated Cost", "Urgency", "Confidence", "Lead Time Days", "Expires At", "Reason"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range ordered {
		record := []string{
			s.ID,
			s.ProductID,
			s.SupplierID,
			fmt.Sprintf("%d", s.SuggestedQuantity),
			fmt.Sprintf("%.2f", s.EstimatedCost),
			string(s.Urgency),
			fmt.Sprintf("%.1f", s.ConfidenceScore),
			fmt.Sprintf("%d", s.LeadTimeDays),
			s.ExpiresAt.Format("2006-01-02 15:04:05"),
			s.Reason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
