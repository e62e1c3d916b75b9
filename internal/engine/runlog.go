package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/logger"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// writeRunLogs records the run summary twice under logPath: as
// log_<runPrefix>.json, one file kept per run, and as log.json, always the
// latest run. A failure to write either is logged but never fatal; a run
// whose events already persisted must not fail over a lost log file.
func writeRunLogs(logPath, runPrefix string, result *Result) {
	if logPath == "" {
		return
	}
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		logger.Warn("creating log directory failed", "path", logPath, "error", err)
		return
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Warn("marshaling run log failed", "error", err)
		return
	}
	for _, name := range []string{"log_" + runPrefix + ".json", "log.json"} {
		path := filepath.Join(logPath, name)
		if err := os.WriteFile(path, b, 0o644); err != nil {
			logger.Warn("writing run log failed", "path", path, "error", err)
		}
	}
}

// clusterDump is one cluster's membership and cohesion distribution, the
// debug shape operators diff across threshold changes.
type clusterDump struct {
	ID         string    `json:"id"`
	ArticleIDs []string  `json:"articleIds"`
	Cos        []float64 `json:"cos"`
	CosMean    float64   `json:"cos_mean"`
	CosStd     float64   `json:"cos_std"`
}

// dumpClusters writes every cluster's membership and per-member cosine
// distribution to clusters_<runPrefix>.json under outputPath. Like the run
// logs, a dump failure is logged and swallowed.
func dumpClusters(outputPath, runPrefix string, store *clusterstore.Store) {
	if outputPath == "" {
		return
	}
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		logger.Warn("creating output directory failed", "path", outputPath, "error", err)
		return
	}

	ids := store.IDs()
	sort.Strings(ids)
	dumps := make([]clusterDump, 0, len(ids))
	for _, id := range ids {
		c, ok := store.Get(id)
		if !ok {
			continue
		}
		d := clusterDump{ID: id, ArticleIDs: c.ArticleIDs}
		if len(c.Vectors) > 0 {
			d.Cos = make([]float64, len(c.Vectors))
			for i, v := range c.Vectors {
				d.Cos[i] = vectormath.Cosine(v, c.Centroid)
			}
			d.CosMean, d.CosStd = vectormath.Cohesion(c.Vectors, c.Centroid)
		}
		dumps = append(dumps, d)
	}

	b, err := json.MarshalIndent(dumps, "", "  ")
	if err != nil {
		logger.Warn("marshaling cluster dump failed", "error", err)
		return
	}
	path := filepath.Join(outputPath, "clusters_"+runPrefix+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		logger.Warn("writing cluster dump failed", "path", path, "error", err)
	}
}
