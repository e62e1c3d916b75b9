package config

import "testing"

func validConfig() *Config {
	return &Config{
		Clustering: Clustering{
			Dim: 100, SimThreshold: 0.5, MergeSimThreshold: 0.7,
			SubeventSimThreshold: 0.7, CosStdThreshold: 0.2, CosThreshold: 0.5,
			WindowDays: 10, ShortArticleThreshold: 80,
		},
		Storage: Storage{Backend: "sqlite", DSN: "eventpulse.db"},
		Paths:   Paths{EmbeddingsPath: "embeddings.txt", OutputPath: "output", LogPath: "log"},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("validate() = %v, want nil", err)
	}
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Clustering.SimThreshold = 1.5
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for out-of-range threshold")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "mongo"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestValidateRejectsMissingEmbeddingsPath(t *testing.T) {
	cfg := validConfig()
	cfg.Paths.EmbeddingsPath = ""
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for missing embeddings path")
	}
}

func TestValidateRejectsNonPositiveDim(t *testing.T) {
	cfg := validConfig()
	cfg.Clustering.Dim = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for non-positive dim")
	}
}
