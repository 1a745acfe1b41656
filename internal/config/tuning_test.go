package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.IoUMin == nil || *cfg.IoUMin != 0.2 {
		t.Errorf("Expected IoUMin 0.2, got %v", cfg.IoUMin)
	}
	if cfg.OccupancyTimeThreshold == nil || *cfg.OccupancyTimeThreshold != "10s" {
		t.Errorf("Expected OccupancyTimeThreshold '10s', got %v", cfg.OccupancyTimeThreshold)
	}

	// Getters on the populated config agree with the getters' own fallbacks.
	empty := EmptyTuningConfig()
	if cfg.GetIoUMin() != empty.GetIoUMin() {
		t.Errorf("GetIoUMin() = %f, fallback %f", cfg.GetIoUMin(), empty.GetIoUMin())
	}
	if cfg.GetMaxAge() != 5 || empty.GetMaxAge() != 5 {
		t.Errorf("GetMaxAge() = %d/%d, want 5", cfg.GetMaxAge(), empty.GetMaxAge())
	}
	if cfg.GetMinHits() != 2 || empty.GetMinHits() != 2 {
		t.Errorf("GetMinHits() = %d/%d, want 2", cfg.GetMinHits(), empty.GetMinHits())
	}
	if cfg.GetProximityThresholdPx() != 100 || empty.GetProximityThresholdPx() != 100 {
		t.Errorf("GetProximityThresholdPx() = %f/%f, want 100", cfg.GetProximityThresholdPx(), empty.GetProximityThresholdPx())
	}
	if cfg.GetOccupancyTimeThreshold() != 10*time.Second || empty.GetOccupancyTimeThreshold() != 10*time.Second {
		t.Errorf("GetOccupancyTimeThreshold() = %v/%v, want 10s", cfg.GetOccupancyTimeThreshold(), empty.GetOccupancyTimeThreshold())
	}
	if cfg.GetSeatExpiry() != 0 || empty.GetSeatExpiry() != 0 {
		t.Errorf("GetSeatExpiry() = %v/%v, want 0", cfg.GetSeatExpiry(), empty.GetSeatExpiry())
	}
	if cfg.GetMaxEpisodes() != 256 || empty.GetMaxEpisodes() != 256 {
		t.Errorf("GetMaxEpisodes() = %d/%d, want 256", cfg.GetMaxEpisodes(), empty.GetMaxEpisodes())
	}
	if cfg.GetMinConfidence() != 0 {
		t.Errorf("GetMinConfidence() = %f, want 0", cfg.GetMinConfidence())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "iou_min": 0.3,
  "max_age": 8,
  "proximity_threshold_px": 80,
  "occupancy_time_threshold": "2h",
  "seat_expiry": "15m"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetIoUMin(); got != 0.3 {
		t.Errorf("GetIoUMin() = %f, want 0.3", got)
	}
	if got := cfg.GetMaxAge(); got != 8 {
		t.Errorf("GetMaxAge() = %d, want 8", got)
	}
	if got := cfg.GetProximityThresholdPx(); got != 80 {
		t.Errorf("GetProximityThresholdPx() = %f, want 80", got)
	}
	if got := cfg.GetOccupancyTimeThreshold(); got != 2*time.Hour {
		t.Errorf("GetOccupancyTimeThreshold() = %v, want 2h", got)
	}
	if got := cfg.GetSeatExpiry(); got != 15*time.Minute {
		t.Errorf("GetSeatExpiry() = %v, want 15m", got)
	}
	// Omitted fields keep defaults.
	if got := cfg.GetMinHits(); got != 2 {
		t.Errorf("GetMinHits() = %d, want 2", got)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("/tmp/config.yaml")
	if err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("malformed JSON", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "invalid_config.json")
		if err := os.WriteFile(configPath, []byte(`{"iou_min": "invalid"`), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}
		if _, err := LoadTuningConfig(configPath); err == nil {
			t.Error("Expected error when loading invalid JSON, got nil")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "negative_age.json")
		if err := os.WriteFile(configPath, []byte(`{"max_age": 0}`), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}
		_, err := LoadTuningConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file does not validate: %v", err)
	}
	def := DefaultTuningConfig()
	if cfg.GetIoUMin() != def.GetIoUMin() || cfg.GetMaxAge() != def.GetMaxAge() ||
		cfg.GetMinHits() != def.GetMinHits() || cfg.GetProximityThresholdPx() != def.GetProximityThresholdPx() ||
		cfg.GetOccupancyTimeThreshold() != def.GetOccupancyTimeThreshold() {
		t.Errorf("defaults file diverges from DefaultTuningConfig: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"valid config", DefaultTuningConfig(), false},
		{"empty config is valid", &TuningConfig{}, false},
		{"iou too low", &TuningConfig{IoUMin: ptrFloat64(-0.1)}, true},
		{"iou too high", &TuningConfig{IoUMin: ptrFloat64(1.5)}, true},
		{"zero max age", &TuningConfig{MaxAge: ptrInt(0)}, true},
		{"negative max age", &TuningConfig{MaxAge: ptrInt(-3)}, true},
		{"zero min hits", &TuningConfig{MinHits: ptrInt(0)}, true},
		{"negative proximity", &TuningConfig{ProximityThresholdPx: ptrFloat64(-1)}, true},
		{"zero proximity", &TuningConfig{ProximityThresholdPx: ptrFloat64(0)}, true},
		{"confidence above one", &TuningConfig{MinConfidence: ptrFloat64(1.1)}, true},
		{"negative episodes", &TuningConfig{MaxEpisodes: ptrInt(-1)}, true},
		{"unparseable threshold", &TuningConfig{OccupancyTimeThreshold: ptrString("soon")}, true},
		{"negative threshold", &TuningConfig{OccupancyTimeThreshold: ptrString("-1s")}, true},
		{"zero threshold", &TuningConfig{OccupancyTimeThreshold: ptrString("0s")}, false},
		{"negative expiry", &TuningConfig{SeatExpiry: ptrString("-5m")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestGetDurationFallbacks(t *testing.T) {
	cfg := &TuningConfig{
		OccupancyTimeThreshold: ptrString("garbage"),
		SeatExpiry:             ptrString("garbage"),
	}
	if got := cfg.GetOccupancyTimeThreshold(); got != 10*time.Second {
		t.Errorf("GetOccupancyTimeThreshold() = %v, want 10s on parse error", got)
	}
	if got := cfg.GetSeatExpiry(); got != 0 {
		t.Errorf("GetSeatExpiry() = %v, want 0 on parse error", got)
	}
}
