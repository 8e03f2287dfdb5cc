package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries runtime settings, populated from the environment with an
// optional .env file.
type Config struct {
	DatabasePath        string
	CropDir             string
	DetectorConcurrency int
	MaxFacesPerImage    int
	SimilarityThreshold float64
	BackfillBatchSize   uint64
}

// Load reads .env if present and builds the config from environment
// variables, falling back to defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment defaults")
	}
	return Config{
		DatabasePath:        getEnv("PHOTOVAULT_DB", "photovault.db"),
		CropDir:             getEnv("PHOTOVAULT_CROP_DIR", "face_crops"),
		DetectorConcurrency: getEnvInt("PHOTOVAULT_DETECTOR_CONCURRENCY", 2),
		MaxFacesPerImage:    getEnvInt("PHOTOVAULT_MAX_FACES", 10),
		SimilarityThreshold: getEnvFloat("PHOTOVAULT_FACE_THRESHOLD", 0.6),
		BackfillBatchSize:   uint64(getEnvInt("PHOTOVAULT_BACKFILL_BATCH", 100)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("config: invalid integer for %s, using %d", key, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("config: invalid float for %s, using %g", key, fallback)
	}
	return fallback
}
