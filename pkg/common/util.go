package common

import (
	"os"
	"strconv"
	"time"
)

func IsProduction() bool {
	return os.Getenv(EnvKeyGoEnv) == "production"
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(GetEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func Mapper[T any, R any](items []T, mapFn func(T) R) []R {
	mapped := make([]R, len(items))
	for i := 0; i < len(items); i++ {
		mapped[i] = mapFn(items[i])
	}
	return mapped
}

func Filter[T any](items []T, keepFn func(T) bool) []T {
	kept := make([]T, 0, len(items))
	for i := 0; i < len(items); i++ {
		if keepFn(items[i]) {
			kept = append(kept, items[i])
		}
	}
	return kept
}
