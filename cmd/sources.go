package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fornellas/resonance/log"
	"github.com/spf13/viper"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/cache"
)

// expandPatterns resolves doublestar patterns to files, keeping the order of patterns. A pattern
// without matches is an error.
func expandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %#v: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %#v", pattern)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			paths = append(paths, match)
		}
	}
	return paths, nil
}

func loadSources(ctx context.Context, patterns []string) ([]asm.Source, error) {
	logger := log.MustLogger(ctx)

	paths, err := expandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	sources := make([]asm.Source, 0, len(paths))
	for _, path := range paths {
		logger.Debug("Loading", "path", path)
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, asm.Source{Name: path, Text: string(text)})
	}
	return sources, nil
}

// cacheDir is the configured cache directory, or the default one.
func cacheDir() (string, error) {
	if dir := viper.GetString("cache-dir"); dir != "" {
		return dir, nil
	}
	return cache.DefaultDir()
}

// assemble assembles sources, going through the program cache when enabled.
func assemble(ctx context.Context, sources []asm.Source) (*asm.Program, error) {
	logger := log.MustLogger(ctx)
	memorySize := viper.GetInt64("memory-size")

	if !viper.GetBool("cache") {
		return asm.Assemble(memorySize, sources...)
	}

	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	programCache, err := cache.NewProgramCache(dir)
	if err != nil {
		logger.Warn("cache unavailable, assembling", "err", err)
		return asm.Assemble(memorySize, sources...)
	}
	return programCache.Assemble(ctx, memorySize, sources...)
}
