package cache

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"

	"github.com/fornellas/resonance/log"

	"github.com/MaartenS11/iasm/pkg/asm"
)

// ProgramId identifies an assembled program by its memory layout and sources.
type ProgramId string

// NewProgramId hashes memorySize and every source name and text, in order.
func NewProgramId(memorySize int64, sources ...asm.Source) ProgramId {
	hash := sha512.New()
	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(memorySize))
	hash.Write(size[:])
	for _, source := range sources {
		for _, s := range []string{source.Name, source.Text} {
			binary.LittleEndian.PutUint64(size[:], uint64(len(s)))
			hash.Write(size[:])
			hash.Write([]byte(s))
		}
	}
	return ProgramId(hex.EncodeToString(hash.Sum(nil)))
}

// ProgramCacheValue is what gets persisted for a program.
type ProgramCacheValue struct {
	Id      ProgramId
	Program *asm.Program
}

// ProgramCache caches assembler output.
type ProgramCache struct {
	*Cache[ProgramId, *ProgramCacheValue]
}

func NewProgramCache(cacheDir string) (*ProgramCache, error) {
	cache, err := NewCache[ProgramId, *ProgramCacheValue](cacheDir)
	if err != nil {
		return nil, err
	}

	return &ProgramCache{
		Cache: cache,
	}, nil
}

// Assemble returns the cached program for sources, assembling and caching it on a miss.
func (c *ProgramCache) Assemble(ctx context.Context, memorySize int64, sources ...asm.Source) (*asm.Program, error) {
	logger := log.MustLogger(ctx)

	id := NewProgramId(memorySize, sources...)

	logger.Debug("Checking if cached", "id", id[:16])
	value, err := c.Get(id)
	switch {
	case err != nil:
		logger.Warn("dropping unreadable cache entry", "err", err)
		if err := c.Delete(id); err != nil {
			return nil, err
		}
	case value == nil:
	case value.Id == id && value.Program != nil:
		logger.Debug("Cache hit")
		return value.Program, nil
	default:
		logger.Warn("dropping mismatched cache entry", "id", id[:16])
		if err := c.Delete(id); err != nil {
			return nil, err
		}
	}

	logger.Debug("Not in cache, assembling")
	program, err := asm.Assemble(memorySize, sources...)
	if err != nil {
		return nil, err
	}

	if err := c.Put(id, &ProgramCacheValue{Id: id, Program: program}); err != nil {
		return nil, err
	}
	return program, nil
}
