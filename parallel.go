package ciphflow

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig controls parallel sub-chunk processing for the modes that
// support it (CTR both directions; CBC/CFB decrypt only).
type ParallelConfig struct {
	// Enabled enables parallel sub-chunk processing.
	Enabled bool

	// MaxWorkers is the maximum number of worker goroutines. If 0, defaults
	// to runtime.NumCPU().
	MaxWorkers int

	// MinChunksForParallel is the minimum number of chunks before parallel
	// processing is used; below it sequential processing wins (avoids
	// paying goroutine setup cost on tiny inputs). Defaults to 4.
	MinChunksForParallel int
}

// Validate checks the parallel configuration's bounds.
func (p *ParallelConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.MaxWorkers < 0 {
		return errors.New("ciphflow: parallel max workers cannot be negative")
	}
	if p.MaxWorkers > 1024 {
		return errors.New("ciphflow: parallel max workers must not exceed 1024")
	}
	if p.MinChunksForParallel < 1 {
		return errors.New("ciphflow: parallel min chunks threshold must be at least 1")
	}
	if p.MinChunksForParallel > 1000 {
		return errors.New("ciphflow: parallel min chunks threshold must not exceed 1000")
	}
	return nil
}

// DefaultParallelConfig returns the default parallel-processing
// configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		Enabled:              true,
		MaxWorkers:           runtime.NumCPU(),
		MinChunksForParallel: 4,
	}
}

// chunkRange describes one sub-chunk's block span within the overall
// ciphertext/plaintext buffer, split by block count rather than byte count.
type chunkRange struct {
	startBlock int
	numBlocks  int
}

// splitIntoChunks divides numBlocks blocks into up to numWorkers
// contiguous ranges, as evenly as possible.
func splitIntoChunks(numBlocks, numWorkers int) []chunkRange {
	if numWorkers > numBlocks {
		numWorkers = numBlocks
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	base := numBlocks / numWorkers
	rem := numBlocks % numWorkers

	ranges := make([]chunkRange, 0, numWorkers)
	start := 0
	for i := 0; i < numWorkers; i++ {
		n := base
		if i < rem {
			n++
		}
		if n == 0 {
			continue
		}
		ranges = append(ranges, chunkRange{startBlock: start, numBlocks: n})
		start += n
	}
	return ranges
}

// runParallel fans work fn out across ranges on up to cfg.MaxWorkers
// goroutines, recovering worker panics into errors the way a chunked
// worker pool should, and falls back to running fn sequentially when the
// range count doesn't clear cfg.MinChunksForParallel or parallelism is
// disabled.
func runParallel(cfg ParallelConfig, ranges []chunkRange, fn func(chunkRange) error) error {
	if len(ranges) == 0 {
		return nil
	}
	if !cfg.Enabled || len(ranges) < cfg.MinChunksForParallel {
		for _, r := range ranges {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	}

	numWorkers := cfg.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(ranges) {
		numWorkers = len(ranges)
	}

	var wg sync.WaitGroup
	jobChan := make(chan int, len(ranges))
	errChan := make(chan error, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("ciphflow: panic in parallel worker: %v", r)
					select {
					case errChan <- err:
					default:
					}
				}
			}()
			for idx := range jobChan {
				if err := fn(ranges[idx]); err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for i := range ranges {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// ParallelCTR XORs plaintext/ciphertext buf against the CTR keystream for
// block, iv, split across cfg.MaxWorkers goroutines. CTR is symmetric and
// parallelizable in both directions.
func ParallelCTR(cfg ParallelConfig, block cipher.Block, iv []byte, buf []byte) error {
	blockSize := block.BlockSize()
	numBlocks := (len(buf) + blockSize - 1) / blockSize
	ranges := splitIntoChunks(numBlocks, cfg.MaxWorkers)
	if cfg.MaxWorkers == 0 {
		ranges = splitIntoChunks(numBlocks, runtime.NumCPU())
	}

	return runParallel(cfg, ranges, func(r chunkRange) error {
		stream, err := CTRStreamAt(block, iv, uint64(r.startBlock))
		if err != nil {
			return err
		}
		start := r.startBlock * blockSize
		end := start + r.numBlocks*blockSize
		if end > len(buf) {
			end = len(buf)
		}
		stream.XORKeyStream(buf[start:end], buf[start:end])
		return nil
	})
}

// ParallelCBCDecrypt decrypts ciphertext (a whole number of blocks) into
// plaintext, split across cfg.MaxWorkers goroutines. Every worker needs only
// its range's ciphertext plus the one ciphertext block immediately
// preceding it (iv for block 0), never any decrypted plaintext, which is
// what makes CBC decrypt (unlike CBC encrypt) parallelizable.
func ParallelCBCDecrypt(cfg ParallelConfig, block cipher.Block, iv []byte, ciphertext, plaintext []byte) error {
	blockSize := block.BlockSize()
	if len(ciphertext)%blockSize != 0 {
		return fmt.Errorf("%w: cbc ciphertext length %d not a multiple of block size %d", ErrInvalidArgument, len(ciphertext), blockSize)
	}
	numBlocks := len(ciphertext) / blockSize
	ranges := splitIntoChunks(numBlocks, cfg.MaxWorkers)
	if cfg.MaxWorkers == 0 {
		ranges = splitIntoChunks(numBlocks, runtime.NumCPU())
	}

	return runParallel(cfg, ranges, func(r chunkRange) error {
		var prev []byte
		if r.startBlock == 0 {
			prev = iv
		} else {
			s := (r.startBlock - 1) * blockSize
			prev = ciphertext[s : s+blockSize]
		}
		for b := 0; b < r.numBlocks; b++ {
			idx := r.startBlock + b
			ctBlock := ciphertext[idx*blockSize : (idx+1)*blockSize]
			CBCDecryptBlock(block, prev, ctBlock, plaintext[idx*blockSize:(idx+1)*blockSize])
			prev = ctBlock
		}
		return nil
	})
}

// ParallelCFBDecrypt is ParallelCBCDecrypt's CFB-decrypt counterpart.
func ParallelCFBDecrypt(cfg ParallelConfig, block cipher.Block, iv []byte, ciphertext, plaintext []byte) error {
	blockSize := block.BlockSize()
	if len(ciphertext)%blockSize != 0 {
		return fmt.Errorf("%w: cfb ciphertext length %d not a multiple of block size %d", ErrInvalidArgument, len(ciphertext), blockSize)
	}
	numBlocks := len(ciphertext) / blockSize
	ranges := splitIntoChunks(numBlocks, cfg.MaxWorkers)
	if cfg.MaxWorkers == 0 {
		ranges = splitIntoChunks(numBlocks, runtime.NumCPU())
	}

	return runParallel(cfg, ranges, func(r chunkRange) error {
		var prev []byte
		if r.startBlock == 0 {
			prev = iv
		} else {
			s := (r.startBlock - 1) * blockSize
			prev = ciphertext[s : s+blockSize]
		}
		for b := 0; b < r.numBlocks; b++ {
			idx := r.startBlock + b
			ctBlock := ciphertext[idx*blockSize : (idx+1)*blockSize]
			CFBDecryptBlock(block, prev, ctBlock, plaintext[idx*blockSize:(idx+1)*blockSize])
			prev = ctBlock
		}
		return nil
	})
}
