package ciphflow

import (
	"context"
	"crypto/cipher"
	"io"
)

// pipelineState is the Pipeline's state machine:
//
//	Uninit -> Ready -> Primed -> {Verifying -> Transforming | Transforming}
//	       -> Finalizing -> Done | Failed
type pipelineState uint8

const (
	stateUninit pipelineState = iota
	stateReady
	statePrimed
	stateVerifying
	stateTransforming
	stateFinalizing
	stateDone
	stateFailed
)

// ParallelPolicyKind selects how Pipeline.Process decides whether, and how
// widely, to fan a parallelizable mode's transform out across workers.
type ParallelPolicyKind uint8

const (
	// ParallelOff disables parallel fan-out; every transform runs on the
	// calling goroutine.
	ParallelOff ParallelPolicyKind = iota
	// ParallelSpeedProfile hands the whole buffered message to the worker
	// pool in one call; no size cap is applied.
	ParallelSpeedProfile
	// ParallelProgressProfile enables the same worker fan-out as
	// ParallelSpeedProfile. N is not read, and the progress callback is
	// still invoked once per Process call, not N times.
	ParallelProgressProfile
)

// ParallelPolicy is the value set_parallel takes.
type ParallelPolicy struct {
	Kind ParallelPolicyKind
	N    uint32 // target step count for ParallelProgressProfile; toConfig does not read it
}

// parallelMinimumSize (64 KiB) and parallelSpeedProfileSize (100 MiB) name
// work-unit bounds for the parallel profiles. toConfig and transformAll do
// not read them: no profile caps or floors the region handed to the worker
// pool.
const (
	parallelMinimumSize      = 64 * 1024
	parallelSpeedProfileSize = 100 * 1024 * 1024
)

func (p ParallelPolicy) toConfig() ParallelConfig {
	if p.Kind == ParallelOff {
		return ParallelConfig{Enabled: false}
	}
	cfg := DefaultParallelConfig()
	cfg.Enabled = true
	return cfg
}

// Pipeline drives one direction's transform of one message: the
// coordination core tying together block/stream ciphers, modes, padding,
// and MAC verification. Construct one with NewEncryptPipeline or
// NewDecryptPipeline; a Pipeline is single-use for one Process call.
type Pipeline struct {
	dir   Direction
	state pipelineState

	desc *CipherDescription
	km   *KeyMaterial

	fingerprint [16]byte
	extension   [16]byte
	store       KeyStore // decrypt only; nil for encrypt

	progress ProgressFunc
	parallel ParallelPolicy
}

// NewEncryptPipeline builds a Pipeline that encrypts under desc/km,
// stamping fingerprint and extension into the MessageHeader it writes
// ahead of the ciphertext.
func NewEncryptPipeline(desc *CipherDescription, km *KeyMaterial, fingerprint, extension [16]byte) (*Pipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if err := km.Validate(desc); err != nil {
		return nil, err
	}
	return &Pipeline{
		dir:         Encrypt,
		state:       stateReady,
		desc:        desc,
		km:          km,
		fingerprint: fingerprint,
		extension:   extension,
		parallel:    ParallelPolicy{Kind: ParallelOff},
	}, nil
}

// NewDecryptPipeline builds a Pipeline that decrypts, resolving its
// CipherDescription and KeyMaterial from the header it reads at the start
// of Process by asking store.
func NewDecryptPipeline(store KeyStore) (*Pipeline, error) {
	if store == nil {
		return nil, newValidationError("store", nil, "decrypt pipeline requires a key store")
	}
	return &Pipeline{
		dir:      Decrypt,
		state:    stateReady,
		store:    store,
		parallel: ParallelPolicy{Kind: ParallelOff},
	}, nil
}

// SetProgressCallback installs fn to be called as bytes are processed.
func (p *Pipeline) SetProgressCallback(fn ProgressFunc) { p.progress = fn }

// SetParallel installs the parallel fan-out policy.
func (p *Pipeline) SetParallel(policy ParallelPolicy) { p.parallel = policy }

// State reports the pipeline's current state machine position.
func (p *Pipeline) State() pipelineState { return p.state }

func (p *Pipeline) fail(err error) error {
	p.state = stateFailed
	if p.km != nil {
		p.km.Zero()
	}
	return err
}

// Process runs the full transform: resolve key material, verify (decrypt)
// or generate (encrypt) the header, transform the body, and finalize,
// reading input and writing output. It buffers the whole message in
// memory: MAC verification must complete before any plaintext reaches
// output, and a plain io.Writer cannot be rewound to patch in a MAC tag
// computed after the ciphertext, so both directions stage their full
// result before a single write to output.
func (p *Pipeline) Process(ctx context.Context, input io.Reader, output io.Writer) error {
	if p.state != stateReady {
		return p.fail(newPipelineStateError("pipeline is not in Ready state"))
	}
	p.state = statePrimed

	if p.dir == Decrypt {
		return p.processDecrypt(ctx, input, output)
	}
	return p.processEncrypt(ctx, input, output)
}

func (p *Pipeline) processDecrypt(ctx context.Context, input io.Reader, output io.Writer) error {
	// Step 1: peek the fingerprint to resolve description/key material,
	// then read the rest of the fixed header now that we know its size.
	var fpBuf [16]byte
	if _, err := io.ReadFull(input, fpBuf[:]); err != nil {
		return p.fail(newIOError("read_header_fingerprint", 0, err))
	}

	desc, km, err := p.store.Resolve(ctx, fpBuf)
	if err != nil {
		return p.fail(err)
	}
	if err := desc.Validate(); err != nil {
		return p.fail(err)
	}
	if err := km.Validate(desc); err != nil {
		return p.fail(err)
	}
	p.desc, p.km = desc, km

	header := &MessageHeader{Fingerprint: fpBuf, Tag: make([]byte, desc.MACTagSize)}
	if _, err := io.ReadFull(input, header.Extension[:]); err != nil {
		return p.fail(newIOError("read_header_extension", 16, err))
	}
	if desc.MACTagSize > 0 {
		if _, err := io.ReadFull(input, header.Tag); err != nil {
			return p.fail(newIOError("read_header_tag", 32, err))
		}
	}
	p.fingerprint = header.Fingerprint
	p.extension = header.PlainExtension()

	ciphertext, err := io.ReadAll(input)
	if err != nil {
		return p.fail(newIOError("read_ciphertext", int64(header.Size()), err))
	}

	// Step 2: verify before emitting any plaintext.
	if desc.MACTagSize > 0 {
		p.state = stateVerifying
		mac, err := NewMAC(desc.MACEngine, km.MACKey)
		if err != nil {
			return p.fail(err)
		}
		mac.Write(ciphertext)
		computed := mac.Sum(nil)
		if !header.VerifyTag(computed) {
			return p.fail(newAuthenticationError("mac tag mismatch"))
		}
	}

	// Step 3: transform.
	p.state = stateTransforming
	plaintext, err := p.transformAll(Decrypt, ciphertext)
	if err != nil {
		return p.fail(err)
	}

	if p.progress != nil {
		if p.progress(int64(len(ciphertext)), int64(len(ciphertext))) == Stop {
			return p.fail(ErrCancelled)
		}
	}

	p.state = stateFinalizing
	if _, err := output.Write(plaintext); err != nil {
		return p.fail(newIOError("write_plaintext", 0, err))
	}

	p.state = stateDone
	p.km.Zero()
	return nil
}

func (p *Pipeline) processEncrypt(ctx context.Context, input io.Reader, output io.Writer) error {
	plaintext, err := io.ReadAll(input)
	if err != nil {
		return p.fail(newIOError("read_plaintext", 0, err))
	}

	p.state = stateTransforming
	ciphertext, err := p.transformAll(Encrypt, plaintext)
	if err != nil {
		return p.fail(err)
	}

	if p.progress != nil {
		if p.progress(int64(len(ciphertext)), int64(len(ciphertext))) == Stop {
			return p.fail(ErrCancelled)
		}
	}

	p.state = stateFinalizing
	header := NewMessageHeader(p.fingerprint, p.extension, p.desc.MACTagSize)
	if p.desc.MACTagSize > 0 {
		mac, err := NewMAC(p.desc.MACEngine, p.km.MACKey)
		if err != nil {
			return p.fail(err)
		}
		mac.Write(ciphertext)
		copy(header.Tag, mac.Sum(nil))
	}

	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return p.fail(err)
	}
	if _, err := output.Write(headerBytes); err != nil {
		return p.fail(newIOError("write_header", 0, err))
	}
	if _, err := output.Write(ciphertext); err != nil {
		return p.fail(newIOError("write_ciphertext", int64(len(headerBytes)), err))
	}

	p.state = stateDone
	p.km.Zero()
	return nil
}

// transformAll applies desc's mode/padding/engine to the whole buffer at
// once, collapsed from a streaming block loop into one call per the
// buffering decision documented on Process.
func (p *Pipeline) transformAll(dir Direction, buf []byte) ([]byte, error) {
	desc := p.desc
	cfg := p.parallel.toConfig()

	if desc.Engine.IsStream() {
		sc, err := NewStreamCipher(desc.Engine, p.km.Key, p.km.IV)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(buf))
		sc.XORKeyStream(out, buf)
		return out, nil
	}

	block, err := NewBlockCipher(desc.Engine, desc.Rounds, desc.KDFDigest, p.km.Key)
	if err != nil {
		return nil, err
	}
	blockSize := block.BlockSize()
	iv := p.km.IV

	switch desc.Mode {
	case ModeCBC, ModeCFB:
		if dir == Encrypt {
			return p.encryptPaddedBlocks(desc.Mode, block, iv, buf, blockSize)
		}
		return p.decryptPaddedBlocks(desc.Mode, cfg, block, iv, buf, blockSize)

	case ModeOFB:
		streamIface, err := NewModeStream(ModeOFB, dir, block, iv)
		if err != nil {
			return nil, err
		}
		s := streamIface.(cipher.Stream)
		out := make([]byte, len(buf))
		s.XORKeyStream(out, buf)
		return out, nil

	case ModeCTR:
		out := make([]byte, len(buf))
		copy(out, buf)
		if cfg.Enabled {
			if err := ParallelCTR(cfg, block, iv, out); err != nil {
				return nil, err
			}
			return out, nil
		}
		streamIface, err := NewModeStream(ModeCTR, dir, block, iv)
		if err != nil {
			return nil, err
		}
		s := streamIface.(cipher.Stream)
		s.XORKeyStream(out, buf)
		return out, nil

	default:
		return nil, newValidationError("mode", desc.Mode, "unsupported mode for transform")
	}
}

func (p *Pipeline) encryptPaddedBlocks(mode ModeType, block cipher.Block, iv, buf []byte, blockSize int) ([]byte, error) {
	desc := p.desc
	fullLen := (len(buf) / blockSize) * blockSize
	remainder := buf[fullLen:]

	needsTrailer := desc.Padding != PaddingNone || len(remainder) > 0
	total := fullLen
	var trailer []byte
	if needsTrailer {
		padded, err := PadBlock(desc.Padding, remainder, blockSize)
		if err != nil {
			return nil, err
		}
		trailer = padded
		total += blockSize
	}

	out := make([]byte, total)
	streamIface, err := NewModeStream(mode, Encrypt, block, iv)
	if err != nil {
		return nil, err
	}
	if fullLen > 0 {
		cryptBlocksAny(streamIface, out[:fullLen], buf[:fullLen])
	}
	if trailer != nil {
		cryptBlocksAny(streamIface, out[fullLen:total], trailer)
	}
	return out, nil
}

// cryptBlocksAny runs a block-mode or stream-mode transformer over dst/src
// uniformly: CBC's cipher.NewCBCEncrypter/Decrypter return a
// cipher.BlockMode, while CFB's cipher.NewCFBEncrypter/Decrypter return a
// cipher.Stream even though CFB is conceptually block-structured. Both
// produce identical results run once over a whole already-block-aligned
// buffer, so the distinction only matters at this call boundary.
func cryptBlocksAny(modeStream interface{}, dst, src []byte) {
	switch v := modeStream.(type) {
	case cipher.BlockMode:
		v.CryptBlocks(dst, src)
	case cipher.Stream:
		v.XORKeyStream(dst, src)
	}
}

func (p *Pipeline) decryptPaddedBlocks(mode ModeType, cfg ParallelConfig, block cipher.Block, iv, buf []byte, blockSize int) ([]byte, error) {
	desc := p.desc
	if len(buf) == 0 || len(buf)%blockSize != 0 {
		return nil, newValidationError("ciphertext_length", len(buf), "must be a non-zero multiple of block size")
	}

	out := make([]byte, len(buf))
	if cfg.Enabled && mode.Parallelizable(Decrypt) {
		var err error
		if mode == ModeCBC {
			err = ParallelCBCDecrypt(cfg, block, iv, buf, out)
		} else {
			err = ParallelCFBDecrypt(cfg, block, iv, buf, out)
		}
		if err != nil {
			return nil, err
		}
	} else {
		streamIface, err := NewModeStream(mode, Decrypt, block, iv)
		if err != nil {
			return nil, err
		}
		cryptBlocksAny(streamIface, out, buf)
	}

	lastBlock := out[len(out)-blockSize:]
	plain, err := UnpadBlock(desc.Padding, lastBlock)
	if err != nil {
		return nil, err
	}
	result := make([]byte, 0, len(out)-blockSize+len(plain))
	result = append(result, out[:len(out)-blockSize]...)
	result = append(result, plain...)
	return result, nil
}

func newPipelineStateError(msg string) error {
	return newCipherError("process", "", msg, ErrInternalInvariant)
}
