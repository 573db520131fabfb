// Command ciphflow is a small demo front-end over the ciphflow pipeline: it
// encrypts or decrypts a file against an in-memory, password-derived
// example key store. It is not a production tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/heliosec/ciphflow"
	"github.com/heliosec/ciphflow/cmd/ciphflow/examplestore"
)

func defaultDescription() ciphflow.CipherDescription {
	return ciphflow.CipherDescription{
		Engine:     ciphflow.EngineRDX,
		KeySize:    32,
		IVSize:     16,
		BlockSize:  16,
		Mode:       ciphflow.ModeCTR,
		Padding:    ciphflow.PaddingNone,
		MACEngine:  ciphflow.DigestSHA512,
		MACTagSize: 64,
	}
}

func run() error {
	mode := flag.String("mode", "encrypt", "encrypt or decrypt")
	in := flag.String("in", "", "input file path")
	out := flag.String("out", "", "output file path")
	password := flag.String("password", "", "password the example key store derives keys from")
	flag.Parse()

	if *in == "" || *out == "" || *password == "" {
		return fmt.Errorf("usage: ciphflow -mode encrypt|decrypt -in <path> -out <path> -password <pw>")
	}

	inFile, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer inFile.Close()

	outFile, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	ctx := context.Background()
	store := examplestore.New([]byte(*password), examplestore.KDFArgon2id, defaultDescription())

	switch *mode {
	case "encrypt":
		fingerprint, desc, km, extension, err := store.NextSubkey(ctx)
		if err != nil {
			return err
		}
		defer km.Zero()

		pipe, err := ciphflow.NewEncryptPipeline(desc, km, fingerprint, extension)
		if err != nil {
			return err
		}
		return pipe.Process(ctx, inFile, outFile)

	case "decrypt":
		pipe, err := ciphflow.NewDecryptPipeline(store)
		if err != nil {
			return err
		}
		return pipe.Process(ctx, inFile, outFile)

	default:
		return fmt.Errorf("unknown mode %q, want encrypt or decrypt", *mode)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ciphflow:", err)
		os.Exit(1)
	}
}
