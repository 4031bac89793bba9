package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/kbinxml"
	"github.com/danmuck/kbinxml/internal/config"
	"github.com/danmuck/kbinxml/kbin"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "kbinxml: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("kbinxml", flag.ContinueOnError)
	fs.SetOutput(stderr)
	profile := fs.String("config", "", "TOML writer profile used for text to binary conversion")
	output := fs.String("output", "", "write the converted document to this path instead of stdout")
	dump := fs.Bool("dump", false, "print the binary node stream to stderr")
	verify := fs.Bool("verify", false, "re-encode binary input with its own header options and report differing bytes")
	initConfig := fs.String("init-config", "", "write a default writer profile to this path and exit")
	force := fs.Bool("force", false, "overwrite an existing profile")
	verbose := fs.Bool("v", false, "log codec operations to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initConfig != "" {
		if err := config.WriteProfile(*initConfig, config.DefaultProfile(), *force); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "wrote writer profile to %s\n", *initConfig)
		return nil
	}

	if fs.NArg() != 1 {
		return errors.New("usage: kbinxml [flags] <file|->")
	}
	data, err := readInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	opts := kbinxml.DefaultOptions()
	if *profile != "" {
		opts, err = kbinxml.LoadOptions(*profile)
		if err != nil {
			return err
		}
	}
	codec := kbinxml.NewCodec(opts)
	if *verbose {
		codec.Logger = kbinxml.RuntimeLogger()
	}

	var out []byte
	if kbinxml.IsBinary(data) {
		if *dump {
			if err := kbin.Dump(stderr, data); err != nil {
				return err
			}
		}
		root, enc, err := codec.DecodeBinary(data)
		if err != nil {
			return err
		}
		if *verify {
			if err := verifyBinary(codec, data, root, enc, stderr); err != nil {
				return err
			}
		}
		out, err = codec.EncodeText(root)
		if err != nil {
			return err
		}
	} else {
		if *verify {
			return errors.New("-verify needs binary input")
		}
		root, _, err := codec.DecodeText(data)
		if err != nil {
			return err
		}
		out, err = codec.EncodeBinary(root)
		if err != nil {
			return err
		}
		if *dump {
			if err := kbin.Dump(stderr, out); err != nil {
				return err
			}
		}
	}

	if *output != "" {
		return os.WriteFile(*output, out, 0o644)
	}
	_, err = stdout.Write(out)
	return err
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// verifyBinary re-encodes root through codec, using the compression and
// encoding of the input document, and reports every byte that differs.
func verifyBinary(codec *kbinxml.Codec, input []byte, root *kbinxml.Collection, enc kbinxml.Encoding, w io.Writer) error {
	h, err := kbin.ReadHeader(input)
	if err != nil {
		return err
	}
	c := *codec
	c.Options = kbinxml.Options{Compression: h.Compression, Encoding: enc}
	again, err := c.EncodeBinary(root)
	if err != nil {
		return err
	}
	diffs, err := diffDocuments(again, input)
	if err != nil {
		return err
	}
	if len(diffs) == 0 && len(again) == len(input) {
		return nil
	}
	for _, d := range diffs {
		fmt.Fprintln(w, d)
	}
	return fmt.Errorf("re-encoded document differs: %d mismatched bytes, length %d vs %d", len(diffs), len(again), len(input))
}
