// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// wiredump prints the structure of values encoded with
// github.com/objectwire/wire. It reads one or more values from each file
// named on the command line, or from standard input, and prints a tree of
// manifests, type names, field names and primitive values.
//
// Types aren't registered with the dumping engine, so composite values are
// walked using only what the stream says about them. Structs written with
// version tolerance, pointers, slices and maps can always be walked; other
// composites stop the dump with an error.
//
// Values framed in compressed envelopes need the --compression flag the
// writer used:
//
//	wiredump --compression zstd --format yaml values.bin
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/objectwire/wire"
	"github.com/objectwire/wire/compress"
	"github.com/objectwire/wire/compress/gzip"
	"github.com/objectwire/wire/compress/lz4"
	"github.com/objectwire/wire/compress/zstd"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatCBOR     = "cbor"
	formatCBORDiag = "cbor-diag"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wiredump: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	format      string
	compression string
	maxBytes    int
	verbose     bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cfg config
	flagSet := pflag.NewFlagSet("wiredump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.format, "format", "f", formatText, "output format: text, json, yaml, cbor or cbor-diag")
	flagSet.StringVarP(&cfg.compression, "compression", "c", compress.NameIdentity, "envelope compression: identity, gzip, zstd or lz4")
	flagSet.IntVar(&cfg.maxBytes, "max-bytes", 0, "reject values larger than this many bytes (0 allows any size)")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log codec construction to stderr")
	flagSet.BoolP("help", "h", false, "show help")
	showVersion := flagSet.Bool("version", false, "print the version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, stderr)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stderr)
		return nil
	}
	if *showVersion {
		fmt.Fprintln(stdout, wire.Version)
		return nil
	}

	printer, err := newPrinter(cfg.format, stdout)
	if err != nil {
		return err
	}
	serializer, err := newSerializer(cfg, stderr)
	if err != nil {
		return err
	}

	paths := flagSet.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	for _, path := range paths {
		if err := dumpPath(serializer, printer, path, stdin); err != nil {
			return err
		}
	}
	return nil
}

func newSerializer(cfg config, stderr io.Writer) (*wire.Serializer, error) {
	options := []wire.Option{wire.WithReadMaxBytes(cfg.maxBytes)}
	if cfg.verbose {
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		options = append(options, wire.WithLogger(logger))
	}
	switch cfg.compression {
	case compress.NameIdentity, "":
	case gzip.Name:
		options = append(options, wire.WithCompressor(gzip.New()))
	case zstd.Name:
		compressor, err := zstd.New()
		if err != nil {
			return nil, err
		}
		options = append(options, wire.WithCompressor(compressor))
	case lz4.Name:
		options = append(options, wire.WithCompressor(lz4.New()))
	default:
		return nil, fmt.Errorf("unknown compression %q", cfg.compression)
	}
	return wire.NewSerializer(options...), nil
}

func dumpPath(serializer *wire.Serializer, printer printer, path string, stdin io.Reader) error {
	var source io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		source = file
	}
	reader := bufio.NewReader(source)
	for {
		node, err := serializer.Dump(reader)
		if err != nil && errors.Is(err, io.EOF) {
			return nil
		}
		if node != nil {
			if printErr := printer(node); printErr != nil {
				return printErr
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(path), err)
		}
	}
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

type printer func(*wire.DumpNode) error

func newPrinter(format string, w io.Writer) (printer, error) {
	switch format {
	case formatText:
		return func(node *wire.DumpNode) error {
			var out strings.Builder
			writeText(&out, node, 0)
			_, err := io.WriteString(w, out.String())
			return err
		}, nil
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return func(node *wire.DumpNode) error {
			return encoder.Encode(node)
		}, nil
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		return func(node *wire.DumpNode) error {
			return encoder.Encode(node)
		}, nil
	case formatCBOR:
		encoder := cbor.NewEncoder(w)
		return func(node *wire.DumpNode) error {
			return encoder.Encode(node)
		}, nil
	case formatCBORDiag:
		return func(node *wire.DumpNode) error {
			data, err := cbor.Marshal(node)
			if err != nil {
				return err
			}
			notation, err := cbor.Diagnose(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, notation)
			return err
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// writeText prints one line per node:
//
//	offset  field: manifest type = value
func writeText(out *strings.Builder, node *wire.DumpNode, depth int) {
	fmt.Fprintf(out, "%08x  %s", node.Offset, strings.Repeat("  ", depth))
	if node.Field != "" {
		fmt.Fprintf(out, "%s: ", node.Field)
	}
	out.WriteString(node.Manifest)
	if node.Type != "" {
		fmt.Fprintf(out, " %s", node.Type)
	}
	if node.Opaque {
		out.WriteString(" (opaque)")
	}
	if node.Value != nil {
		if s, ok := node.Value.(string); ok {
			fmt.Fprintf(out, " = %q", s)
		} else {
			fmt.Fprintf(out, " = %v", node.Value)
		}
	}
	out.WriteByte('\n')
	for _, child := range node.Children {
		writeText(out, child, depth+1)
	}
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `wiredump prints the structure of wire-encoded values.

Values are read from each file argument in turn, or from standard input
when there are none. "-" also means standard input.

Usage:
  wiredump [flags] [file ...]

Examples:
  # Print a tree of every value in a file
  wiredump values.bin

  # Read zstd-compressed envelopes from a pipe and print YAML
  producer | wiredump --compression zstd --format yaml

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
