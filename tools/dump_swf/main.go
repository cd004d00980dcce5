// Package main inspects furniture bundles and dumps their tags.
//
// Usage:
//
//	go run ./tools/dump_swf --input data/latest/com/bundles/chair_norja.swf --list
//	go run ./tools/dump_swf --input chair_norja.swf --dump-all --output /tmp/chair
//	go run ./tools/dump_swf --input chair_norja.swf --output /tmp/extracted
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/1siamBot/furni-extractor/engine/bundle"
	"github.com/1siamBot/furni-extractor/engine/extract"
	"github.com/1siamBot/furni-extractor/engine/pixel"
	"github.com/1siamBot/furni-extractor/engine/swf"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "dump_swf: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("dump_swf", pflag.ContinueOnError)
	inputPath := flagSet.String("input", "", "Path to a .swf bundle")
	outputPath := flagSet.String("output", "extracted", "Output directory")
	listOnly := flagSet.Bool("list", false, "Just list the header and tags")
	dumpAll := flagSet.Bool("dump-all", false, "Dump every tag body to the output directory")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" {
		return fmt.Errorf("usage: dump_swf --input <bundle.swf> [--list | --dump-all] [--output <dir>]")
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		return err
	}

	if !*listOnly && !*dumpAll {
		return extractBundle(*inputPath, *outputPath, stdout)
	}

	movie, err := swf.Decode(data)
	if err != nil {
		return err
	}
	h := movie.Header
	fmt.Fprintf(stdout, "%s v%d: length=%d frame=%dx%d twips rate=%.2f frames=%d tags=%d\n",
		h.Signature, h.Version, h.FileLength,
		h.FrameSize.XMax-h.FrameSize.XMin, h.FrameSize.YMax-h.FrameSize.YMin,
		h.FrameRate, h.FrameCount, len(movie.Tags))

	if *listOnly {
		for i, t := range movie.Tags {
			fmt.Fprintf(stdout, "  #%-4d %s\n", i, describe(t))
		}
		return nil
	}
	return dumpTags(movie.Tags, filepath.Join(*outputPath, "raw_dump"), stdout)
}

// ─── Listing ────────────────────────────────────────────────────────────────

func describe(t swf.Tag) string {
	switch v := t.(type) {
	case *swf.SymbolClass:
		s := fmt.Sprintf("%s symbols=%d", v.Code(), len(v.Symbols))
		for _, sym := range v.Symbols {
			s += fmt.Sprintf("\n          %5d %s", sym.ID, sym.Name)
		}
		return s
	case *swf.BinaryData:
		return fmt.Sprintf("%s id=%d size=%d", v.Code(), v.ID, len(v.Data))
	case *swf.LosslessBitmap:
		return fmt.Sprintf("%s id=%d format=%s %dx%d packed=%d",
			v.Code(), v.ID, v.Format, v.Width, v.Height, len(v.Data))
	case *swf.Unknown:
		return fmt.Sprintf("%s size=%d", v.Code(), len(v.Body))
	default:
		return t.Code().String()
	}
}

// ─── Dumping ────────────────────────────────────────────────────────────────

// dumpTags writes each tag under its stream index. Bitmaps in a known
// format are also converted to PNG next to their packed body.
func dumpTags(tags []swf.Tag, dir string, stdout io.Writer) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, t := range tags {
		var (
			name string
			body []byte
		)
		switch v := t.(type) {
		case *swf.SymbolClass:
			name = fmt.Sprintf("%04d_symbols.txt", i)
			for _, sym := range v.Symbols {
				body = fmt.Appendf(body, "%d\t%s\n", sym.ID, sym.Name)
			}
		case *swf.BinaryData:
			name, body = fmt.Sprintf("%04d_binary_%d.bin", i, v.ID), v.Data
		case *swf.LosslessBitmap:
			name, body = fmt.Sprintf("%04d_bitmap_%d.zlib", i, v.ID), v.Data
			if png, err := pixel.Convert(v.Data, v.Format, v.Width, v.Height); err == nil {
				pngName := fmt.Sprintf("%04d_bitmap_%d.png", i, v.ID)
				if err := os.WriteFile(filepath.Join(dir, pngName), png, 0644); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(stdout, "  bitmap %d: %v\n", v.ID, err)
			}
		case *swf.Unknown:
			name, body = fmt.Sprintf("%04d_tag_%d.bin", i, uint16(v.TagCode)), v.Body
		}
		if err := os.WriteFile(filepath.Join(dir, name), body, 0644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "  dumped %s (%d bytes)\n", name, len(body))
	}
	return nil
}

// ─── Extraction ─────────────────────────────────────────────────────────────

func extractBundle(path, output string, stdout io.Writer) error {
	d := &bundle.Driver{
		OutputDir:    output,
		Materializer: extract.Materializer{Workers: 4},
	}
	out, err := d.ProcessFile(context.Background(), path)
	if err != nil {
		return err
	}
	for _, r := range out.Records {
		switch r.Status {
		case extract.StatusWritten:
			fmt.Fprintf(stdout, "  %-8s %s (%d bytes, blake3 %.16s)\n", r.Status, r.File, r.Size, r.Digest)
		case extract.StatusSkipped:
			fmt.Fprintf(stdout, "  %-8s %s\n", r.Status, r.File)
		default:
			fmt.Fprintf(stdout, "  %-8s %s id=%d: %v\n", r.Status, r.Kind, r.AssetID, r.Err)
		}
	}
	fmt.Fprintln(stdout, out)
	return nil
}
