// grftool inspects the heightmaps shipped inside Ragnarok Online GRF
// archives and extracts them for use with terrasync -gnd.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/terrasync/pkg/formats"
	"github.com/Faultbox/terrasync/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "maps", "ls":
		err = cmdMaps(args)
	case "info":
		err = cmdInfo(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`grftool - heightmap utility for GRF archives

Usage:
  grftool <command> [options]

Commands:
  maps <file.grf> [pattern]           List ground (.gnd) and altitude (.gat) files
  info <file.grf> <path>              Decode a heightmap inside the archive
  info <file.gnd|file.gat>            Decode a heightmap on disk
  extract <file.grf> <path> [output]  Extract a file to a directory

Examples:
  grftool maps data.grf prontera
  grftool info data.grf data/prontera.gnd
  terrasync -grf data.grf -gnd data/prontera.gnd`)
}

func cmdMaps(args []string) error {
	fs := flag.NewFlagSet("maps", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: grftool maps <file.grf> [pattern]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := strings.ToLower(fs.Arg(1))
	files := append(archive.Find(".gnd"), archive.Find(".gat")...)

	count := 0
	for _, f := range files {
		if pattern != "" && !strings.Contains(f, pattern) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%d heightmaps)\n", count)
	return nil
}

func cmdInfo(args []string) error {
	var (
		name string
		data []byte
		err  error
	)
	switch len(args) {
	case 1:
		name = args[0]
		data, err = os.ReadFile(name)
	case 2:
		name = args[1]
		data, err = readFromArchive(args[0], name)
	default:
		return fmt.Errorf("usage: grftool info <file.grf> <path> | <file.gnd>")
	}
	if err != nil {
		return err
	}

	hm, err := formats.DecodeHeightmap(name, data)
	if err != nil {
		return err
	}
	lo, hi := hm.Range()

	fmt.Printf("File:    %s\n", name)
	fmt.Printf("Format:  %s\n", hm.Format)
	fmt.Printf("Samples: %d rows x %d cols\n", hm.Rows, hm.Cols)
	if hm.Spacing > 0 {
		fmt.Printf("Spacing: %g\n", hm.Spacing)
	}
	fmt.Printf("Heights: %.2f .. %.2f\n", lo, hi)
	return nil
}

func cmdExtract(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: grftool extract <file.grf> <path> [output_dir]")
	}
	outputDir := "."
	if len(args) > 2 {
		outputDir = args[2]
	}

	data, err := readFromArchive(args[0], args[1])
	if err != nil {
		return err
	}

	outputPath := filepath.Join(outputDir, filepath.Base(strings.ReplaceAll(args[1], "\\", "/")))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
	return nil
}

func readFromArchive(archivePath, name string) ([]byte, error) {
	archive, err := grf.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()
	return archive.Read(name)
}
