package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mrsinham/phantomct/cmd/phantomct/wizard"
	"github.com/mrsinham/phantomct/internal/dicom"
	"github.com/mrsinham/phantomct/internal/dicom/modalities"
	"github.com/mrsinham/phantomct/internal/util"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	defaults := dicom.DefaultOptions()

	// Series geometry
	outputDir := flag.String("output", defaults.OutputDir, "Output directory")
	numSlices := flag.Int("num-slices", defaults.NumSlices, "Number of slices to generate")
	rows := flag.Int("rows", defaults.Rows, "Rows per slice")
	cols := flag.Int("cols", defaults.Cols, "Columns per slice")
	pixelSpacing := flag.String("pixel-spacing", "0.5,0.5", "Pixel spacing in mm: 'ROW,COL' or a single value")
	sliceThickness := flag.Float64("slice-thickness", defaults.SliceThickness, "Slice thickness in mm")

	// Identity
	modality := flag.String("modality", string(defaults.Modality), "Imaging modality: CT, MR")
	patientName := flag.String("patient-name", defaults.PatientName, "Patient name (DICOM PN, e.g. 'Doe^John')")
	patientID := flag.String("patient-id", defaults.PatientID, "Patient ID")
	seed := flag.Int64("seed", 0, "Seed for reproducible UIDs (0 = random)")

	var tagFlags []string
	flag.Func("tag", "Set DICOM tag: 'TagName=Value' (repeatable)", func(s string) error {
		tagFlags = append(tagFlags, s)
		return nil
	})

	// Extras
	label := flag.Bool("label", false, "Burn 'Slice i/N' into each image")
	writeDICOMDIR := flag.Bool("dicomdir", false, "Write a DICOMDIR index next to the slices")

	// Interactive wizard and config options
	interactive := flag.Bool("interactive", false, "Launch interactive wizard")
	flag.BoolVar(interactive, "i", false, "Launch interactive wizard (shortcut)")
	configFile := flag.String("config", "", "Load configuration from YAML file")
	saveConfig := flag.String("save-config", "", "Save configuration to YAML file (after generation)")

	quiet := flag.Bool("quiet", false, "Suppress per-file output")
	help := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *showVersion {
		fmt.Printf("phantomct %s\n", version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *interactive {
		if err := wizard.Run(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg := wizard.DefaultConfig()
	if *configFile != "" {
		loaded, err := wizard.LoadFromYAML(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags given on the command line win over the config file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.OutputDir = *outputDir
		case "num-slices":
			cfg.NumSlices = *numSlices
		case "rows":
			cfg.Rows = *rows
		case "cols":
			cfg.Cols = *cols
		case "pixel-spacing":
			spacing, err := wizard.ParsePixelSpacing(*pixelSpacing)
			if err != nil {
				flagErr = err
				return
			}
			cfg.PixelSpacing = spacing
		case "slice-thickness":
			cfg.SliceThickness = *sliceThickness
		case "modality":
			cfg.Modality = *modality
		case "patient-name":
			cfg.PatientName = *patientName
		case "patient-id":
			cfg.PatientID = *patientID
		case "seed":
			cfg.Seed = *seed
		case "label":
			cfg.Label = *label
		case "dicomdir":
			cfg.DICOMDIR = *writeDICOMDIR
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(1)
	}

	if _, err := modalities.Parse(cfg.Modality); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts, err := wizard.ToGeneratorOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	// Parse and validate custom tags; they are applied after the config file's
	parsedTags, err := util.ParseTagFlags(tagFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.CustomTags = append(opts.CustomTags, parsedTags...)
	opts.Quiet = *quiet

	if !opts.Quiet {
		fmt.Println("phantomct")
		fmt.Println("=========")
		if *configFile != "" {
			fmt.Printf("Loading config from %s\n", *configFile)
		}
		if len(opts.CustomTags) > 0 {
			fmt.Printf("Custom tags: %d specified\n", len(opts.CustomTags))
		}
		fmt.Println()
	}

	generatedFiles, err := dicom.GenerateSeries(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating series: %v\n", err)
		os.Exit(1)
	}

	if cfg.DICOMDIR {
		if err := dicom.WriteDICOMDIR(opts.OutputDir, generatedFiles, opts.Quiet); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating DICOMDIR: %v\n", err)
			os.Exit(1)
		}
	}

	if *saveConfig != "" {
		saved := wizard.FromGeneratorOptions(opts)
		saved.DICOMDIR = cfg.DICOMDIR
		if err := wizard.SaveToYAML(saved, *saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
		} else if !opts.Quiet {
			fmt.Printf("Configuration saved to %s\n", *saveConfig)
		}
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  phantomct [options]")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("phantomct")
	fmt.Println("=========")
	fmt.Println()
	fmt.Println("Generate a mock CT brain series with a simulated tumor, one DICOM file per slice.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  phantomct [options]")
	fmt.Println()
	fmt.Println("Series options:")
	fmt.Println("  --output <DIR>           Output directory (default: 'mock_brain_tumor_series')")
	fmt.Println("  --num-slices <N>         Number of slices (default: 6)")
	fmt.Println("  --rows <N>               Rows per slice (default: 256)")
	fmt.Println("  --cols <N>               Columns per slice (default: 256)")
	fmt.Println("  --pixel-spacing <R,C>    Pixel spacing in mm (default: 0.5,0.5)")
	fmt.Println("  --slice-thickness <MM>   Slice thickness in mm, also the z step (default: 2)")
	fmt.Printf("  --modality <MOD>         Imaging modality: %s (default: CT)\n", joinModalities())
	fmt.Println("  --patient-name <NAME>    Patient name (default: 'Mock^BrainTumor')")
	fmt.Println("  --patient-id <ID>        Patient ID (default: 'MOCK123')")
	fmt.Println("  --seed <N>               Seed for reproducible UIDs (default: random)")
	fmt.Println()
	fmt.Println("Custom tags:")
	fmt.Println("  --tag <NAME=VALUE>       Set DICOM tag value (repeatable)")
	fmt.Println("                           Example: --tag \"InstitutionName=Phantom Lab\"")
	fmt.Printf("                           Supported: %s\n", strings.Join(util.SupportedTagNames(), ", "))
	fmt.Println()
	fmt.Println("Extras:")
	fmt.Println("  --label                  Burn 'Slice i/N' into the top of each image")
	fmt.Println("  --dicomdir               Write a DICOMDIR index next to the slices")
	fmt.Println("                           Note: file IDs reuse the slice_NNN.dcm names, which exceed")
	fmt.Println("                           the 8-character uppercase components of PS3.10 media;")
	fmt.Println("                           strict media readers may reject the index")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  --config <FILE>          Load options from a YAML file (flags override it)")
	fmt.Println("  --save-config <FILE>     Save the effective options as YAML after generation")
	fmt.Println("  -i, --interactive        Edit the options in an interactive form")
	fmt.Println()
	fmt.Println("  --quiet                  Only report errors")
	fmt.Println("  --version                Show version")
	fmt.Println("  --help                   Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Six 256x256 CT slices in ./mock_brain_tumor_series")
	fmt.Println("  phantomct")
	fmt.Println()
	fmt.Println("  # Reproducible 20-slice MR series with a DICOMDIR")
	fmt.Println("  phantomct --num-slices 20 --modality MR --seed 42 --dicomdir")
	fmt.Println()
	fmt.Println("  # Labelled slices for viewer screenshots")
	fmt.Println("  phantomct --label --output labelled")
	fmt.Println()
	fmt.Println("Output:")
	fmt.Println("  slice_001.dcm ... slice_NNN.dcm, one file per slice, sharing study and series UIDs.")
	fmt.Println("  The tumor is brightest on the center slice and fades toward both ends.")
}

func joinModalities() string {
	names := make([]string, 0, len(modalities.AllModalities()))
	for _, m := range modalities.AllModalities() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
