package wizard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/mrsinham/phantomct/internal/dicom"
)

// Run starts the interactive wizard. If fromConfig is provided, the form is
// pre-filled from that YAML file.
func Run(fromConfig string) error {
	cfg := DefaultConfig()

	if fromConfig != "" {
		absPath, err := filepath.Abs(fromConfig)
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		loaded, err := LoadFromYAML(absPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	values := newFormValues(cfg)
	if err := newForm(values).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil // User cancelled, not an error
		}
		return fmt.Errorf("running form: %w", err)
	}
	if err := values.apply(cfg); err != nil {
		return err
	}

	opts, err := ToGeneratorOptions(cfg)
	if err != nil {
		return err
	}

	if err := generate(opts, cfg.DICOMDIR); err != nil {
		return err
	}

	if path := strings.TrimSpace(values.saveConfig); path != "" {
		if err := SaveToYAML(cfg, path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Configuration saved to %s\n", path)
	}
	return nil
}

// generate writes the series while a progress screen follows the slices.
// Closing the screen early does not stop generation: generate still waits
// for the last slice before returning.
func generate(opts dicom.GeneratorOptions, withDICOMDIR bool) error {
	model := newProgressModel(opts.NumSlices)
	p := tea.NewProgram(model)

	done := startGeneration(opts, withDICOMDIR, p.Send)

	if _, err := p.Run(); err != nil {
		<-done
		return fmt.Errorf("running progress screen: %w", err)
	}
	if model.cancelled {
		fmt.Println("Finishing the remaining slices...")
	}

	err := <-done
	if err == nil && model.cancelled {
		fmt.Printf("Generated %d slices in %s\n", opts.NumSlices, opts.OutputDir)
	}
	return err
}

// startGeneration runs the generator in the background, reporting progress
// and the outcome through send. The returned channel yields the outcome once
// every file is written.
func startGeneration(opts dicom.GeneratorOptions, withDICOMDIR bool, send func(tea.Msg)) <-chan error {
	done := make(chan error, 1)

	opts.Quiet = true
	opts.ProgressCallback = func(current, total int) {
		send(ProgressMsg{Current: current, Total: total})
	}

	go func() {
		start := time.Now()
		files, err := dicom.GenerateSeries(opts)
		if err == nil && withDICOMDIR {
			if dirErr := dicom.WriteDICOMDIR(opts.OutputDir, files, true); dirErr != nil {
				err = fmt.Errorf("creating DICOMDIR: %w", dirErr)
			}
		}

		if err != nil {
			send(ErrorMsg{Error: err})
		} else {
			send(CompletionMsg{
				TotalFiles: len(files),
				OutputDir:  opts.OutputDir,
				Duration:   time.Since(start),
			})
		}
		done <- err
	}()

	return done
}
