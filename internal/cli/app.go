// Package cli defines the iqa-score command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Brownie44l1/iqa-score/internal/logging"
	"github.com/Brownie44l1/iqa-score/internal/model"
	"github.com/Brownie44l1/iqa-score/internal/quality"
	urfave "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	name = "iqa-score"

	sharedLibraryEnvVar = "ONNXRUNTIME_SHARED_LIBRARY"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	imagePathFlag = &urfave.StringFlag{
		Name:     "image-path",
		Aliases:  []string{"ip"},
		Usage:    "Path to image file.",
		Required: true,
	}

	modelPathFlag = &urfave.StringFlag{
		Name:     "model-path",
		Aliases:  []string{"mp"},
		Usage:    "Path to model directory.",
		Required: true,
	}

	ortLibFlag = &urfave.StringFlag{
		Name:    "ort-lib",
		Usage:   "Path to the onnxruntime shared library (optional)",
		Sources: urfave.EnvVars(sharedLibraryEnvVar),
	}

	sharpnessFlag = &urfave.BoolFlag{
		Name:  "sharpness",
		Usage: "Adds classical sharpness measures to the output (optional, default: false)",
	}

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs to stderr (optional, default: false)",
	}
)

// PredictorFactory opens the model artifact at modelPath.
type PredictorFactory func(modelPath string, opts model.Options) (model.Predictor, model.Metadata, error)

func onnxPredictor(modelPath string, opts model.Options) (model.Predictor, model.Metadata, error) {
	s, err := model.NewServer(modelPath, opts)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	return s, s.Metadata, nil
}

// Execute runs the command against os.Args and exits non-zero on failure.
func Execute() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr, onnxPredictor))
}

// run reports a failure once, on stderr, and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, newPredictor PredictorFactory) int {
	if err := NewCommand(newPredictor, stdout).Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

// NewCommand builds the root command. The score JSON is written to out.
func NewCommand(newPredictor PredictorFactory, out io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:            name,
		Version:         fmt.Sprintf("%s (%s)", version, commit),
		Usage:           "Predicts the mean aesthetic/technical quality score of an image",
		HideHelpCommand: true,
		Writer:          out,
		Flags: []urfave.Flag{
			imagePathFlag,
			modelPathFlag,
			ortLibFlag,
			sharpnessFlag,
			debugFlag,
		},
		Action: func(_ context.Context, c *urfave.Command) error {
			logger, err := logging.NewLogger(c.Bool(debugFlag.Name))
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			imagePath := c.String(imagePathFlag.Name)
			modelPath := c.String(modelPathFlag.Name)

			predictor, metadata, err := newPredictor(modelPath, model.Options{
				SharedLibraryPath: c.String(ortLibFlag.Name),
				Logger:            logger,
			})
			if err != nil {
				logger.Debug("model load failed", zap.Error(err))
				return logging.NewOperationError("load model", modelPath, err)
			}
			defer predictor.Close()

			assessor := quality.NewAssessor(predictor, metadata, logger)
			assessor.WithSharpness = c.Bool(sharpnessFlag.Name)

			result, err := assessor.Assess(imagePath)
			if err != nil {
				logger.Debug("assessment failed", zap.Error(err))
				return err
			}

			return encode(out, result)
		},
	}
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
