// Package quality runs one image through a quality model and reduces the
// prediction to a mean score.
package quality

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/iqa-score/internal/imageproc"
	"github.com/Brownie44l1/iqa-score/internal/logging"
	"github.com/Brownie44l1/iqa-score/internal/model"
	"github.com/Brownie44l1/iqa-score/internal/score"
	"github.com/Brownie44l1/iqa-score/internal/sharpness"
	"go.uber.org/zap"
)

// Decimals is the precision the mean score is reported with.
const Decimals = 3

// ErrMissingOutput is returned when the model does not produce the expected output tensor.
var ErrMissingOutput = errors.New("model output missing")

// Result is the outcome of assessing one image.
type Result struct {
	MeanScore float64           `json:"mean_score_prediction"`
	Sharpness *sharpness.Report `json:"sharpness,omitempty"`
}

// Assessor wires image preprocessing, the model and the score reducer together.
type Assessor struct {
	predictor model.Predictor
	metadata  model.Metadata
	logger    *zap.Logger

	// WithSharpness adds classical focus measures to every Result.
	WithSharpness bool
}

// NewAssessor returns an Assessor feeding images shaped by metadata to predictor.
func NewAssessor(predictor model.Predictor, metadata model.Metadata, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{
		predictor: predictor,
		metadata:  metadata,
		logger:    logger,
	}
}

// Assess scores the image at imagePath.
func (a *Assessor) Assess(imagePath string) (*Result, error) {
	img, format, err := imageproc.Load(imagePath)
	if err != nil {
		return nil, logging.NewOperationError("load image", imagePath, err)
	}
	logging.WithOperation(a.logger, "load image", imagePath).Debug("image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	input, err := imageproc.Preprocess(img, a.metadata.ImageSize, a.metadata.Layout)
	if err != nil {
		return nil, logging.NewOperationError("preprocess", imagePath, err)
	}

	outputs, err := a.predictor.Predict(input)
	if err != nil {
		return nil, logging.NewOperationError("predict", imagePath, err)
	}

	dist, err := a.distribution(outputs)
	if err != nil {
		return nil, logging.NewOperationError("read prediction", imagePath, err)
	}

	mean, err := score.MeanScore(dist)
	if err != nil {
		return nil, logging.NewOperationError("mean score", imagePath, err)
	}
	logging.WithOperation(a.logger, "mean score", imagePath).Debug("score computed",
		zap.Float64s("distribution", dist),
		zap.Float64("mean", mean))

	result := &Result{MeanScore: score.Round(mean, Decimals)}
	if a.WithSharpness {
		report := sharpness.Measure(img)
		result.Sharpness = &report
	}
	return result, nil
}

// distribution picks the score buckets out of the model outputs. The batch
// holds a single image, so the whole tensor is its distribution; a tensor of
// any other length than score.Buckets fails in MeanScore.
func (a *Assessor) distribution(outputs map[string][]float32) ([]float64, error) {
	name := a.metadata.OutputName
	values, ok := outputs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrMissingOutput)
	}
	return score.FromFloat32(values), nil
}
