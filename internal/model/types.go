package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/iqa-score/internal/imageproc"
	"github.com/Brownie44l1/iqa-score/internal/score"
)

const (
	// DefaultEndpoint is the serving signature the quality model was exported with.
	DefaultEndpoint = "image_quality"
	// QualityOutput names the output tensor that holds the score distribution.
	QualityOutput = "quality_prediction"
	// DefaultInput names the image input tensor.
	DefaultInput = "input"

	DefaultImageSize = 224

	ModelFileName    = "model.onnx"
	MetadataFileName = "metadata.json"
)

// ErrInputSize is returned when an input tensor does not match the model's input shape.
var ErrInputSize = errors.New("input size does not match model input shape")

// Predictor runs one inference and returns every requested output keyed by tensor name.
type Predictor interface {
	Predict(input []float32) (map[string][]float32, error)
	Close()
}

// Metadata describes how to feed and read a model artifact.
type Metadata struct {
	Endpoint    string           `json:"endpoint"`
	InputName   string           `json:"input_name"`
	OutputName  string           `json:"output_name"`
	InputShape  []int64          `json:"input_shape"`
	OutputShape []int64          `json:"output_shape"`
	Layout      imageproc.Layout `json:"layout"`
	ImageSize   int              `json:"image_size"`
}

// DefaultMetadata is used for any field a metadata file leaves unset: a
// MobileNet NIMA model taking one 224x224 RGB image in NHWC order.
func DefaultMetadata() Metadata {
	return Metadata{
		Endpoint:    DefaultEndpoint,
		InputName:   DefaultInput,
		OutputName:  QualityOutput,
		InputShape:  []int64{1, DefaultImageSize, DefaultImageSize, imageproc.Channels},
		OutputShape: []int64{1, score.Buckets},
		Layout:      imageproc.NHWC,
		ImageSize:   DefaultImageSize,
	}
}

// InputSize is the number of float32 values the model input holds.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

// OutputSize is the number of float32 values the model output holds.
func (m Metadata) OutputSize() int {
	return shapeSize(m.OutputShape)
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range shape {
		n *= int(dim)
	}
	return n
}

// Validate checks that the metadata is internally consistent.
func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("input and output names are required")
	}
	if !m.Layout.Valid() {
		return fmt.Errorf("unsupported layout %q", m.Layout)
	}
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return errors.New("input and output shapes are required")
	}
	for _, dim := range append(append([]int64{}, m.InputShape...), m.OutputShape...) {
		if dim <= 0 {
			return fmt.Errorf("shape dimensions must be positive, got %v / %v", m.InputShape, m.OutputShape)
		}
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive, got %d", m.ImageSize)
	}
	if want := m.ImageSize * m.ImageSize * imageproc.Channels; m.InputSize() != want {
		return fmt.Errorf("input shape %v holds %d values, want %d for a %dx%d RGB image",
			m.InputShape, m.InputSize(), want, m.ImageSize, m.ImageSize)
	}
	if ch := m.channelDim(); ch != imageproc.Channels {
		return fmt.Errorf("input shape %v has %d channels in the %s channel position, want %d",
			m.InputShape, ch, m.Layout, imageproc.Channels)
	}
	if m.OutputSize() != score.Buckets {
		return fmt.Errorf("output shape %v holds %d values, want %d quality buckets",
			m.OutputShape, m.OutputSize(), score.Buckets)
	}
	return nil
}

// channelDim is the size of the channel axis for the configured layout:
// last for NHWC, second for NCHW.
func (m Metadata) channelDim() int64 {
	if m.Layout == imageproc.NCHW {
		if len(m.InputShape) < 2 {
			return 0
		}
		return m.InputShape[1]
	}
	return m.InputShape[len(m.InputShape)-1]
}

// LoadMetadata reads a metadata file over DefaultMetadata. An empty path
// returns the defaults.
func LoadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()
	if path == "" {
		return metadata, nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := metadata.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata %s: %w", path, err)
	}
	return metadata, nil
}

// Artifact is a resolved model file and its optional metadata file.
type Artifact struct {
	ModelPath    string
	MetadataPath string
}

// ResolveArtifact accepts either a model directory holding ModelFileName or a
// direct path to a model file. A MetadataFileName next to the model is picked
// up when present.
func ResolveArtifact(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to stat model path: %w", err)
	}

	dir := filepath.Dir(path)
	modelPath := path
	if info.IsDir() {
		dir = path
		modelPath = filepath.Join(path, ModelFileName)
		if _, err := os.Stat(modelPath); err != nil {
			return Artifact{}, fmt.Errorf("model directory %s has no %s: %w", path, ModelFileName, err)
		}
	}

	artifact := Artifact{ModelPath: modelPath}
	metadataPath := filepath.Join(dir, MetadataFileName)
	if _, err := os.Stat(metadataPath); err == nil {
		artifact.MetadataPath = metadataPath
	}
	return artifact, nil
}
