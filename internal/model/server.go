// Package model loads an image-quality model artifact and runs inference with ONNX Runtime.
package model

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Options configures how the ONNX Runtime environment is initialized.
type Options struct {
	// SharedLibraryPath points at the onnxruntime shared library. Empty uses the platform default.
	SharedLibraryPath string
	Logger            *zap.Logger
}

type Server struct {
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	logger       *zap.Logger
}

// NewServer resolves the artifact at path and prepares a session for it.
func NewServer(path string, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	artifact, err := ResolveArtifact(path)
	if err != nil {
		return nil, err
	}

	metadata, err := LoadMetadata(artifact.MetadataPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("resolved model artifact",
		zap.String("model", artifact.ModelPath),
		zap.String("metadata", artifact.MetadataPath),
		zap.String("endpoint", metadata.Endpoint),
		zap.Int64s("input_shape", metadata.InputShape),
		zap.Int64s("output_shape", metadata.OutputShape))

	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(artifact.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		logger:       logger,
	}, nil
}

// Predict runs the model on one preprocessed input and returns the output
// tensor under its configured name.
func (s *Server) Predict(inputData []float32) (map[string][]float32, error) {
	if want := s.Metadata.InputSize(); len(inputData) != want {
		return nil, fmt.Errorf("expected %d values, got %d: %w", want, len(inputData), ErrInputSize)
	}
	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := s.outputTensor.GetData()
	result := make([]float32, len(out))
	copy(result, out)

	s.logger.Debug("inference complete", zap.String("output", s.Metadata.OutputName), zap.Int("values", len(result)))

	return map[string][]float32{s.Metadata.OutputName: result}, nil
}

func (s *Server) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
