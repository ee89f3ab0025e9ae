package quality

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/iqa-score/internal/logging"
	"github.com/Brownie44l1/iqa-score/internal/model"
	"github.com/Brownie44l1/iqa-score/internal/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	outputs map[string][]float32
	err     error
	inputs  [][]float32
}

func (f *fakePredictor) Predict(input []float32) (map[string][]float32, error) {
	f.inputs = append(f.inputs, input)
	return f.outputs, f.err
}

func (f *fakePredictor) Close() {}

func testImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func qualityOutput(v ...float32) map[string][]float32 {
	return map[string][]float32{model.QualityOutput: v}
}

func TestAssess(t *testing.T) {
	pred := &fakePredictor{outputs: qualityOutput(0, 0, 0, 0, 0.5, 0.5, 0, 0, 0, 0)}
	a := NewAssessor(pred, model.DefaultMetadata(), nil)

	res, err := a.Assess(testImage(t))
	require.NoError(t, err)
	assert.Equal(t, 5.5, res.MeanScore)
	assert.Nil(t, res.Sharpness)

	require.Len(t, pred.inputs, 1)
	assert.Len(t, pred.inputs[0], model.DefaultMetadata().InputSize())
}

func TestAssess_Rounds(t *testing.T) {
	pred := &fakePredictor{outputs: qualityOutput(1, 2, 0, 0, 0, 0, 0, 0, 0, 0)}
	res, err := NewAssessor(pred, model.DefaultMetadata(), nil).Assess(testImage(t))
	require.NoError(t, err)
	assert.Equal(t, 1.667, res.MeanScore)
}

func TestAssess_RoundsTiesToEven(t *testing.T) {
	pred := &fakePredictor{outputs: qualityOutput(0, 0.9375, 0.0625, 0, 0, 0, 0, 0, 0, 0)}
	res, err := NewAssessor(pred, model.DefaultMetadata(), nil).Assess(testImage(t))
	require.NoError(t, err)
	assert.Equal(t, 2.062, res.MeanScore)
}

func TestAssess_Sharpness(t *testing.T) {
	pred := &fakePredictor{outputs: qualityOutput(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)}
	a := NewAssessor(pred, model.DefaultMetadata(), nil)
	a.WithSharpness = true

	res, err := a.Assess(testImage(t))
	require.NoError(t, err)
	require.NotNil(t, res.Sharpness)
	assert.Greater(t, res.Sharpness.Tenengrad, 0.0)
}

func TestAssess_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		pred      *fakePredictor
		imagePath func(t *testing.T) string
		operation string
		wantErr   error
	}{
		{
			name:      "missing image",
			pred:      &fakePredictor{},
			imagePath: func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.png") },
			operation: "load image",
			wantErr:   os.ErrNotExist,
		},
		{
			name:      "predict fails",
			pred:      &fakePredictor{err: boom},
			imagePath: testImage,
			operation: "predict",
			wantErr:   boom,
		},
		{
			name:      "missing output",
			pred:      &fakePredictor{outputs: map[string][]float32{"other": {1}}},
			imagePath: testImage,
			operation: "read prediction",
			wantErr:   ErrMissingOutput,
		},
		{
			name:      "zero sum",
			pred:      &fakePredictor{outputs: qualityOutput(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)},
			imagePath: testImage,
			operation: "mean score",
			wantErr:   score.ErrZeroSum,
		},
		{
			name:      "wrong bucket count",
			pred:      &fakePredictor{outputs: qualityOutput(1, 1, 1)},
			imagePath: testImage,
			operation: "mean score",
			wantErr:   score.ErrBucketCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewAssessor(tt.pred, model.DefaultMetadata(), nil).Assess(tt.imagePath(t))
			assert.Nil(t, res)
			require.ErrorIs(t, err, tt.wantErr)

			var opErr *logging.OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.operation, opErr.Operation)
		})
	}
}

func TestAssess_CustomOutputName(t *testing.T) {
	meta := model.DefaultMetadata()
	meta.OutputName = "scores"
	pred := &fakePredictor{outputs: map[string][]float32{"scores": {0, 0, 0, 0, 0, 0, 0, 0, 0, 1}}}

	res, err := NewAssessor(pred, meta, nil).Assess(testImage(t))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.MeanScore)
}
