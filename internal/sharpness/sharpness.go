// Package sharpness computes classical focus measures on a decoded image.
//
// Convolutions use a 3x3 neighbourhood with reflect-101 borders, so a
// uniform image scores zero on every measure.
package sharpness

import (
	"image"
	"math"
)

const (
	laplacianWeight = 0.7
	tenengradWeight = 0.3
)

// Gray is a row-major single-channel image with 8-bit range values.
type Gray struct {
	Width, Height int
	Pix           []float64
}

func (g *Gray) at(x, y int) float64 {
	return g.Pix[reflect101(y, g.Height)*g.Width+reflect101(x, g.Width)]
}

// reflect101 mirrors i into [0, n) without repeating the edge sample.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// Grayscale converts img to luma with BT.601 weights.
func Grayscale(img image.Image) *Gray {
	b := img.Bounds()
	g := &Gray{Width: b.Dx(), Height: b.Dy(), Pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			g.Pix[y*g.Width+x] = (0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(bl)) / 257
		}
	}
	return g
}

func laplacian(g *Gray) []float64 {
	out := make([]float64, len(g.Pix))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			out[y*g.Width+x] = g.at(x-1, y) + g.at(x+1, y) + g.at(x, y-1) + g.at(x, y+1) - 4*g.at(x, y)
		}
	}
	return out
}

// LaplacianVariance is the population variance of the Laplacian response.
func LaplacianVariance(g *Gray) float64 {
	lap := laplacian(g)
	if len(lap) == 0 {
		return 0
	}
	var mean float64
	for _, v := range lap {
		mean += v
	}
	mean /= float64(len(lap))

	var variance float64
	for _, v := range lap {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(lap))
}

// LaplacianEnergy is the sum of absolute Laplacian responses.
func LaplacianEnergy(g *Gray) float64 {
	var sum float64
	for _, v := range laplacian(g) {
		sum += math.Abs(v)
	}
	return sum
}

// Tenengrad is the mean squared Sobel gradient magnitude.
func Tenengrad(g *Gray) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			gx := g.at(x+1, y-1) + 2*g.at(x+1, y) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x-1, y) - g.at(x-1, y+1)
			gy := g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1)
			sum += gx*gx + gy*gy
		}
	}
	return sum / float64(len(g.Pix))
}

// Report holds every focus measure for one image.
type Report struct {
	LaplacianVariance float64 `json:"laplacian_variance"`
	Tenengrad         float64 `json:"tenengrad"`
	LaplacianEnergy   float64 `json:"laplacian_energy"`
	Combined          float64 `json:"combined"`
}

// Combined weights Laplacian variance and Tenengrad 0.7 / 0.3.
func Combined(lapVar, tenengrad float64) float64 {
	return laplacianWeight*lapVar + tenengradWeight*tenengrad
}

// Measure computes a Report for img.
func Measure(img image.Image) Report {
	g := Grayscale(img)
	r := Report{
		LaplacianVariance: LaplacianVariance(g),
		Tenengrad:         Tenengrad(g),
		LaplacianEnergy:   LaplacianEnergy(g),
	}
	r.Combined = Combined(r.LaplacianVariance, r.Tenengrad)
	return r
}
