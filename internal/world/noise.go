package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/campaign-map/internal/rng"
)

// NoiseField is a square grid of values in [0,1] biasing where sites appear.
// Values are indexed [x][y].
type NoiseField struct {
	Resolution int
	Values     [][]float64
}

// GenerateNoise samples octave simplex noise over the grid, stretches it to
// [0,1] and applies the center and edge darkening passes. The third noise
// axis is one draw from r, so regenerating with a reset stream reproduces the
// field while a continued stream does not.
func GenerateNoise(cfg GenConfig, seed int64, r *rng.Server) *NoiseField {
	res := cfg.NoiseResolution
	z := r.Float64()
	noise := opensimplex.New(seed)

	field := &NoiseField{
		Resolution: res,
		Values:     make([][]float64, res),
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for x := 0; x < res; x++ {
		field.Values[x] = make([]float64, res)
		for y := 0; y < res; y++ {
			v := octaveNoise(noise, float64(x)/float64(res), float64(y)/float64(res), z,
				cfg.NoiseOctaves, cfg.NoiseFrequency, cfg.NoisePersistence)
			field.Values[x][y] = v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	span := hi - lo
	for x := 0; x < res; x++ {
		for y := 0; y < res; y++ {
			if span > 0 {
				field.Values[x][y] = (field.Values[x][y] - lo) / span
			} else {
				field.Values[x][y] = 0
			}
		}
	}

	field.darken(cfg)
	return field
}

// darken pushes values down in a wavy disc around the center and toward
// EdgeDarkenValue outside EdgeDarkenRadius, leaving a habitable ring.
func (f *NoiseField) darken(cfg GenConfig) {
	fieldRadius := float64(f.Resolution) / 2
	center := Point{X: fieldRadius, Y: fieldRadius}
	centerRadius := fieldRadius * cfg.CenterDarkenRadius
	edgeRadius := fieldRadius * cfg.EdgeDarkenRadius

	for x := 0; x < f.Resolution; x++ {
		for y := 0; y < f.Resolution; y++ {
			p := Point{X: float64(x), Y: float64(y)}
			dist := p.Distance(center)
			v := f.Values[x][y]

			if dist < centerRadius {
				angle := math.Atan2(p.Y-center.Y, p.X-center.X)
				wave := math.Sin(float64(angle*cfg.CenterDarkenWaveFrequency) + float64(v*cfg.CenterDarkenWavePhaseNoise))
				boundary := centerRadius * (0.75 + 0.25*wave)
				if dist < boundary {
					v = lerp(v, 0, (1-dist/boundary)*cfg.CenterDarkenStrength)
				}
			}

			if dist > edgeRadius {
				t := 1.0
				if fieldRadius > edgeRadius {
					t = math.Min((dist-edgeRadius)/(fieldRadius-edgeRadius), 1)
				}
				v = lerp(v, cfg.EdgeDarkenValue, t)
			}

			f.Values[x][y] = clamp(v, 0, 1)
		}
	}
}

// Sample returns the field value under a world-space point on a map of the
// given size. Points outside the map clamp to the border cells.
func (f *NoiseField) Sample(p Point, size float64) float64 {
	ix := clampInt(int(p.X/size*float64(f.Resolution)), 0, f.Resolution-1)
	iy := clampInt(int(p.Y/size*float64(f.Resolution)), 0, f.Resolution-1)
	return f.Values[ix][iy]
}

// octaveNoise layers octaves of 3D simplex noise, scaling amplitude by
// persistence and doubling frequency each octave.
func octaveNoise(noise opensimplex.Noise, x, y, z float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += float64(noise.Eval3(x*frequency, y*frequency, z) * amplitude)
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
