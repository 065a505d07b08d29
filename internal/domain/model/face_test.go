package model

import (
	"errors"
	"math"
	"testing"
)

func square68() LandmarkSet {
	s := make(LandmarkSet, LandmarkCount)
	for i := range s {
		s[i] = Point{X: float64(i % 10), Y: float64(i / 10)}
	}
	return s
}

func TestDetection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		d       *Detection
		wantErr error
	}{
		{"valid", &Detection{Confidence: 0.8, Landmarks: square68(), Embedding: []float32{1}}, nil},
		{"nil", nil, ErrNoDetection},
		{"confidence above one", &Detection{Confidence: 1.01, Landmarks: square68(), Embedding: []float32{1}}, ErrInvalidInput},
		{"negative confidence", &Detection{Confidence: -0.1, Landmarks: square68(), Embedding: []float32{1}}, ErrInvalidInput},
		{"nan confidence", &Detection{Confidence: math.NaN(), Landmarks: square68(), Embedding: []float32{1}}, ErrInvalidInput},
		{"short landmarks", &Detection{Confidence: 0.5, Landmarks: square68()[:5], Embedding: []float32{1}}, ErrInvalidInput},
		{"no embedding", &Detection{Confidence: 0.5, Landmarks: square68()}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLandmarkSet_Validate(t *testing.T) {
	s := square68()
	s[12] = Point{X: math.Inf(1)}
	if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for infinite point, got %v", err)
	}
}
