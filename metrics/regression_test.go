package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func col(values ...float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     mat.Matrix
		yPred     mat.Matrix
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     col(1.0, 2.0, 3.0, 4.0, 5.0),
			yPred:     col(1.0, 2.0, 3.0, 4.0, 5.0),
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			yTrue:     col(1.0, 2.0, 3.0, 4.0),
			yPred:     col(1.5, 2.5, 2.5, 3.5),
			want:      0.25,
			tolerance: 1e-10,
		},
		{
			name:      "larger errors",
			yTrue:     col(10.0, 20.0, 30.0),
			yPred:     col(12.0, 18.0, 33.0),
			want:      17.0 / 3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   col(1.0, 2.0, 3.0),
			yPred:   col(1.0, 2.0),
			wantErr: true,
		},
		{
			name:    "not a column",
			yTrue:   mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			yPred:   mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			wantErr: true,
		},
		{
			name:    "non-finite prediction",
			yTrue:   col(1.0, 2.0),
			yPred:   col(1.0, math.NaN()),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("MSE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("MSE() = %v, want %v (tolerance: %v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := col(3.0, -0.5, 2.0, 7.0)
	yPred := col(2.5, 0.0, 2.0, 8.0)

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MAE() error = %v", err)
	}
	if math.Abs(mae-0.5) > 1e-10 {
		t.Errorf("MAE() = %v, want 0.5", mae)
	}

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("RMSE() error = %v", err)
	}
	if want := math.Sqrt(0.375); math.Abs(rmse-want) > 1e-10 {
		t.Errorf("RMSE() = %v, want %v", rmse, want)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue mat.Matrix
		yPred mat.Matrix
		want  float64
	}{
		{
			name:  "perfect prediction",
			yTrue: col(1, 2, 3, 4, 5),
			yPred: col(1, 2, 3, 4, 5),
			want:  1.0,
		},
		{
			// sklearn.metrics.r2_score([3, -0.5, 2, 7], [2.5, 0.0, 2, 8])
			name:  "sklearn reference",
			yTrue: col(3, -0.5, 2, 7),
			yPred: col(2.5, 0.0, 2, 8),
			want:  0.9486081370449679,
		},
		{
			name:  "mean prediction",
			yTrue: col(1, 2, 3),
			yPred: col(2, 2, 2),
			want:  0.0,
		},
		{
			name:  "worse than mean is negative",
			yTrue: col(1, 2, 3),
			yPred: col(3, 2, 1),
			want:  -3.0,
		},
		{
			name:  "constant target perfect prediction",
			yTrue: col(4, 4, 4),
			yPred: col(4, 4, 4),
			want:  1.0,
		},
		{
			name:  "constant target imperfect prediction",
			yTrue: col(4, 4, 4),
			yPred: col(4, 5, 4),
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatalf("R2Score() error = %v", err)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("R2Score() = %v, want a finite value", got)
			}
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2Score_Empty(t *testing.T) {
	if _, err := R2Score(&mat.Dense{}, &mat.Dense{}); err == nil {
		t.Error("R2Score() on empty input should fail")
	}
}

func TestExplainedVarianceScore(t *testing.T) {
	got, err := ExplainedVarianceScore(col(3, -0.5, 2, 7), col(2.5, 0.0, 2, 8))
	if err != nil {
		t.Fatalf("ExplainedVarianceScore() error = %v", err)
	}
	// sklearn.metrics.explained_variance_score
	if math.Abs(got-0.9571734475374732) > 1e-10 {
		t.Errorf("ExplainedVarianceScore() = %v", got)
	}
}

func TestByName(t *testing.T) {
	scorer, ok := ByName("neg_mean_squared_error")
	if !ok {
		t.Fatal("neg_mean_squared_error should be known")
	}
	got, err := scorer(col(1, 2), col(2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Errorf("neg MSE = %v, want -1", got)
	}
	if _, ok := ByName("accuracy"); ok {
		t.Error("accuracy is not a regression scorer")
	}
}
