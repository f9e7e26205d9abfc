// Package inference loads the saved preprocessor and model and predicts on
// new student records.
package inference

import (
	"strconv"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/preprocessing"
)

const op = "prediction"

// PredictPipeline applies the persisted artifacts to raw rows.
type PredictPipeline struct {
	PreprocessorPath string
	ModelPath        string

	preprocessor *preprocessing.ColumnTransformer
	model        model.Estimator
}

// NewPredictPipeline creates a pipeline reading the given artifacts. Nothing
// is loaded until the first prediction.
func NewPredictPipeline(preprocessorPath, modelPath string) *PredictPipeline {
	return &PredictPipeline{PreprocessorPath: preprocessorPath, ModelPath: modelPath}
}

// Load reads both artifacts. Missing files fail with KindNotFound and
// unreadable ones with KindDecode.
func (p *PredictPipeline) Load() error {
	if p.preprocessor != nil && p.model != nil {
		return nil
	}
	pre, err := model.LoadModelAs[*preprocessing.ColumnTransformer](p.PreprocessorPath)
	if err != nil {
		return err
	}
	est, err := model.LoadModelAs[model.Estimator](p.ModelPath)
	if err != nil {
		return err
	}
	p.preprocessor, p.model = pre, est
	return nil
}

// Predict returns one prediction per row of frame.
func (p *PredictPipeline) Predict(frame *preprocessing.Frame) ([]float64, error) {
	logger := log.GetLoggerWithName("inference")
	if err := p.Load(); err != nil {
		logger.Error("Loading artifacts failed", err)
		return nil, err
	}

	X, err := p.preprocessor.Transform(frame)
	if err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}
	pred, err := p.model.Predict(X)
	if err != nil {
		return nil, errors.Enrich(op, errors.KindFit, err)
	}

	n, _ := pred.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = pred.At(i, 0)
	}
	logger.Info("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, n,
		log.ModelNameKey, p.model.Name(),
	)
	return out, nil
}

// CustomData is one student record as entered by a user.
type CustomData struct {
	Gender                   string
	RaceEthnicity            string
	ParentalLevelOfEducation string
	Lunch                    string
	TestPreparationCourse    string
	ReadingScore             float64
	WritingScore             float64
}

// Frame converts records into a Frame with the training column names.
func Frame(records ...CustomData) *preprocessing.Frame {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.Gender,
			r.RaceEthnicity,
			r.ParentalLevelOfEducation,
			r.Lunch,
			r.TestPreparationCourse,
			strconv.FormatFloat(r.ReadingScore, 'g', -1, 64),
			strconv.FormatFloat(r.WritingScore, 'g', -1, 64),
		}
	}
	return &preprocessing.Frame{
		Columns: []string{
			"gender",
			"race_ethnicity",
			"parental_level_of_education",
			"lunch",
			"test_preparation_course",
			"reading_score",
			"writing_score",
		},
		Rows: rows,
	}
}
