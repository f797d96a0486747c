// Package dataset loads labeled tabular data from CSV files.
//
// The first row is a header. Every column except the label column must hold
// numbers; the label column is kept as strings so that class names survive
// a round trip through preprocessing.LabelEncoder.
package dataset

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/preprocessing"
)

// Dataset is a feature matrix with one string label per row.
type Dataset struct {
	FeatureNames []string
	LabelName    string
	X            *mat.Dense
	Labels       []string
}

type options struct {
	labelColumn string
	noLabel     bool
	comma       rune
}

// Option configures ReadCSV.
type Option func(*options)

// WithLabelColumn names the label column. The last column is used when
// unset.
func WithLabelColumn(name string) Option {
	return func(o *options) {
		o.labelColumn = name
	}
}

// WithoutLabel reads every column as a feature. Labels is left nil.
func WithoutLabel() Option {
	return func(o *options) {
		o.noLabel = true
	}
}

// WithDelimiter sets the field separator, ',' by default.
func WithDelimiter(comma rune) Option {
	return func(o *options) {
		o.comma = comma
	}
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	ds, err := ReadCSV(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ds, nil
}

// ReadCSV parses a headed CSV document into a Dataset.
func ReadCSV(r io.Reader, opts ...Option) (*Dataset, error) {
	o := options{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(o.comma),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse csv")
	}
	minCols := 2
	if o.noLabel {
		minCols = 1
	}
	if df.Nrow() == 0 || df.Ncol() < minCols {
		return nil, errors.NewModelError("dataset.ReadCSV",
			fmt.Sprintf("need a header, at least one row and %d columns", minCols), errors.ErrEmptyData)
	}

	names := df.Names()
	ds := &Dataset{}
	if !o.noLabel {
		label := o.labelColumn
		if label == "" {
			label = names[len(names)-1]
		}
		found := false
		for _, n := range names {
			if n == label {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewValidationError("label_column", "no such column", label)
		}
		ds.LabelName = label
		ds.Labels = df.Col(label).Records()
	}

	nFeatures := len(names)
	if !o.noLabel {
		nFeatures--
	}
	ds.X = mat.NewDense(df.Nrow(), nFeatures, nil)
	for _, name := range names {
		if !o.noLabel && name == ds.LabelName {
			continue
		}
		j := len(ds.FeatureNames)
		ds.FeatureNames = append(ds.FeatureNames, name)
		col := df.Col(name)
		records := col.Records()
		for i, v := range col.Float() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewValueError("dataset.ReadCSV",
					fmt.Sprintf("column %q row %d: %q is not a finite number", name, i+1, records[i]))
			}
			ds.X.Set(i, j, v)
		}
	}
	return ds, nil
}

// NumSamples returns the number of rows.
func (d *Dataset) NumSamples() int {
	if d.X == nil {
		return 0
	}
	r, _ := d.X.Dims()
	return r
}

// HasLabels reports whether the label column was read.
func (d *Dataset) HasLabels() bool {
	return d.LabelName != ""
}

// EncodeLabels fits a LabelEncoder on the labels and returns the codes.
func (d *Dataset) EncodeLabels() ([]float64, *preprocessing.LabelEncoder, error) {
	enc := preprocessing.NewLabelEncoder()
	codes, err := enc.FitTransform(d.Labels)
	if err != nil {
		return nil, nil, err
	}
	return codes, enc, nil
}

// LabelVector returns codes as an n×1 matrix for Fit.
func LabelVector(codes []float64) *mat.VecDense {
	return mat.NewVecDense(len(codes), append([]float64(nil), codes...))
}
