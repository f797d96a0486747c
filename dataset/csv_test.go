package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

const irisSample = `sepal_length,sepal_width,species
5.1,3.5,setosa
7.0,3.2,versicolor
6.3,3.3,virginica
4.9,3.0,setosa
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(irisSample))
	require.NoError(t, err)

	assert.Equal(t, []string{"sepal_length", "sepal_width"}, ds.FeatureNames)
	assert.Equal(t, "species", ds.LabelName)
	assert.Equal(t, []string{"setosa", "versicolor", "virginica", "setosa"}, ds.Labels)
	assert.Equal(t, 4, ds.NumSamples())

	r, c := ds.X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 7.0, ds.X.At(1, 0))
	assert.Equal(t, 3.0, ds.X.At(3, 1))

	codes, enc, err := ds.EncodeLabels()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 0}, codes)
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, enc.Classes)
	assert.Equal(t, 4, LabelVector(codes).Len())
}

func TestReadCSV_LabelColumn(t *testing.T) {
	doc := "label;a;b\nx;1;2\ny;3;4\n"
	ds, err := ReadCSV(strings.NewReader(doc), WithLabelColumn("label"), WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames)
	assert.Equal(t, []string{"x", "y"}, ds.Labels)
	assert.Equal(t, 4.0, ds.X.At(1, 1))

	_, err = ReadCSV(strings.NewReader(doc), WithLabelColumn("missing"), WithDelimiter(';'))
	assert.True(t, errors.IsConfigurationError(err))
}

func TestReadCSV_WithoutLabel(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,4\n5,6\n"), WithoutLabel())
	require.NoError(t, err)
	assert.False(t, ds.HasLabels())
	assert.Nil(t, ds.Labels)
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames)
	assert.Equal(t, 3, ds.NumSamples())
	assert.Equal(t, 6.0, ds.X.At(2, 1))

	ds, err = ReadCSV(strings.NewReader("only\n1\n2\n"), WithoutLabel())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumSamples())
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,oops\n2,x\n"), WithLabelColumn("a"))
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "oops")

	_, err = ReadCSV(strings.NewReader("only\n1\n"))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iris.csv")
	require.NoError(t, os.WriteFile(path, []byte(irisSample), 0o600))

	ds, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.NumSamples())

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
