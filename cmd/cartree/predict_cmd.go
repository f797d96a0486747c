package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/dataset"
	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelInput string
	dataInput  string
	format     string
	proba      bool
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the class of every row in a CSV file",
		Long: `Predict the class of every row in a CSV file using a model written by train.
Columns are matched to the model's features by name. When the file also has
the model's label column, the accuracy of the predictions is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&config.modelInput, "model", "m", "", "path to a model written by train (required)")
	flags.StringVarP(&config.dataInput, "input", "i", "", "path to a CSV file with a header row (required)")
	flags.StringVarP(&config.format, "format", "f", "table", "output format: table or csv")
	flags.BoolVar(&config.proba, "proba", false, "also print the predicted probability of every class")
	return cmd
}

func (pc *predictCmdConfig) Validate() error {
	if pc.modelInput == "" {
		return errors.NewValidationError("model", "required flag was not set", pc.modelInput)
	}
	if pc.dataInput == "" {
		return errors.NewValidationError("input", "required flag was not set", pc.dataInput)
	}
	if pc.format != "table" && pc.format != "csv" {
		return errors.NewValidationError("format", "must be table or csv", pc.format)
	}
	return nil
}

func (pc *predictCmdConfig) run(cmd *cobra.Command) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("cmd.predict")

	lm, err := readModelFile(pc.modelInput)
	if err != nil {
		return err
	}
	ds, err := pc.readData(lm.file.LabelName)
	if err != nil {
		return err
	}
	X, err := alignFeatures(ds, lm.file.FeatureNames)
	if err != nil {
		return err
	}

	pred, err := lm.clf.Predict(X)
	if err != nil {
		return err
	}
	n, _ := pred.Dims()
	codes := make([]float64, n)
	for i := range codes {
		codes[i] = pred.At(i, 0)
	}
	labels, err := lm.encoder.InverseTransform(codes)
	if err != nil {
		return err
	}

	var proba mat.Matrix
	var probaNames []string
	if pc.proba {
		if proba, err = lm.clf.PredictProba(X); err != nil {
			return err
		}
		probaNames = treeClassNames(lm.clf.Tree(), lm.file.ClassNames)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	header := table.Row{"row", lm.file.LabelName}
	for _, name := range probaNames {
		header = append(header, "p("+name+")")
	}
	if ds.HasLabels() {
		header = append(header, "actual")
	}
	t.AppendHeader(header)
	correct := 0
	for i, label := range labels {
		row := table.Row{i + 1, label}
		for j := range probaNames {
			row = append(row, strconv.FormatFloat(proba.At(i, j), 'f', 4, 64))
		}
		if ds.HasLabels() {
			row = append(row, ds.Labels[i])
			if ds.Labels[i] == label {
				correct++
			}
		}
		t.AppendRow(row)
	}
	render(t, pc.format)

	if ds.HasLabels() && n > 0 {
		acc := float64(correct) / float64(n)
		logger.Info("Predictions scored", log.SamplesKey, n, log.AccuracyKey, acc)
		fmt.Fprintf(cmd.ErrOrStderr(), "accuracy: %.4f (%d/%d)\n", acc, correct, n)
	}
	return nil
}

// readData reads the input with labelName as the label column when the
// file has one, and as features only otherwise.
func (pc *predictCmdConfig) readData(labelName string) (*dataset.Dataset, error) {
	base := pc.cfg.csvOptions()
	opts := append(append([]dataset.Option(nil), base...), dataset.WithLabelColumn(labelName))
	ds, err := dataset.ReadCSVFile(pc.dataInput, opts...)
	if err == nil || !errors.IsConfigurationError(err) {
		return ds, err
	}
	opts = append(append([]dataset.Option(nil), base...), dataset.WithoutLabel())
	return dataset.ReadCSVFile(pc.dataInput, opts...)
}

// alignFeatures returns the columns of ds in the order of names.
func alignFeatures(ds *dataset.Dataset, names []string) (*mat.Dense, error) {
	index := make(map[string]int, len(ds.FeatureNames))
	for j, name := range ds.FeatureNames {
		index[name] = j
	}
	X := mat.NewDense(ds.NumSamples(), len(names), nil)
	for j, name := range names {
		src, ok := index[name]
		if !ok {
			return nil, errors.NewValidationError("input", "missing feature column", name)
		}
		X.SetCol(j, mat.Col(nil, src, ds.X))
	}
	return X, nil
}

func render(t table.Writer, format string) {
	switch format {
	case "csv":
		t.RenderCSV()
	default:
		t.Render()
	}
}
