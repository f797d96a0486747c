package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/core/model"
	"github.com/YuminosukeSato/cartree/dataset"
	"github.com/YuminosukeSato/cartree/model_selection"
	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
	"github.com/YuminosukeSato/cartree/sklearn/tree"
)

type trainCmdConfig struct {
	*rootCmdConfig
	dataInput string
	output    string
	dotOutput string
	plotPath  string
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Grow a tree from a CSV file",
		Long: `Grow a decision tree from a labeled CSV file, report its accuracy and
write it in JSON format. Every column except the label column must be numeric.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&config.dataInput, "input", "i", "", "path to a CSV file with a header row (required)")
	flags.StringVarP(&config.output, "output", "o", "", "path to which the model will be written in JSON format (defaults to STDOUT)")
	flags.StringVar(&config.dotOutput, "dot", "", "also write the tree in Graphviz DOT format to this path")
	flags.StringVar(&config.plotPath, "plot", "", "also plot the feature importances to this path (.png, .svg or .pdf)")
	flags.Int("max-depth", tree.DefaultMaxDepth, "maximum depth of a split node")
	flags.Int("min-samples-split", tree.DefaultMinSamplesSplit, "minimum number of samples needed to split a node")
	flags.String("criterion", tree.DefaultCriterion, "split criterion: gini or entropy")
	flags.Float64("test-size", 0, "fraction of rows held out for testing (0 trains on every row)")
	flags.Uint64("random-state", 0, "seed for the train/test split and cross-validation shuffling")
	flags.Int("cv", 0, "number of stratified cross-validation folds to report (0 disables)")
	flags.String("label-column", "", "name of the label column (defaults to the last column)")
	for key, name := range map[string]string{
		"max_depth":         "max-depth",
		"min_samples_split": "min-samples-split",
		"criterion":         "criterion",
		"test_size":         "test-size",
		"random_state":      "random-state",
		"cv_folds":          "cv",
		"label_column":      "label-column",
	} {
		config.bind(key, flags.Lookup(name))
	}
	return cmd
}

func (tc *trainCmdConfig) run(cmd *cobra.Command) error {
	if tc.dataInput == "" {
		return errors.NewValidationError("input", "required flag was not set", tc.dataInput)
	}
	cfg := tc.cfg
	logger := log.GetLoggerWithName("cmd.train")

	ds, err := dataset.ReadCSVFile(tc.dataInput, cfg.csvOptions()...)
	if err != nil {
		return err
	}
	codes, encoder, err := ds.EncodeLabels()
	if err != nil {
		return err
	}
	y := dataset.LabelVector(codes)
	logger.Info("Dataset loaded",
		"path", tc.dataInput,
		log.SamplesKey, ds.NumSamples(),
		log.FeaturesKey, len(ds.FeatureNames),
		log.ClassesKey, len(encoder.Classes))

	clf, err := tree.NewDecisionTreeClassifier(cfg.treeOptions()...)
	if err != nil {
		return err
	}

	var XTrain, yTrain, XTest, yTest mat.Matrix = ds.X, y, nil, nil
	if cfg.TestSize > 0 {
		split, err := model_selection.TrainTestSplit(ds.X, y, cfg.TestSize, cfg.RandomState)
		if err != nil {
			return err
		}
		XTrain, yTrain, XTest, yTest = split.XTrain, split.YTrain, split.XTest, split.YTest
	}

	start := time.Now()
	if err := clf.FitContext(cmd.Context(), XTrain, yTrain); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report := &trainReport{
		trainRows:  rows(XTrain),
		depth:      clf.GetDepth(),
		leaves:     clf.GetNLeaves(),
		trainScore: clf.Score(XTrain, yTrain),
		fitTime:    elapsed,
	}
	if XTest != nil {
		report.testRows = rows(XTest)
		score := clf.Score(XTest, yTest)
		report.testScore = &score
	}
	if cfg.CVFolds > 0 {
		cv, err := model_selection.CrossValScore(cmd.Context(), func() (model.Estimator, error) {
			return tree.NewDecisionTreeClassifier(cfg.treeOptions()...)
		}, ds.X, y, model_selection.NewStratifiedKFold(cfg.CVFolds, true, cfg.RandomState))
		if err != nil {
			return err
		}
		report.cv = cv
	}
	report.render(cmd.ErrOrStderr(), ds.FeatureNames, clf.GetFeatureImportances())

	mf, err := newModelFile(clf, ds.FeatureNames, ds.LabelName, encoder)
	if err != nil {
		return err
	}
	if err := writeModelFile(tc.output, mf, cmd.OutOrStdout()); err != nil {
		return err
	}
	if tc.dotOutput != "" {
		dot, err := clf.Tree().ExportGraphviz(ds.FeatureNames, treeClassNames(clf.Tree(), encoder.Classes))
		if err != nil {
			return err
		}
		if err := os.WriteFile(tc.dotOutput, []byte(dot), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", tc.dotOutput)
		}
	}
	if tc.plotPath != "" {
		if err := clf.SaveFeatureImportancesPlot(tc.plotPath, ds.FeatureNames); err != nil {
			return err
		}
	}
	logger.Info("Model written", "output", outputName(tc.output))
	return nil
}

type trainReport struct {
	trainRows  int
	testRows   int
	depth      int
	leaves     int
	trainScore float64
	testScore  *float64
	cv         *model_selection.CVResult
	fitTime    time.Duration
}

func (r *trainReport) render(w io.Writer, featureNames []string, importances []float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRAINING REPORT")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"train rows", r.trainRows})
	if r.testScore != nil {
		t.AppendRow(table.Row{"test rows", r.testRows})
	}
	t.AppendRow(table.Row{"depth", r.depth})
	t.AppendRow(table.Row{"leaves", r.leaves})
	t.AppendRow(table.Row{"fit time", r.fitTime.Round(time.Microsecond)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"train accuracy", fmt.Sprintf("%.4f", r.trainScore)})
	if r.testScore != nil {
		t.AppendRow(table.Row{"test accuracy", fmt.Sprintf("%.4f", *r.testScore)})
	}
	if r.cv != nil {
		t.AppendRow(table.Row{
			fmt.Sprintf("cv accuracy (%d folds)", len(r.cv.TestScores)),
			fmt.Sprintf("%.4f ± %.4f", r.cv.GetMeanScore(), r.cv.GetStdScore()),
		})
	}
	t.AppendSeparator()
	for i, imp := range importances {
		name := fmt.Sprintf("X_%d", i)
		if i < len(featureNames) {
			name = featureNames[i]
		}
		t.AppendRow(table.Row{"importance: " + name, fmt.Sprintf("%.4f", imp)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func rows(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}
