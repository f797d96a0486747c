package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

type describeCmdConfig struct {
	*rootCmdConfig
	modelInput string
	asYAML     bool
	asDOT      bool
}

// modelSummary is the YAML view of a model file.
type modelSummary struct {
	Model              string             `yaml:"model"`
	Criterion          string             `yaml:"criterion"`
	MaxDepth           int                `yaml:"max_depth"`
	MinSamplesSplit    int                `yaml:"min_samples_split"`
	TrainingSamples    int                `yaml:"n_samples"`
	Depth              int                `yaml:"depth"`
	Leaves             int                `yaml:"leaves"`
	Nodes              int                `yaml:"nodes"`
	Label              string             `yaml:"label"`
	Classes            []string           `yaml:"classes"`
	Features           []string           `yaml:"features"`
	FeatureImportances map[string]float64 `yaml:"feature_importances"`
}

func describeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &describeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print a model's tree or a summary of it",
		Long: `Print the tree of a model written by train, one node per line. With --yaml
a summary of the model is printed instead, and with --dot the tree is
printed in Graphviz DOT format.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&config.modelInput, "model", "m", "", "path to a model written by train (required)")
	flags.BoolVar(&config.asYAML, "yaml", false, "print a YAML summary")
	flags.BoolVar(&config.asDOT, "dot", false, "print the tree in Graphviz DOT format")
	return cmd
}

func (dc *describeCmdConfig) run(w io.Writer) error {
	if dc.asYAML && dc.asDOT {
		return errors.NewValidationError("yaml", "cannot be combined with dot", dc.asYAML)
	}
	lm, err := readModelFile(dc.modelInput)
	if err != nil {
		return err
	}
	t := lm.clf.Tree()
	switch {
	case dc.asYAML:
		out, err := yaml.Marshal(summarize(lm))
		if err != nil {
			return errors.Wrap(err, "failed to encode summary")
		}
		_, err = w.Write(out)
		return errors.Wrap(err, "failed to write summary")
	case dc.asDOT:
		dot, err := t.ExportGraphviz(lm.file.FeatureNames, treeClassNames(t, lm.file.ClassNames))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, dot)
		return errors.Wrap(err, "failed to write graph")
	default:
		return t.PrintTree(w, lm.file.FeatureNames)
	}
}

func summarize(lm *loadedModel) *modelSummary {
	snap := lm.file.Model
	t := lm.clf.Tree()
	importances := make(map[string]float64, len(lm.file.FeatureNames))
	for i, imp := range lm.clf.GetFeatureImportances() {
		importances[lm.file.FeatureNames[i]] = imp
	}
	return &modelSummary{
		Model:              snap.Model,
		Criterion:          snap.Criterion,
		MaxDepth:           snap.MaxDepth,
		MinSamplesSplit:    snap.MinSamplesSplit,
		TrainingSamples:    snap.NSamples,
		Depth:              t.Depth(),
		Leaves:             t.NLeaves(),
		Nodes:              len(t.Nodes),
		Label:              lm.file.LabelName,
		Classes:            treeClassNames(t, lm.file.ClassNames),
		Features:           lm.file.FeatureNames,
		FeatureImportances: importances,
	}
}
