package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/preprocessing"
	"github.com/YuminosukeSato/cartree/sklearn/tree"
)

// modelFile is what train writes and predict/describe read: the classifier
// snapshot plus the column and class names needed to use it on CSV data.
type modelFile struct {
	FeatureNames []string       `json:"feature_names"`
	LabelName    string         `json:"label_name"`
	ClassNames   []string       `json:"class_names"`
	Model        *tree.Snapshot `json:"model"`
}

// loadedModel is a decoded modelFile ready for prediction.
type loadedModel struct {
	file    *modelFile
	clf     *tree.DecisionTreeClassifier
	encoder *preprocessing.LabelEncoder
}

func newModelFile(clf *tree.DecisionTreeClassifier, featureNames []string, labelName string, enc *preprocessing.LabelEncoder) (*modelFile, error) {
	snap, err := clf.Snapshot()
	if err != nil {
		return nil, err
	}
	return &modelFile{
		FeatureNames: featureNames,
		LabelName:    labelName,
		ClassNames:   enc.Classes,
		Model:        snap,
	}, nil
}

func writeModelFile(path string, mf *modelFile, stdout io.Writer) error {
	w := stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(mf), "failed to write model")
}

func readModelFile(path string) (*loadedModel, error) {
	if path == "" {
		return nil, errors.NewValidationError("model", "required flag was not set", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	mf := &modelFile{}
	if err := json.NewDecoder(f).Decode(mf); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	clf, err := tree.NewDecisionTreeClassifier()
	if err != nil {
		return nil, err
	}
	if err := clf.Restore(mf.Model); err != nil {
		return nil, errors.Wrapf(err, "invalid model in %s", path)
	}
	if nf := clf.Tree().NFeatures; nf != len(mf.FeatureNames) {
		return nil, errors.NewDimensionError("readModelFile", nf, len(mf.FeatureNames), 1)
	}
	encoder, err := preprocessing.FromClasses(mf.ClassNames)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid class names in %s", path)
	}
	return &loadedModel{file: mf, clf: clf, encoder: encoder}, nil
}

// treeClassNames returns the class names in Tree.Classes order. Codes a
// training split never saw are skipped by the tree, so the two lists can
// differ in length.
func treeClassNames(t *tree.Tree, names []string) []string {
	out := make([]string, len(t.Classes))
	for i, code := range t.Classes {
		idx := int(code)
		if idx >= 0 && idx < len(names) {
			out[i] = names[idx]
		}
	}
	return out
}
