package tree

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// importancePlot builds a bar chart of feature importances.
func (dt *DecisionTreeClassifier) importancePlot(featureNames []string) (*plot.Plot, error) {
	if err := dt.state.RequireFitted(modelName, "PlotFeatureImportances"); err != nil {
		return nil, err
	}
	importances := dt.GetFeatureImportances()

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	names := make([]string, len(importances))
	for i := range names {
		names[i] = featureName(featureNames, i)
	}
	p.NominalX(names...)
	return p, nil
}

// PlotFeatureImportances writes a bar chart of the feature importances to w.
// format is any extension gonum/plot understands, e.g. "png" or "svg".
func (dt *DecisionTreeClassifier) PlotFeatureImportances(w io.Writer, format string, featureNames []string) error {
	p, err := dt.importancePlot(featureNames)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(dt.plotWidth(), 3*vg.Inch, format)
	if err != nil {
		return errors.Wrapf(err, "unsupported plot format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write plot")
	}
	return nil
}

// SaveFeatureImportancesPlot writes the chart to path; the format follows
// the file extension.
func (dt *DecisionTreeClassifier) SaveFeatureImportancesPlot(path string, featureNames []string) error {
	p, err := dt.importancePlot(featureNames)
	if err != nil {
		return err
	}
	if err := p.Save(dt.plotWidth(), 3*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %s", path)
	}
	return nil
}

func (dt *DecisionTreeClassifier) plotWidth() vg.Length {
	nFeatures, _ := dt.state.GetDimensions()
	w := vg.Length(nFeatures) * 0.6 * vg.Inch
	if w < 4*vg.Inch {
		return 4 * vg.Inch
	}
	return w
}
