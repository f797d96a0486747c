// Package preprocessing はモデル入力の前処理を提供する
package preprocessing

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set"

	"github.com/YuminosukeSato/cartree/core/model"
	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// LabelEncoder は文字列ラベルを 0..k-1 の float64 コードに変換する
// scikit-learn の LabelEncoder と同じく、クラスは辞書順に並べて番号を振る
type LabelEncoder struct {
	state *model.StateManager

	// Classes は辞書順に並んだクラス名。Classes[i] がコード i に対応する
	Classes []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewLabelEncoder()
//	codes, err := enc.FitTransform([]string{"yes", "no", "yes"})
//	// codes == []float64{1, 0, 1}
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit はラベル列からクラス一覧を作成する
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	set := mapset.NewThreadUnsafeSet()
	for _, l := range labels {
		set.Add(l)
	}
	classes := make([]string, 0, set.Cardinality())
	for _, v := range set.ToSlice() {
		classes = append(classes, v.(string))
	}
	sort.Strings(classes)

	e.setClasses(classes)
	e.state.SetFitted(1, len(labels))
	return nil
}

// FromClasses は既知のクラス一覧から学習済みのエンコーダを作成する
// 保存済みモデルのクラス名を復元する場合に使う
func FromClasses(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.NewModelError("LabelEncoder.FromClasses", "empty data", errors.ErrEmptyData)
	}
	seen := mapset.NewThreadUnsafeSet()
	for _, c := range classes {
		if !seen.Add(c) {
			return nil, errors.NewValidationError("classes", "duplicate class", c)
		}
	}
	e := NewLabelEncoder()
	e.setClasses(append([]string(nil), classes...))
	e.state.SetFitted(1, 0)
	return e, nil
}

func (e *LabelEncoder) setClasses(classes []string) {
	e.Classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
}

// IsFitted はエンコーダが学習済みかどうかを返す
func (e *LabelEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// Transform はラベルをコードに変換する。未知のラベルはエラーになる
func (e *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	codes := make([]float64, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("unseen label %q at index %d", l, i))
		}
		codes[i] = float64(code)
	}
	return codes, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (e *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform はコードを元のラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	labels := make([]string, len(codes))
	for i, c := range codes {
		idx := int(c)
		if float64(idx) != c || idx < 0 || idx >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("invalid code %v at index %d", c, i))
		}
		labels[i] = e.Classes[idx]
	}
	return labels, nil
}
