// Package errors は cartree 全体で使うエラー型と警告の仕組みを提供します。
//
// すべてのエラーは cockroachdb/errors でスタックトレースを保持し、
// zerolog で構造化ログとして出力できるよう LogObjectMarshaler を実装します。
// 呼び出し側は Is/As のほか、IsConfigurationError などの判定関数と
// Code によるエラーコードで分類できます。
package errors

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	警告
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("cartree-Warning: %v\n", w)
	}
	// pkg/log が zerolog プロバイダを初期化したときに設定される
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は zerolog が未設定のときに使う警告ハンドラを設定します。
// nil を渡すと警告は捨てられます。
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc は警告の出力先を zerolog に切り替えます。
// pkg/log からのみ呼ばれます。nil で SetWarningHandler のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を出力します。処理は継続されます。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	switch {
	case zerologWarnFunc != nil:
		zerologWarnFunc(w)
	case warningHandler != nil:
		warningHandler(w)
	}
}

// DeprecationWarning は非推奨の設定が使われたときの警告です。
// entropy 基準での学習がこれを発生させます。
type DeprecationWarning struct {
	Feature     string
	Reason      string
	Alternative string
}

// NewDeprecationWarning は DeprecationWarning を作成します。
func NewDeprecationWarning(feature, reason, alternative string) *DeprecationWarning {
	return &DeprecationWarning{Feature: feature, Reason: reason, Alternative: alternative}
}

func (w *DeprecationWarning) Error() string {
	msg := fmt.Sprintf("%s is deprecated: %s", w.Feature, w.Reason)
	if w.Alternative != "" {
		msg += fmt.Sprintf(". Use %s instead.", w.Alternative)
	}
	return msg
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *DeprecationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "DeprecationWarning").
		Str("feature", w.Feature).
		Str("reason", w.Reason).
		Str("alternative", w.Alternative)
}

// ===========================================================================
//
//	エラー型
//
// ===========================================================================

// NotFittedError は Fit 前に Predict などが呼ばれたことを表します。
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError はスタックトレース付きの NotFittedError を返します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("cartree: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "NotFittedError").
		Str("model_name", e.ModelName).
		Str("method", e.Method)
}

// DimensionError は行数または特徴量数が期待と異なることを表します。
// Axis は 0 が行、1 が特徴量です。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError はスタックトレース付きの DimensionError を返します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("cartree: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "DimensionError").
		Str("operation", e.Op).
		Str("axis_name", e.axisName()).
		Int("axis", e.Axis).
		Int("expected", e.Expected).
		Int("got", e.Got)
}

// ValidationError はハイパーパラメータや設定値が不正であることを表します。
// min_samples_split < 1 や負の max_depth などが該当します。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError はスタックトレース付きの ValidationError を返します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cartree: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "ValidationError").
		Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

// ValueError は入力値そのものが不正であることを表します (NaN、未知のラベルなど)。
type ValueError struct {
	Op      string
	Message string
}

// NewValueError はスタックトレース付きの ValueError を返します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("cartree: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "ValueError").
		Str("operation", e.Op).
		Str("message", e.Message)
}

// ModelError は操作名と種別を添えて下位のエラーを包みます。
// ErrEmptyData などの番兵エラーは Unwrap で辿れます。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

// NewModelError はスタックトレース付きの ModelError を返します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cartree: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("cartree: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "ModelError").
		Str("operation", e.Op).
		Str("kind", e.Kind)
}

var (
	// ErrEmptyData は行または列が 0 のデータが渡されたことを表します。
	ErrEmptyData = errors.New("empty data")

	// ErrInvalidModel は読み込んだモデルやスナップショットの構造が壊れていることを表します。
	ErrInvalidModel = errors.New("invalid model")
)

// ===========================================================================
//
//	分類とエラーコード
//
// ===========================================================================

// IsConfigurationError は err が ValidationError を含むかどうかを返します。
func IsConfigurationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsShapeError は err が DimensionError を含むかどうかを返します。
func IsShapeError(err error) bool {
	var d *DimensionError
	return errors.As(err, &d)
}

// IsNotFittedError は err が NotFittedError を含むかどうかを返します。
func IsNotFittedError(err error) bool {
	var n *NotFittedError
	return errors.As(err, &n)
}

// ログの error.code に出力するエラーコード。
const (
	CodeNotFitted         = "NOT_FITTED"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeEmptyData         = "EMPTY_DATA"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidModel      = "INVALID_MODEL"
	CodePanic             = "PANIC"
	CodeCanceled          = "CANCELED"
	CodeInternal          = "INTERNAL"
)

// Code は err を分類してエラーコードを返します。nil には空文字を返します。
func Code(err error) string {
	var panicErr *PanicError
	switch {
	case err == nil:
		return ""
	case IsNotFittedError(err):
		return CodeNotFitted
	case IsShapeError(err):
		return CodeDimensionMismatch
	case errors.Is(err, ErrEmptyData):
		return CodeEmptyData
	case errors.Is(err, ErrInvalidModel):
		return CodeInvalidModel
	case IsConfigurationError(err):
		return CodeInvalidInput
	case errors.HasType(err, (*ValueError)(nil)):
		return CodeInvalidInput
	case errors.As(err, &panicErr):
		return CodePanic
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// ===========================================================================
//
//	cockroachdb/errors の薄いラッパー
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with message and a stack trace. Wrap(nil, ...) is nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New returns an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf is New with a format string.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}
