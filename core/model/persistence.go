package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// パラメータ:
//   - model: 保存する値（エクスポートされたフィールドを持つ構造体）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	snap, _ := clf.Snapshot()
//	err := model.SaveModel(snap, "tree.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(model, file)
}

// LoadModel はgob形式のファイルからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のポインタ
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerにgob形式で保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgob形式のモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
