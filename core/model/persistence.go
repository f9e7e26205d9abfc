package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

const (
	// ArtifactFormat identifies files written by SaveModel.
	ArtifactFormat = "studentperf-artifact"
	// ArtifactVersion is bumped whenever the envelope layout changes.
	ArtifactVersion = 1
)

// Envelope is the on-disk container of an artifact. Payload holds the
// gob-encoded object and Checksum is the hex sha256 of Payload.
type Envelope struct {
	Format    string
	Version   int
	CreatedAt time.Time
	RunID     string
	TypeName  string
	Checksum  string
	Payload   []byte
}

// payload carries the object as an interface value so gob records its
// concrete type. The type must have been passed to Register.
type payload struct {
	Object interface{}
}

// Register makes a concrete type storable as an artifact.
// 各パッケージの init で登録する:
//
//	func init() { model.Register(&Ridge{}) }
func Register(value interface{}) {
	gob.Register(value)
}

// SaveModel はオブジェクトを path に保存する
//
// 親ディレクトリは必要に応じて作成する。書き込みは一時ファイルと rename で
// 行うので、失敗しても既存のファイルは壊れない。
//
// 使用例:
//
//	err := model.SaveModel("artifacts/model.gob", best)
func SaveModel(path string, obj interface{}) error {
	const op = "artifact save"
	if obj == nil {
		return errors.Enrich(op, errors.KindValidation, errors.NewValueError("SaveModel", "cannot save a nil object"))
	}

	var buf bytes.Buffer
	if err := WriteArtifact(&buf, obj); err != nil {
		return errors.Enrich(op, errors.KindValidation, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Enrich(op, errors.KindIO, errors.Wrapf(err, "create directory %s", dir))
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return errors.Enrich(op, errors.KindIO, err)
	}

	log.GetLoggerWithName("artifacts").Info("Artifact saved",
		log.PathKey, path,
		log.OperationKey, log.OperationSave,
	)
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", path)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// LoadModel は path から保存済みのオブジェクトを読み込む
//
// ファイルが存在しない場合は KindNotFound、壊れている・形式が違う・
// 型が登録されていない場合は KindDecode の StageError を返す。
func LoadModel(path string) (interface{}, error) {
	const op = "artifact load"
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Enrich(op, errors.KindNotFound, errors.Wrapf(err, "artifact %s does not exist", path))
		}
		return nil, errors.Enrich(op, errors.KindIO, errors.Wrapf(err, "open %s", path))
	}
	defer f.Close()

	obj, err := ReadArtifact(f)
	if err != nil {
		return nil, errors.Enrich(op, errors.KindDecode, errors.Wrapf(err, "decode %s", path))
	}

	log.GetLoggerWithName("artifacts").Debug("Artifact loaded",
		log.PathKey, path,
		log.OperationKey, log.OperationLoad,
	)
	return obj, nil
}

// LoadModelAs は LoadModel の結果を T として返す。
// 保存されている型が T でなければ KindDecode を返す。
func LoadModelAs[T any](path string) (T, error) {
	var zero T
	obj, err := LoadModel(path)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, errors.Enrich("artifact load", errors.KindDecode,
			errors.Newf("artifact %s holds %T, not %T", path, obj, zero))
	}
	return v, nil
}

// WriteArtifact はオブジェクトを Envelope に包んで w に書き込む
func WriteArtifact(w io.Writer, obj interface{}) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(&payload{Object: obj}); err != nil {
		return errors.Wrapf(err, "encode %T", obj)
	}
	sum := sha256.Sum256(body.Bytes())

	env := Envelope{
		Format:    ArtifactFormat,
		Version:   ArtifactVersion,
		CreatedAt: time.Now().UTC(),
		RunID:     log.RunID(),
		TypeName:  typeName(obj),
		Checksum:  hex.EncodeToString(sum[:]),
		Payload:   body.Bytes(),
	}
	return encodeEnvelope(w, &env)
}

func encodeEnvelope(w io.Writer, env *Envelope) error {
	if err := gob.NewEncoder(w).Encode(env); err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	return nil
}

// ReadArtifact は r から Envelope を読み込み、検証してオブジェクトを返す
func ReadArtifact(r io.Reader) (interface{}, error) {
	env, err := ReadEnvelope(r)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&p); err != nil {
		return nil, errors.Wrapf(err, "decode payload of type %s", env.TypeName)
	}
	if p.Object == nil {
		return nil, errors.New("artifact payload is empty")
	}
	return p.Object, nil
}

// ReadEnvelope reads and verifies the envelope without decoding the payload.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if env.Format != ArtifactFormat {
		return nil, errors.Newf("unknown artifact format %q", env.Format)
	}
	if env.Version != ArtifactVersion {
		return nil, errors.Newf("unsupported artifact version %d", env.Version)
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, errors.New("artifact checksum mismatch")
	}
	return &env, nil
}

func typeName(obj interface{}) string {
	if e, ok := obj.(interface{ Name() string }); ok {
		return e.Name()
	}
	return fmtType(obj)
}
