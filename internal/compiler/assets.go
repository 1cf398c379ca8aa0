package compiler

import (
	"encoding/base64"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

var (
	ErrExternalAsset = errors.New("external asset references are not allowed")
	ErrNotAnImage    = errors.New("asset is not an image")
	ErrNoAssetSource = errors.New("relative asset path but no asset source configured")
)

// inliner turns every image reference into a self-contained data URI.
type inliner struct {
	src   fs.FS
	cache map[string]string
}

func newInliner(src fs.FS) *inliner {
	return &inliner{src: src, cache: make(map[string]string)}
}

// inline resolves ref. An empty ref stays empty.
func (in *inliner) inline(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if out, ok := in.cache[ref]; ok {
		return out, nil
	}

	var (
		raw []byte
		err error
	)
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:"):
		raw, err = decodeDataURI(ref)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(ref, "//"):
		return "", errors.Wrapf(ErrExternalAsset, "%s", ref)
	default:
		raw, err = in.read(ref)
	}
	if err != nil {
		return "", err
	}

	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", errors.Wrapf(ErrNotAnImage, "%s is %s", shorten(ref), mt.String())
	}

	out := "data:" + baseMIME(mt.String()) + ";base64," + base64.StdEncoding.EncodeToString(raw)
	in.cache[ref] = out
	return out, nil
}

func (in *inliner) read(ref string) ([]byte, error) {
	if in.src == nil {
		return nil, errors.Wrapf(ErrNoAssetSource, "%s", ref)
	}
	name := path.Clean(strings.TrimPrefix(ref, "./"))
	raw, err := fs.ReadFile(in.src, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read asset %s", name)
	}
	return raw, nil
}

// decodeDataURI returns the payload bytes of a data: URI.
func decodeDataURI(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	meta, payload := ref[len("data:"):comma], ref[comma+1:]
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Wrap(err, "decode base64 data URI")
		}
		return raw, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, errors.Wrap(err, "unescape data URI")
	}
	return []byte(text), nil
}

// baseMIME drops parameters such as "; charset=utf-8".
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}

func shorten(ref string) string {
	if len(ref) > 48 {
		return ref[:48] + "..."
	}
	return ref
}
