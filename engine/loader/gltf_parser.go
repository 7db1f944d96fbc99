package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion   = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLB           = errors.New("invalid GLB container")
	errMissingJSONChunk     = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI       = errors.New("invalid data URI")
	errBufferSizeMismatch   = errors.New("buffer size mismatch")
	errUnsupportedExtension = errors.New("unsupported required extension")
)

// gltfSupportedExtensions are the required extensions an asset may declare.
var gltfSupportedExtensions = map[string]bool{
	"KHR_materials_unlit":                 true,
	"KHR_materials_pbrSpecularGlossiness": true,
	"KHR_materials_clearcoat":             true,
	"KHR_materials_transmission":          true,
	"KHR_materials_sheen":                 true,
	"KHR_materials_volume":                true,
	"KHR_materials_ior":                   true,
	"KHR_materials_specular":              true,
	"KHR_materials_emissive_strength":     true,
	"KHR_texture_transform":               true,
}

// gltfFile is a decoded document with its buffers loaded. Relative URIs resolve against
// baseDir.
type gltfFile struct {
	doc     *gltfDocument
	baseDir string
}

// openGLTF reads a .gltf or .glb file. A GLB is recognised by extension or by its magic word.
func openGLTF(path string) (*gltfFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	glb := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic)
	return decodeGLTF(data, glb, filepath.Dir(path))
}

// decodeGLTF decodes glTF JSON or a GLB container and loads every buffer.
func decodeGLTF(data []byte, glb bool, baseDir string) (*gltfFile, error) {
	var bin []byte
	if glb {
		var err error
		if data, bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	f := &gltfFile{doc: &gltfDocument{}, baseDir: baseDir}
	if err := json.Unmarshal(data, f.doc); err != nil {
		return nil, fmt.Errorf("decode glTF JSON: %w", err)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}
	for _, ext := range f.doc.ExtensionsRequired {
		if !gltfSupportedExtensions[ext] {
			return nil, fmt.Errorf("%w: %s", errUnsupportedExtension, ext)
		}
	}

	for i := range f.doc.Buffers {
		buf := &f.doc.Buffers[i]
		switch {
		case buf.URI != "":
			data, _, err := f.readURI(buf.URI)
			if err != nil {
				return nil, fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		case i == 0 && bin != nil:
			buf.Data = bin
		default:
			return nil, fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}
		if len(buf.Data) < buf.ByteLength {
			return nil, fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return f, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container. Chunks of other types are skipped.
func splitGLB(data []byte) (js, bin []byte, err error) {
	le := binary.LittleEndian
	if len(data) < 12 || le.Uint32(data) != gltfGLBMagic || le.Uint32(data[4:]) != gltfGLBVersion {
		return nil, nil, errInvalidGLB
	}
	for rest := data[12:]; len(rest) > 0; {
		if len(rest) < 8 {
			return nil, nil, fmt.Errorf("%w: truncated chunk header", errInvalidGLB)
		}
		n, typ := le.Uint32(rest), le.Uint32(rest[4:])
		rest = rest[8:]
		if uint64(n) > uint64(len(rest)) {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes overruns the file", errInvalidGLB, n)
		}
		switch typ {
		case gltfGLBChunkJSON:
			js = rest[:n]
		case gltfGLBChunkBIN:
			bin = rest[:n]
		}
		rest = rest[n:]
	}
	if js == nil {
		return nil, nil, errMissingJSONChunk
	}
	return js, bin, nil
}

// readURI loads a data URI or a file relative to the document and returns the bytes with the
// media type a data URI declares.
func (f *gltfFile) readURI(uri string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, "", errInvalidDataURI
		}
		mime, b64 := strings.CutSuffix(header, ";base64")
		if !b64 {
			return nil, "", fmt.Errorf("%w: %q is not base64", errInvalidDataURI, header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", errInvalidDataURI, err)
		}
		return data, mime, nil
	}
	data, err := os.ReadFile(f.path(uri))
	return data, "", err
}

func (f *gltfFile) path(uri string) string {
	return filepath.Join(f.baseDir, uri)
}

// bufferView copies the bytes of a buffer view.
func (f *gltfFile) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(f.doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", index)
	}
	bv := f.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	buf := f.doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(buf) {
		return nil, fmt.Errorf("bufferView %d exceeds buffer bounds: offset=%d length=%d bufSize=%d", index, bv.ByteOffset, bv.ByteLength, len(buf))
	}
	return append([]byte(nil), buf[bv.ByteOffset:bv.ByteOffset+bv.ByteLength]...), nil
}

// modelName is the default scene's name, then fallback, then "unnamed_model".
func (f *gltfFile) modelName(fallback string) string {
	if s := f.doc.Scene; s != nil && *s >= 0 && *s < len(f.doc.Scenes) && f.doc.Scenes[*s].Name != "" {
		return f.doc.Scenes[*s].Name
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_model"
}
