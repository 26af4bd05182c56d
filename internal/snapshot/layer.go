package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// GroupByStore splits snapshot files by their leading directory.
func GroupByStore(files map[string][]byte) map[string]map[string][]byte {
	result := make(map[string]map[string][]byte)
	for p, data := range files {
		store, _, _ := strings.Cut(p, "/")
		if result[store] == nil {
			result[store] = make(map[string][]byte)
		}
		result[store][p] = data
	}
	return result
}

// ContentHash digests paths and contents in path order.
func ContentHash(files map[string][]byte) string {
	h := sha256.New()
	for _, p := range sortedPaths(files) {
		binary.Write(h, binary.BigEndian, uint16(len(p)))
		h.Write([]byte(p))
		binary.Write(h, binary.BigEndian, uint64(len(files[p])))
		h.Write(files[p])
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// PackLayer packs files into binary format: [pathLen 2B][path][length 8B][data]...
func PackLayer(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	lenBuf := make([]byte, 8)

	for _, p := range sortedPaths(files) {
		if len(p) == 0 || len(p) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: path length %d", ErrBadLayer, len(p))
		}
		data := files[p]

		binary.BigEndian.PutUint16(lenBuf, uint16(len(p)))
		buf.Write(lenBuf[:2])
		buf.WriteString(p)

		binary.BigEndian.PutUint64(lenBuf, uint64(len(data)))
		buf.Write(lenBuf)
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func UnpackLayer(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	r := bytes.NewReader(data)

	for r.Len() > 0 {
		var pathLen uint16
		if err := binary.Read(r, binary.BigEndian, &pathLen); err != nil {
			return nil, fmt.Errorf("%w: read path length: %w", ErrBadLayer, err)
		}
		pathBuf := make([]byte, pathLen)
		if _, err := io.ReadFull(r, pathBuf); err != nil {
			return nil, fmt.Errorf("%w: read path: %w", ErrBadLayer, err)
		}

		var length uint64
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("%w: read length: %w", ErrBadLayer, err)
		}
		if length > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: %s: length %d exceeds layer", ErrBadLayer, pathBuf, length)
		}

		fileData := make([]byte, length)
		if _, err := io.ReadFull(r, fileData); err != nil {
			return nil, fmt.Errorf("%w: read data: %w", ErrBadLayer, err)
		}
		result[string(pathBuf)] = fileData
	}

	return result, nil
}

func sortedPaths(files map[string][]byte) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
