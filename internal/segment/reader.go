package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
)

// Open loads a segment file written by Write and returns it fully resident in
// memory. The caller receives the initial reference.
func Open(path string) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment file: %w", err)
	}
	if len(data) < headerSize+footerSize {
		return nil, fmt.Errorf("segment file %s: truncated", path)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicBytes {
		return nil, fmt.Errorf("segment file %s: bad magic %#x", path, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("segment file %s: unsupported version %d", path, version)
	}
	dictSize := binary.LittleEndian.Uint64(data[16:24])
	docsSize := binary.LittleEndian.Uint64(data[24:32])
	want := uint64(headerSize) + dictSize + docsSize + footerSize
	if uint64(len(data)) != want {
		return nil, fmt.Errorf("segment file %s: size %d, want %d", path, len(data), want)
	}
	dictData := data[headerSize : headerSize+dictSize]
	docsData := data[headerSize+dictSize : headerSize+dictSize+docsSize]

	checksum := crc32.ChecksumIEEE(dictData)
	checksum = crc32.Update(checksum, crc32.IEEETable, docsData)
	if stored := binary.LittleEndian.Uint32(data[len(data)-footerSize:]); stored != checksum {
		return nil, fmt.Errorf("segment file %s: checksum mismatch", path)
	}

	var entries []TermEntry
	if err := json.Unmarshal(dictData, &entries); err != nil {
		return nil, fmt.Errorf("segment file %s: decoding dictionary: %w", path, err)
	}
	var docs []DocInfo
	if err := json.Unmarshal(docsData, &docs); err != nil {
		return nil, fmt.Errorf("segment file %s: decoding documents: %w", path, err)
	}

	name := filepath.Base(path)
	id := strings.TrimSuffix(strings.TrimPrefix(name, "seg_"), ".ksg")
	return New(id, name, entries, docs), nil
}
